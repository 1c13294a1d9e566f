package canvas

// Raw Canvas API records. Nullable fields stay pointers so that absent and
// null are distinguishable from zero values downstream.

type Course struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	CourseCode    string  `json:"course_code"`
	WorkflowState string  `json:"workflow_state"`
	StartAt       *string `json:"start_at"`
	EndAt         *string `json:"end_at"`
}

type Assignment struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	DueAt           *string  `json:"due_at"`
	CreatedAt       *string  `json:"created_at"`
	UpdatedAt       *string  `json:"updated_at"`
	PointsPossible  *float64 `json:"points_possible"`
	SubmissionTypes []string `json:"submission_types"`
	HTMLURL         string   `json:"html_url"`
}
