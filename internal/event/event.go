package event

import "fmt"

// Event types carried in the outbound SQS messages. The course-service
// listener dispatches on this field.
const (
	TypeSyncCompleted     = "CANVAS_SYNC_COMPLETED"
	TypeCoursesSynced     = "CANVAS_COURSES_SYNCED"
	TypeAssignmentCreated = "ASSIGNMENT_CREATED" // legacy per-record shape
	TypeSyncTest          = "CANVAS_SYNC_TEST"
)

// SyncMessage is the single outbound unit of a sync run: all in-scope courses
// with their assignments, published once per invocation.
type SyncMessage struct {
	EventType  string       `json:"eventType"`
	CognitoSub string       `json:"cognitoSub"`
	SyncedAt   string       `json:"syncedAt"`
	SyncMode   string       `json:"syncMode"`
	Courses    []CourseData `json:"courses"`
}

type CourseData struct {
	CanvasCourseID int64   `json:"canvasCourseId"`
	CourseName     string  `json:"courseName"`
	CourseCode     string  `json:"courseCode"`
	WorkflowState  string  `json:"workflowState"`
	StartAt        *string `json:"startAt"`
	EndAt          *string `json:"endAt"`

	// Omitted entirely in courses-only mode.
	Assignments []AssignmentData `json:"assignments,omitempty"`
}

type AssignmentData struct {
	CanvasAssignmentID int64    `json:"canvasAssignmentId"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	DueAt              *string  `json:"dueAt"`
	CreatedAt          *string  `json:"createdAt"`
	UpdatedAt          *string  `json:"updatedAt"`
	PointsPossible     *float64 `json:"pointsPossible"`
	SubmissionTypes    string   `json:"submissionTypes"`
	HTMLURL            string   `json:"htmlUrl"`
}

// AssignmentEvent is the legacy per-record shape, one message per assignment.
// Still consumed by the course-service listener next to the batched shape.
type AssignmentEvent struct {
	EventType          string   `json:"eventType"`
	CognitoSub         string   `json:"cognitoSub"`
	SourceID           string   `json:"sourceId"`
	CanvasCourseID     int64    `json:"canvasCourseId"`
	CanvasAssignmentID int64    `json:"canvasAssignmentId"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	DueAt              *string  `json:"dueAt"`
	PointsPossible     *float64 `json:"pointsPossible"`
	SubmissionTypes    string   `json:"submissionTypes"`
	HTMLURL            string   `json:"htmlUrl"`
}

// TestReport is published to the verification queue when a trigger carries
// the testMode sentinel. No Canvas or collaborator calls are made.
type TestReport struct {
	EventType  string `json:"eventType"`
	TestMode   string `json:"testMode"`
	CognitoSub string `json:"cognitoSub,omitempty"`
	SyncedAt   string `json:"syncedAt"`
}

// OffloadedMessage replaces a message body that exceeds the queue provider's
// size limit. The payload itself is parked in S3 (claim-check); eventType is
// preserved so consumers can still dispatch on it.
type OffloadedMessage struct {
	EventType  string     `json:"eventType"`
	CognitoSub string     `json:"cognitoSub,omitempty"`
	PayloadRef PayloadRef `json:"payloadRef"`
}

type PayloadRef struct {
	Bucket          string `json:"bucket"`
	Key             string `json:"key"`
	ContentEncoding string `json:"contentEncoding"` // "br"
}

// AssignmentSourceID derives the idempotency key downstream consumers use to
// upsert instead of duplicating. Stable across runs for the same
// (assignment, user) pair.
func AssignmentSourceID(canvasAssignmentID int64, cognitoSub string) string {
	return fmt.Sprintf("canvas-assignment-%d-%s", canvasAssignmentID, cognitoSub)
}
