// Package mappers turns raw Canvas API records into the internal event
// schema. All providers of heterogeneous dates and multi-valued fields map
// into one canonical shape here.
package mappers

import (
	"fmt"
	"strings"

	"canvas-sync/internal/canvas"
	"canvas-sync/internal/event"
)

// MalformedRecordError means a raw record is missing its required external
// identifier. Optional fields never cause this; only a missing id does.
type MalformedRecordError struct {
	Kind string // "course" or "assignment"
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("mappers: %s record missing canvas id", e.Kind)
}

func NormalizeCourse(raw canvas.Course) (event.CourseData, error) {
	if raw.ID == 0 {
		return event.CourseData{}, &MalformedRecordError{Kind: "course"}
	}
	return event.CourseData{
		CanvasCourseID: raw.ID,
		CourseName:     raw.Name,
		CourseCode:     raw.CourseCode,
		WorkflowState:  raw.WorkflowState,
		StartAt:        normalizeTimestamp(raw.StartAt),
		EndAt:          normalizeTimestamp(raw.EndAt),
	}, nil
}

func NormalizeAssignment(raw canvas.Assignment) (event.AssignmentData, error) {
	if raw.ID == 0 {
		return event.AssignmentData{}, &MalformedRecordError{Kind: "assignment"}
	}
	return event.AssignmentData{
		CanvasAssignmentID: raw.ID,
		Title:              raw.Name,
		Description:        raw.Description,
		DueAt:              normalizeTimestamp(raw.DueAt),
		CreatedAt:          normalizeTimestamp(raw.CreatedAt),
		UpdatedAt:          normalizeTimestamp(raw.UpdatedAt),
		PointsPossible:     raw.PointsPossible,
		SubmissionTypes:    strings.Join(raw.SubmissionTypes, ","),
		HTMLURL:            raw.HTMLURL,
	}, nil
}

// normalizeTimestamp strips the trailing "Z" UTC marker and any sub-second
// fraction, yielding a local-time-shaped string with second precision:
// "2025-11-15T23:59:00.123Z" -> "2025-11-15T23:59:00". Null stays null,
// never a sentinel string.
func normalizeTimestamp(ts *string) *string {
	if ts == nil {
		return nil
	}
	s := strings.TrimSuffix(strings.TrimSpace(*ts), "Z")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return &s
}
