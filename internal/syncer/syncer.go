// Package syncer runs one end-to-end sync: trigger → scope → credential →
// paginated Canvas fetch → normalization → one published event.
package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"canvas-sync/internal/canvas"
	"canvas-sync/internal/config"
	"canvas-sync/internal/event"
	"canvas-sync/internal/mappers"
	"canvas-sync/internal/trigger"
)

type CanvasAPI interface {
	ListCourses(ctx context.Context, token string) ([]canvas.Course, error)
	ListAssignments(ctx context.Context, token string, canvasCourseID int64) ([]canvas.Assignment, error)
}

type CredentialSource interface {
	GetCanvasToken(ctx context.Context, cognitoSub string) (string, error)
}

type EnrollmentSource interface {
	EnabledCanvasCourseIDs(ctx context.Context, cognitoSub string) (map[int64]bool, error)
}

type Sink interface {
	Publish(ctx context.Context, logicalQueue string, msg any) error
	PublishBatch(ctx context.Context, logicalQueue string, msgs []any) error
}

type Summary struct {
	CoursesCount     int    `json:"coursesCount"`
	AssignmentsCount int    `json:"assignmentsCount"`
	SyncedAt         string `json:"syncedAt"`
}

type Orchestrator struct {
	Canvas      CanvasAPI
	Credentials CredentialSource
	Enrollments EnrollmentSource
	Sink        Sink
	Strategy    config.PublishStrategy
	Log         *zap.Logger

	// Now is fixed in tests; defaults to time.Now.
	Now func() time.Time
}

func (o *Orchestrator) now() string {
	n := time.Now
	if o.Now != nil {
		n = o.Now
	}
	return n().UTC().Format("2006-01-02T15:04:05")
}

// Run executes one sync invocation. It publishes at most once: a single
// batched message after full assembly, or nothing at all when the assembled
// course list is empty. Any error aborts the run with no partial publish.
func (o *Orchestrator) Run(ctx context.Context, trg trigger.Trigger) (Summary, error) {
	syncedAt := o.now()

	if trg.TestMode != "" {
		return o.runTest(ctx, trg, syncedAt)
	}

	// Selective scope applies to assignments mode only; course discovery
	// always covers the full external enrollment.
	var scope map[int64]bool
	if trg.Mode == trigger.ModeAssignments {
		var err error
		scope, err = o.Enrollments.EnabledCanvasCourseIDs(ctx, trg.CognitoSub)
		if err != nil {
			return Summary{}, err
		}
		if len(scope) == 0 {
			o.Log.Info("no sync-enabled courses, skipping run",
				zap.String("cognitoSub", trg.CognitoSub))
			return Summary{SyncedAt: syncedAt}, nil
		}
	}

	token, err := o.Credentials.GetCanvasToken(ctx, trg.CognitoSub)
	if err != nil {
		return Summary{}, err
	}

	rawCourses, err := o.Canvas.ListCourses(ctx, token)
	if err != nil {
		return Summary{}, err
	}

	courses := make([]event.CourseData, 0, len(rawCourses))
	assignmentsTotal := 0

	for _, rc := range rawCourses {
		if trg.Mode == trigger.ModeAssignments && !scope[rc.ID] {
			// Out of scope: dropped entirely, assignments never fetched.
			continue
		}

		cd, err := mappers.NormalizeCourse(rc)
		if err != nil {
			return Summary{}, err
		}

		if trg.Mode == trigger.ModeAssignments {
			rawAssignments, err := o.Canvas.ListAssignments(ctx, token, rc.ID)
			if err != nil {
				return Summary{}, err
			}
			cd.Assignments = make([]event.AssignmentData, 0, len(rawAssignments))
			for _, ra := range rawAssignments {
				ad, err := mappers.NormalizeAssignment(ra)
				if err != nil {
					return Summary{}, err
				}
				cd.Assignments = append(cd.Assignments, ad)
			}
			assignmentsTotal += len(cd.Assignments)
		}

		courses = append(courses, cd)
	}

	// The no-publish rule is about the final assembled payload: a scope that
	// matched nothing in Canvas ends the run the same way as an empty scope.
	if len(courses) == 0 {
		o.Log.Info("assembled course list is empty, nothing to publish",
			zap.String("cognitoSub", trg.CognitoSub),
			zap.String("syncMode", string(trg.Mode)))
		return Summary{SyncedAt: syncedAt}, nil
	}

	if err := o.publish(ctx, trg, courses, syncedAt); err != nil {
		return Summary{}, err
	}

	o.Log.Info("sync completed",
		zap.String("cognitoSub", trg.CognitoSub),
		zap.String("syncMode", string(trg.Mode)),
		zap.Int("courses", len(courses)),
		zap.Int("assignments", assignmentsTotal))

	return Summary{
		CoursesCount:     len(courses),
		AssignmentsCount: assignmentsTotal,
		SyncedAt:         syncedAt,
	}, nil
}

func (o *Orchestrator) publish(ctx context.Context, trg trigger.Trigger, courses []event.CourseData, syncedAt string) error {
	// Legacy per-record strategy survives for consumers that still expect
	// one ASSIGNMENT_CREATED message per assignment. Assignments mode only;
	// the record shape has no course-only equivalent.
	if o.Strategy == config.StrategyPerRecord && trg.Mode == trigger.ModeAssignments {
		var msgs []any
		for _, c := range courses {
			for _, a := range c.Assignments {
				msgs = append(msgs, event.AssignmentEvent{
					EventType:          event.TypeAssignmentCreated,
					CognitoSub:         trg.CognitoSub,
					SourceID:           event.AssignmentSourceID(a.CanvasAssignmentID, trg.CognitoSub),
					CanvasCourseID:     c.CanvasCourseID,
					CanvasAssignmentID: a.CanvasAssignmentID,
					Title:              a.Title,
					Description:        a.Description,
					DueAt:              a.DueAt,
					PointsPossible:     a.PointsPossible,
					SubmissionTypes:    a.SubmissionTypes,
					HTMLURL:            a.HTMLURL,
				})
			}
		}
		return o.Sink.PublishBatch(ctx, config.AssignmentEventsQueue, msgs)
	}

	eventType := event.TypeSyncCompleted
	if trg.Mode == trigger.ModeCourses {
		eventType = event.TypeCoursesSynced
	}

	return o.Sink.Publish(ctx, config.CanvasSyncQueue, event.SyncMessage{
		EventType:  eventType,
		CognitoSub: trg.CognitoSub,
		SyncedAt:   syncedAt,
		SyncMode:   string(trg.Mode),
		Courses:    courses,
	})
}

// runTest reports to the fixed verification queue without contacting Canvas
// or any collaborator.
func (o *Orchestrator) runTest(ctx context.Context, trg trigger.Trigger, syncedAt string) (Summary, error) {
	report := event.TestReport{
		EventType:  event.TypeSyncTest,
		TestMode:   trg.TestMode,
		CognitoSub: trg.CognitoSub,
		SyncedAt:   syncedAt,
	}
	if err := o.Sink.Publish(ctx, config.SyncTestReportQueue, report); err != nil {
		return Summary{}, fmt.Errorf("syncer: test report: %w", err)
	}
	return Summary{SyncedAt: syncedAt}, nil
}
