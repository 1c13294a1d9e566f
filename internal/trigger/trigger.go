// Package trigger normalizes the heterogeneous invocation payloads this
// function receives: direct invokes, EventBridge envelopes, SQS deliveries
// and the testMode sentinel all reduce to one Trigger.
package trigger

import (
	"encoding/json"
	"fmt"
)

type Mode string

const (
	ModeCourses     Mode = "courses"
	ModeAssignments Mode = "assignments"
)

// Shape identifies which invocation convention matched. Shapes are probed
// in a fixed priority order; the first match wins.
type Shape string

const (
	ShapeTestMode      Shape = "test-mode"
	ShapeQueueEnvelope Shape = "queue-envelope"
	ShapeEventEnvelope Shape = "event-envelope"
	ShapeDirect        Shape = "direct"
)

type Trigger struct {
	CognitoSub string
	Mode       Mode
	TestMode   string // non-empty short-circuits the whole run
	Shape      Shape
}

// MalformedTriggerError means no recognized shape yielded a cognitoSub.
// Re-sending the same payload will fail the same way.
type MalformedTriggerError struct {
	Detail string
}

func (e *MalformedTriggerError) Error() string {
	return fmt.Sprintf("trigger: malformed payload: %s", e.Detail)
}

// InvalidSyncModeError means an explicit syncMode was present but is not
// one of the recognized values.
type InvalidSyncModeError struct {
	Value string
}

func (e *InvalidSyncModeError) Error() string {
	return fmt.Sprintf("trigger: invalid syncMode %q (want %q or %q)", e.Value, ModeCourses, ModeAssignments)
}

// fields is the flat field set every shape eventually reduces to. syncMode
// is read from the same nesting level as cognitoSub.
type fields struct {
	CognitoSub string `json:"cognitoSub"`
	SyncMode   string `json:"syncMode"`
	TestMode   string `json:"testMode"`
}

type envelope struct {
	fields
	Detail  *fields  `json:"detail"`
	Records []record `json:"records"`
}

type record struct {
	Body string `json:"body"`
}

// Normalize extracts the caller identity and sync mode from a raw invocation
// payload, regardless of calling convention.
func Normalize(raw []byte) (Trigger, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Trigger{}, &MalformedTriggerError{Detail: fmt.Sprintf("not a JSON object: %v", err)}
	}

	// testMode sentinel wins over everything else; no identity required.
	if env.TestMode != "" {
		return Trigger{TestMode: env.TestMode, CognitoSub: env.CognitoSub, Mode: ModeAssignments, Shape: ShapeTestMode}, nil
	}

	if len(env.Records) > 0 {
		var body fields
		if err := json.Unmarshal([]byte(env.Records[0].Body), &body); err != nil {
			return Trigger{}, &MalformedTriggerError{Detail: fmt.Sprintf("records[0].body is not JSON: %v", err)}
		}
		return fromFields(body, ShapeQueueEnvelope)
	}

	if env.Detail != nil && env.Detail.CognitoSub != "" {
		return fromFields(*env.Detail, ShapeEventEnvelope)
	}

	if env.CognitoSub != "" {
		return fromFields(env.fields, ShapeDirect)
	}

	return Trigger{}, &MalformedTriggerError{Detail: "no cognitoSub in any recognized shape"}
}

func fromFields(f fields, shape Shape) (Trigger, error) {
	if f.CognitoSub == "" {
		return Trigger{}, &MalformedTriggerError{Detail: fmt.Sprintf("no cognitoSub in %s payload", shape)}
	}

	mode := ModeAssignments
	switch f.SyncMode {
	case "":
		// default
	case string(ModeCourses):
		mode = ModeCourses
	case string(ModeAssignments):
		mode = ModeAssignments
	default:
		return Trigger{}, &InvalidSyncModeError{Value: f.SyncMode}
	}

	return Trigger{CognitoSub: f.CognitoSub, Mode: mode, Shape: shape}, nil
}
