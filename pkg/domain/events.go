package domain

import (
	"context"
	"time"
)

// VariableEvent is emitted once per classified variable.
type VariableEvent struct {
	Schema   string   `json:"schema,omitempty"`
	Variable string   `json:"variable"`
	Feedback Feedback `json:"feedback"`
}

// ValidationEvent is emitted when a row has been fully evaluated.
type ValidationEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Schema    string        `json:"schema,omitempty"`
	Summary   Summary       `json:"summary"`
	Current   string        `json:"current,omitempty"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously inside Validate and must not retain the row.
type LifecycleHooks struct {
	OnVariable  func(context.Context, *VariableEvent)
	OnValidated func(context.Context, *ValidationEvent)
}
