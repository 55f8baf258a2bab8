package domain

import (
	"maps"
	"slices"
)

// Options tune a single validation call.
type Options struct {
	// AutoFill computes derived defaults for empty variables reached by the flow.
	AutoFill bool `json:"auto_fill,omitempty"`

	// MultiStateOutput selects the output shape:
	// nil fills both the detailed feedback and the flat legacy maps,
	// true fills only the detailed feedback, false only the legacy maps.
	MultiStateOutput *bool `json:"multi_state_output,omitempty"`
}

// OutputMode is the resolved form of Options.MultiStateOutput.
type OutputMode int

const (
	OutputBoth OutputMode = iota
	OutputDetailed
	OutputLegacy
)

// Mode resolves the requested output shape.
func (o Options) Mode() OutputMode {
	switch {
	case o.MultiStateOutput == nil:
		return OutputBoth
	case *o.MultiStateOutput:
		return OutputDetailed
	default:
		return OutputLegacy
	}
}

// Feedback is the classification of one variable.
type Feedback struct {
	State State `json:"state"`

	// NextVariable is the variable that follows in the effective flow ("" = none).
	NextVariable string `json:"next_variable,omitempty"`

	Disabled   bool     `json:"disabled"`
	NotEnabled bool     `json:"not_enabled"`
	HasValue   bool     `json:"has_value"`
	HasProblem bool     `json:"has_problem"`
	Pending    Tristate `json:"pending"`
}

// FeedbackSummary folds the feedback of every variable of the row.
type FeedbackSummary struct {
	State      State    `json:"state"`
	HasValue   bool     `json:"has_value"`
	HasProblem bool     `json:"has_problem"`
	Pending    Tristate `json:"pending"`
}

// Result is the outcome of validating a row.
type Result struct {
	Summary         Summary             `json:"summary"`
	FeedbackSummary *FeedbackSummary    `json:"feedback_summary,omitempty"`
	Feedback        map[string]Feedback `json:"feedback,omitempty"`

	// Flat maps kept for consumers of the legacy output shape.
	LegacyStates map[string]State  `json:"states,omitempty"`
	LegacyNext   map[string]string `json:"next,omitempty"`

	// Current is the variable the flow is asking for ("" = none).
	Current string `json:"current,omitempty"`
	// FirstEmpty is the earliest variable reached by the flow with no value.
	FirstEmpty string `json:"first_empty,omitempty"`
	// FirstFailure is the earliest variable with a problem.
	FirstFailure string `json:"first_failure,omitempty"`

	// AutoFilled holds derived defaults, only when requested.
	AutoFilled map[string]any `json:"auto_filled,omitempty"`

	// Order lists the variables in flow order.
	Order []string `json:"order"`
}

// StateOf returns the state of a variable from whichever representation was filled.
func (r *Result) StateOf(name string) (State, bool) {
	if fb, ok := r.Feedback[name]; ok {
		return fb.State, true
	}
	s, ok := r.LegacyStates[name]
	return s, ok
}

// NextOf returns the next variable from whichever representation was filled.
func (r *Result) NextOf(name string) string {
	if fb, ok := r.Feedback[name]; ok {
		return fb.NextVariable
	}
	return r.LegacyNext[name]
}

// Clone returns a copy that shares no maps or slices with r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.FeedbackSummary != nil {
		sum := *r.FeedbackSummary
		c.FeedbackSummary = &sum
	}
	c.Feedback = maps.Clone(r.Feedback)
	c.LegacyStates = maps.Clone(r.LegacyStates)
	c.LegacyNext = maps.Clone(r.LegacyNext)
	c.AutoFilled = maps.Clone(r.AutoFilled)
	c.Order = slices.Clone(r.Order)
	return &c
}
