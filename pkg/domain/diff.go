package domain

import (
	"reflect"
)

// ResultDiff represents the changes between two validations of the same row.
// It is designed to be serialized to JSON for partial updates on a data-entry client.
type ResultDiff struct {
	Summary      *Summary `json:"summary,omitempty"`
	Current      *string  `json:"current,omitempty"`
	FirstFailure *string  `json:"first_failure,omitempty"`

	// Feedback contains only the variables whose feedback changed.
	Feedback map[string]Feedback `json:"feedback,omitempty"`

	// AutoFilled contains changed or added suggestions.
	// Suggestions that disappeared are present with a nil value.
	AutoFilled map[string]any `json:"auto_filled,omitempty"`
}

// Diff calculates the difference between an earlier and a later result.
// If oldResult is nil, the diff describes the entire newResult (initial load).
// It returns nil when nothing changed.
func Diff(oldResult, newResult *Result) *ResultDiff {
	if newResult == nil {
		return nil
	}

	diff := &ResultDiff{}

	if oldResult == nil || oldResult.Summary != newResult.Summary {
		diff.Summary = &newResult.Summary
	}
	if oldResult == nil || oldResult.Current != newResult.Current {
		diff.Current = &newResult.Current
	}
	if oldResult == nil || oldResult.FirstFailure != newResult.FirstFailure {
		diff.FirstFailure = &newResult.FirstFailure
	}

	diff.Feedback = diffFeedback(oldResult, newResult)
	diff.AutoFilled = diffAutoFilled(oldResult, newResult)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFeedback(old *Result, new *Result) map[string]Feedback {
	delta := make(map[string]Feedback)
	for _, name := range new.Order {
		fb := feedbackOf(new, name)
		if old == nil {
			delta[name] = fb
			continue
		}
		if prev := feedbackOf(old, name); prev != fb {
			delta[name] = fb
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// feedbackOf rebuilds a Feedback from the legacy maps when the detailed map was not filled.
func feedbackOf(r *Result, name string) Feedback {
	if fb, ok := r.Feedback[name]; ok {
		return fb
	}
	return Feedback{State: r.LegacyStates[name], NextVariable: r.LegacyNext[name]}
}

func diffAutoFilled(old *Result, new *Result) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.AutoFilled {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.AutoFilled {
			if oldVal, exists := old.AutoFilled[k]; !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.AutoFilled {
			if _, exists := new.AutoFilled[k]; !exists {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ResultDiff) IsEmpty() bool {
	return d.Summary == nil &&
		d.Current == nil &&
		d.FirstFailure == nil &&
		len(d.Feedback) == 0 &&
		len(d.AutoFilled) == 0
}
