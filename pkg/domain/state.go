package domain

// State is the classification of a single variable.
type State string

const (
	StateComputed           State = "computed"                    // Derived field, never asked
	StateOmissionOutOfFlow  State = "out_of_flow_due_to_omission" // Answered after an unanswered required variable
	StateSkipped            State = "skipped"                     // Jumped over or disabled, and empty
	StateSkipOutOfFlow      State = "out_of_flow_due_to_skip"     // Has a value where the flow skips it
	StateNotYet             State = "not_yet"                     // After the current variable, still empty
	StateActual             State = "actual"                      // The variable being asked now
	StateOptionalUnanswered State = "optional_unanswered"         // Optional and empty
	StateValid              State = "valid"                       // Answered and accepted
	StateInvalid            State = "invalid"                     // Value is not an accepted option
	StateOutOfRange         State = "out_of_range"                // Numeric value outside Min/Max
	StateOmitted            State = "omitted"                     // Required and skipped over by later answers
)

// IsProblem reports whether the state must be shown to the user as an issue to correct.
func (s State) IsProblem() bool {
	switch s {
	case StateOmissionOutOfFlow, StateSkipOutOfFlow, StateInvalid, StateOutOfRange, StateOmitted:
		return true
	}
	return false
}

// Summary is the overall status of a row.
type Summary string

const (
	SummaryProblems   Summary = "has_problems" // At least one variable has a problem
	SummaryIncomplete Summary = "incomplete"   // Flow stopped at a pending variable after some answers
	SummaryEmpty      Summary = "empty"        // Flow stopped at a pending variable with no real answers
	SummaryOK         Summary = "ok"           // Flow fully resolved
)

// Tristate is a boolean that may be unknown.
type Tristate uint8

const (
	Unknown Tristate = iota
	True
	False
)

// TristateOf converts a bool.
func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Unknown as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null.
func (t *Tristate) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*t = True
	case "false":
		*t = False
	default:
		*t = Unknown
	}
	return nil
}
