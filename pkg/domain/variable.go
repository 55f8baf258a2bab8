package domain

// VariableType selects how a recorded value is checked.
// Unknown type strings are treated as free text.
type VariableType string

const (
	// TypeOptions values must be a key of the Options map.
	TypeOptions VariableType = "options"
	// TypeNumeric values are converted to numbers and checked against Min/Max.
	TypeNumeric VariableType = "numeric"
	// TypeText values are always valid.
	TypeText VariableType = "text"
	// TypeFilter variables gate a block of the flow through their enabling function.
	TypeFilter VariableType = "filter"
)

// Option is a possible answer of an options variable.
type Option struct {
	// Skip is the variable (or end marker) to jump to when this option is chosen.
	Skip string `json:"skip,omitempty" yaml:"skip,omitempty" mapstructure:"skip"`
}

// EnablingFunc decides whether a variable is part of the flow for the given row.
type EnablingFunc func(row Row) bool

// ValueFunc computes a derived value for a variable. A nil return means no value.
type ValueFunc func(row Row) any

// EnablingRef points at an enabling predicate, either by registry name or inline.
// Func takes precedence over Name.
type EnablingRef struct {
	Name string       `json:"name,omitempty"`
	Func EnablingFunc `json:"-"`
}

// EnableBy references a registered enabling function.
func EnableBy(name string) *EnablingRef {
	return &EnablingRef{Name: name}
}

// EnableWith wraps an inline enabling function.
func EnableWith(fn EnablingFunc) *EnablingRef {
	return &EnablingRef{Func: fn}
}

// ValueRef points at a value computation, either by registry name or inline.
// Func takes precedence over Name.
type ValueRef struct {
	Name string    `json:"name,omitempty"`
	Func ValueFunc `json:"-"`
}

// FillBy references a registered value function.
func FillBy(name string) *ValueRef {
	return &ValueRef{Name: name}
}

// FillWith wraps an inline value function.
func FillWith(fn ValueFunc) *ValueRef {
	return &ValueRef{Func: fn}
}

// Variable describes one question of the schema.
// Only Type is required.
type Variable struct {
	Type VariableType `json:"type"`

	// Optional variables do not block the flow when empty.
	Optional bool `json:"optional,omitempty"`

	// UnconditionalSkip is applied after the variable resolves when no more specific skip applies.
	UnconditionalSkip string `json:"unconditional_skip,omitempty"`

	// Options maps the string form of each accepted value to its Option.
	Options map[string]Option `json:"options,omitempty"`

	// Min and Max are inclusive numeric bounds (nil = unbounded).
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// DependentOn and DependentValue make this a subordinate ("specify") field:
	// it is only in the flow while DependentOn holds DependentValue.
	DependentOn    string `json:"dependent_on,omitempty"`
	DependentValue any    `json:"dependent_value,omitempty"`

	// NoAnswerSkip is applied when the value is a "doesn't know / no answer" sentinel.
	NoAnswerSkip string `json:"no_answer_skip,omitempty"`

	// Computed variables are never entered by the user.
	Computed bool `json:"computed,omitempty"`

	// Enabling disables the variable when it evaluates false. Nil means always enabled.
	Enabling *EnablingRef `json:"enabling,omitempty"`

	// FreeEntry allows a value while the variable is skipped or disabled.
	FreeEntry bool `json:"free_entry,omitempty"`

	// AutoFill computes a default for the variable while it is pending.
	AutoFill *ValueRef `json:"auto_fill,omitempty"`
}

// IsSubordinate reports whether the variable depends on another one.
func (v *Variable) IsSubordinate() bool {
	return v.DependentOn != ""
}
