package dsl

import "github.com/aretw0/rowflow/pkg/domain"

// VariableBuilder provides a fluent API for configuring a variable.
type VariableBuilder struct {
	variable domain.Variable
	builder  *Builder
}

// Text marks the variable as free text (the default).
func (v *VariableBuilder) Text() *VariableBuilder {
	v.variable.Type = domain.TypeText
	return v
}

// Type sets an arbitrary type. Unknown types validate as free text.
func (v *VariableBuilder) Type(t domain.VariableType) *VariableBuilder {
	v.variable.Type = t
	return v
}

// Options marks the variable as an options question with an (initially empty) option set.
func (v *VariableBuilder) Options() *VariableBuilder {
	v.variable.Type = domain.TypeOptions
	if v.variable.Options == nil {
		v.variable.Options = make(map[string]domain.Option)
	}
	return v
}

// Option adds an accepted value. A non-empty skip jumps to that variable when chosen.
func (v *VariableBuilder) Option(value string, skip string) *VariableBuilder {
	v.Options()
	v.variable.Options[value] = domain.Option{Skip: skip}
	return v
}

// Numeric marks the variable as numeric.
func (v *VariableBuilder) Numeric() *VariableBuilder {
	v.variable.Type = domain.TypeNumeric
	return v
}

// Min sets the inclusive lower bound.
func (v *VariableBuilder) Min(min float64) *VariableBuilder {
	v.variable.Min = &min
	return v
}

// Max sets the inclusive upper bound.
func (v *VariableBuilder) Max(max float64) *VariableBuilder {
	v.variable.Max = &max
	return v
}

// Range sets both inclusive bounds.
func (v *VariableBuilder) Range(min, max float64) *VariableBuilder {
	return v.Min(min).Max(max)
}

// Filter marks the variable as a filter gating the following block.
func (v *VariableBuilder) Filter() *VariableBuilder {
	v.variable.Type = domain.TypeFilter
	return v
}

// Optional lets the flow continue when the variable is empty.
func (v *VariableBuilder) Optional() *VariableBuilder {
	v.variable.Optional = true
	return v
}

// Skip sets the unconditional skip target.
func (v *VariableBuilder) Skip(target string) *VariableBuilder {
	v.variable.UnconditionalSkip = target
	return v
}

// NoAnswerSkip sets the skip target used for "no answer" sentinel values.
func (v *VariableBuilder) NoAnswerSkip(target string) *VariableBuilder {
	v.variable.NoAnswerSkip = target
	return v
}

// DependsOn makes the variable a subordinate field of another one.
func (v *VariableBuilder) DependsOn(variable string, value any) *VariableBuilder {
	v.variable.DependentOn = variable
	v.variable.DependentValue = value
	return v
}

// Computed marks the variable as derived.
func (v *VariableBuilder) Computed() *VariableBuilder {
	v.variable.Computed = true
	return v
}

// EnabledBy references a registered enabling function.
func (v *VariableBuilder) EnabledBy(name string) *VariableBuilder {
	v.variable.Enabling = domain.EnableBy(name)
	return v
}

// EnabledWhen attaches an inline enabling function.
func (v *VariableBuilder) EnabledWhen(fn domain.EnablingFunc) *VariableBuilder {
	v.variable.Enabling = domain.EnableWith(fn)
	return v
}

// FreeEntry allows a value while the variable is out of the flow.
func (v *VariableBuilder) FreeEntry() *VariableBuilder {
	v.variable.FreeEntry = true
	return v
}

// AutoFillBy references a registered value function.
func (v *VariableBuilder) AutoFillBy(name string) *VariableBuilder {
	v.variable.AutoFill = domain.FillBy(name)
	return v
}

// AutoFillWith attaches an inline value function.
func (v *VariableBuilder) AutoFillWith(fn domain.ValueFunc) *VariableBuilder {
	v.variable.AutoFill = domain.FillWith(fn)
	return v
}

// Add starts the next variable, allowing a single chained expression.
func (v *VariableBuilder) Add(name string) *VariableBuilder {
	return v.builder.Add(name)
}

// Build returns the underlying domain.Variable.
// This is primarily used by the Builder, but exposed for advanced usage.
func (v *VariableBuilder) Build() domain.Variable {
	def := v.variable
	if v.variable.Options != nil {
		def.Options = make(map[string]domain.Option, len(v.variable.Options))
		for k, o := range v.variable.Options {
			def.Options[k] = o
		}
	}
	return def
}
