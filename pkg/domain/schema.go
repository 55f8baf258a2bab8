package domain

import (
	"fmt"
	"iter"
)

// Schema is an ordered set of variable definitions.
// The insertion order is significant: it defines the default linear flow.
type Schema struct {
	// Name is a descriptive label (used in logs and reports).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// EndMarker is a skip target meaning "terminate the flow here".
	EndMarker string `json:"end_marker,omitempty" yaml:"end_marker,omitempty"`

	order []string
	vars  map[string]*Variable
}

// NewSchema creates an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{
		Name: name,
		vars: make(map[string]*Variable),
	}
}

// Add appends a variable at the end of the flow.
func (s *Schema) Add(name string, v Variable) error {
	if name == "" {
		return fmt.Errorf("variable name is required")
	}
	if s.vars == nil {
		s.vars = make(map[string]*Variable)
	}
	if _, exists := s.vars[name]; exists {
		return fmt.Errorf("variable %q declared twice", name)
	}
	if name == s.EndMarker {
		return fmt.Errorf("variable %q collides with the end marker", name)
	}
	def := v
	s.vars[name] = &def
	s.order = append(s.order, name)
	return nil
}

// Get returns the definition of a variable.
func (s *Schema) Get(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Has reports whether the schema declares the variable.
func (s *Schema) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Len returns the number of declared variables.
func (s *Schema) Len() int {
	return len(s.order)
}

// Names returns a copy of the variable names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// All iterates the variables in declaration order.
func (s *Schema) All() iter.Seq2[string, *Variable] {
	return func(yield func(string, *Variable) bool) {
		for _, name := range s.order {
			if !yield(name, s.vars[name]) {
				return
			}
		}
	}
}
