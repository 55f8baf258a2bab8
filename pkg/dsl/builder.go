package dsl

import (
	"fmt"

	"github.com/aretw0/rowflow/pkg/domain"
)

// Builder manages the schema construction.
type Builder struct {
	name      string
	endMarker string
	order     []string
	vars      map[string]*VariableBuilder
}

// New creates a new schema builder.
func New(name string) *Builder {
	return &Builder{
		name: name,
		vars: make(map[string]*VariableBuilder),
	}
}

// EndMarker declares the skip target that terminates the flow.
func (b *Builder) EndMarker(marker string) *Builder {
	b.endMarker = marker
	return b
}

// Add creates a new variable at the end of the flow.
// If the variable already exists, it returns the existing builder and keeps its position.
func (b *Builder) Add(name string) *VariableBuilder {
	if vb, ok := b.vars[name]; ok {
		return vb
	}
	vb := &VariableBuilder{
		variable: domain.Variable{Type: domain.TypeText},
		builder:  b,
	}
	b.vars[name] = vb
	b.order = append(b.order, name)
	return vb
}

// Build compiles the variables into an ordered schema.
func (b *Builder) Build() (*domain.Schema, error) {
	schema := domain.NewSchema(b.name)
	schema.EndMarker = b.endMarker

	for _, name := range b.order {
		if err := schema.Add(name, b.vars[name].Build()); err != nil {
			return nil, fmt.Errorf("failed to build schema: %w", err)
		}
	}
	return schema, nil
}

// MustBuild is like Build but panics on error. Intended for tests and static schemas.
func (b *Builder) MustBuild() *domain.Schema {
	schema, err := b.Build()
	if err != nil {
		panic(err)
	}
	return schema
}
