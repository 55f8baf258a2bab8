package rowflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/rowflow/internal/compiler"
	"github.com/aretw0/rowflow/internal/runtime"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/registry"
)

// Validator is the high-level entry point for the rowflow library.
// It wraps the internal runtime and provides a simplified API for consumers.
// A Validator is safe for concurrent use once configured.
type Validator struct {
	runtime  *runtime.Engine
	registry *registry.Registry
	resolver registry.Resolver
	parser   *compiler.Parser

	noAnswer []any
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Validator.
type Option func(*Validator)

// WithResolver replaces the built-in registry as the source of named callbacks.
func WithResolver(r registry.Resolver) Option {
	return func(v *Validator) {
		v.resolver = r
	}
}

// WithNoAnswerValues replaces the default "no answer" sentinels (-9 and -1).
func WithNoAnswerValues(values ...any) Option {
	return func(v *Validator) {
		v.noAnswer = values
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(v *Validator) {
		v.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// New initializes a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		registry: registry.NewRegistry(),
		parser:   compiler.NewParser(),
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.resolver == nil {
		v.resolver = v.registry
	}
	if v.logger == nil {
		v.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(v.logger),
		runtime.WithLifecycleHooks(v.hooks),
	}
	if v.noAnswer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithNoAnswerValues(v.noAnswer...))
	}
	v.runtime = runtime.NewEngine(v.resolver, runtimeOpts...)
	return v
}

// RegisterEnabling makes an enabling predicate available to schemas by name.
// It has no effect on lookups when a custom resolver was supplied.
func (v *Validator) RegisterEnabling(name string, fn domain.EnablingFunc) {
	v.registry.RegisterEnabling(name, fn)
}

// RegisterValue makes an auto-fill computation available to schemas by name.
// It has no effect on lookups when a custom resolver was supplied.
func (v *Validator) RegisterValue(name string, fn domain.ValueFunc) {
	v.registry.RegisterValue(name, fn)
}

// Validate classifies every variable of schema for the given row.
// Data problems are reported inside the Result; an error means the schema
// configuration is broken and no Result was produced.
func (v *Validator) Validate(ctx context.Context, schema *domain.Schema, row domain.Row, opts domain.Options) (*domain.Result, error) {
	return v.runtime.Validate(ctx, schema, row, opts)
}

// ParseSchema decodes a YAML or JSON schema document.
func (v *Validator) ParseSchema(data []byte) (*domain.Schema, error) {
	return v.parser.ParseSchema(data)
}

// LoadSchema reads and decodes a schema document from disk.
func (v *Validator) LoadSchema(path string) (*domain.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	schema, err := v.parser.ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

// ParseRow decodes a JSON row.
func (v *Validator) ParseRow(data []byte) (domain.Row, error) {
	return v.parser.ParseRow(data)
}

// ValidateDocuments parses a schema document and a JSON row, then validates them.
func (v *Validator) ValidateDocuments(ctx context.Context, schemaDoc, rowDoc []byte, opts domain.Options) (*domain.Result, error) {
	schema, err := v.ParseSchema(schemaDoc)
	if err != nil {
		return nil, err
	}
	row, err := v.ParseRow(rowDoc)
	if err != nil {
		return nil, err
	}
	return v.Validate(ctx, schema, row, opts)
}
