package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/registry"
)

// DefaultNoAnswerValues are the conventional "doesn't know" and "refuses to answer" codes.
var DefaultNoAnswerValues = []any{-9, -1}

// Engine is the single-pass row evaluator.
// It holds only immutable configuration, so one Engine may serve concurrent callers.
type Engine struct {
	resolver registry.Resolver
	noAnswer []any
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithNoAnswerValues replaces the sentinel values meaning "no answer".
func WithNoAnswerValues(values ...any) EngineOption {
	return func(e *Engine) {
		e.noAnswer = append([]any(nil), values...)
	}
}

// NewEngine creates a new engine. A nil resolver knows no callback names.
func NewEngine(resolver registry.Resolver, opts ...EngineOption) *Engine {
	if resolver == nil {
		resolver = registry.Empty{}
	}
	e := &Engine{
		resolver: resolver,
		noAnswer: DefaultNoAnswerValues,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate classifies every variable of the schema for the given row.
// Data problems are reported as states in the Result; the returned error is
// reserved for broken configuration (unknown callbacks, options variables
// without options) and aborts the evaluation.
func (e *Engine) Validate(ctx context.Context, schema *domain.Schema, row domain.Row, opts domain.Options) (*domain.Result, error) {
	start := time.Now()

	res, err := e.validate(ctx, schema, row, opts)
	if err != nil {
		e.logger.Error("row validation aborted", "schema", schemaName(schema), "err", err)
	}

	e.emitValidated(ctx, schema, res, err, time.Since(start))
	return res, err
}

func (e *Engine) validate(ctx context.Context, schema *domain.Schema, row domain.Row, opts domain.Options) (*domain.Result, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}

	cb, err := e.compile(schema, opts)
	if err != nil {
		return nil, err
	}

	s := newScan(e, schema, row, cb, opts)
	for name, v := range schema.All() {
		if err := s.visit(name, v); err != nil {
			return nil, err
		}
	}
	s.finish()

	for _, name := range s.order {
		fb := s.feedback[name]
		e.logger.Debug("variable classified",
			"variable", name,
			"state", fb.State,
			"next", fb.NextVariable,
			"disabled", fb.Disabled)
		e.emitVariable(ctx, schema, name, fb)
	}

	return s.result(opts.Mode()), nil
}

// callbacks holds the resolved callbacks of one evaluation, keyed by variable.
type callbacks struct {
	enabling map[string]domain.EnablingFunc
	values   map[string]domain.ValueFunc
}

// compile resolves every callback reference up front so an unknown name
// fails the evaluation regardless of which branch the data reaches.
// Value functions are only resolved when auto-fill was requested.
func (e *Engine) compile(schema *domain.Schema, opts domain.Options) (*callbacks, error) {
	cb := &callbacks{
		enabling: make(map[string]domain.EnablingFunc),
		values:   make(map[string]domain.ValueFunc),
	}
	for name, v := range schema.All() {
		if v.Enabling != nil {
			fn, err := registry.Enabling(e.resolver, v.Enabling)
			if err != nil {
				return nil, &domain.VariableError{Variable: name, Err: err}
			}
			cb.enabling[name] = fn
		}
		if opts.AutoFill && v.AutoFill != nil {
			fn, err := registry.Value(e.resolver, v.AutoFill)
			if err != nil {
				return nil, &domain.VariableError{Variable: name, Err: err}
			}
			cb.values[name] = fn
		}
	}
	return cb, nil
}

func (e *Engine) emitVariable(ctx context.Context, schema *domain.Schema, name string, fb *domain.Feedback) {
	if e.hooks.OnVariable == nil {
		return
	}
	e.hooks.OnVariable(ctx, &domain.VariableEvent{
		Schema:   schemaName(schema),
		Variable: name,
		Feedback: *fb,
	})
}

func (e *Engine) emitValidated(ctx context.Context, schema *domain.Schema, res *domain.Result, err error, elapsed time.Duration) {
	if e.hooks.OnValidated == nil {
		return
	}
	ev := &domain.ValidationEvent{
		Timestamp: time.Now(),
		Schema:    schemaName(schema),
		Duration:  elapsed,
		Err:       err,
	}
	if res != nil {
		ev.Summary = res.Summary
		ev.Current = res.Current
	}
	e.hooks.OnValidated(ctx, ev)
}

func schemaName(schema *domain.Schema) string {
	if schema == nil {
		return ""
	}
	return schema.Name
}

// cloneRow gives callbacks their own copy so they cannot alter the row being classified.
func cloneRow(row domain.Row) domain.Row {
	if row == nil {
		return domain.Row{}
	}
	return maps.Clone(row)
}
