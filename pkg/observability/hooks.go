package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/rowflow/pkg/domain"
)

// LogHooks writes every lifecycle event to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnVariable: func(ctx context.Context, e *domain.VariableEvent) {
			logger.DebugContext(ctx, "variable_classified",
				"schema", e.Schema,
				"variable", e.Variable,
				"state", e.Feedback.State,
				"next", e.Feedback.NextVariable,
			)
		},
		OnValidated: func(ctx context.Context, e *domain.ValidationEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "row_rejected", "schema", e.Schema, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "row_validated",
				"schema", e.Schema,
				"summary", e.Summary,
				"current", e.Current,
				"duration", e.Duration,
			)
		},
	}
}

// Combine fans each event out to all hook sets, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnVariable: func(ctx context.Context, e *domain.VariableEvent) {
			for _, h := range sets {
				if h.OnVariable != nil {
					h.OnVariable(ctx, e)
				}
			}
		},
		OnValidated: func(ctx context.Context, e *domain.ValidationEvent) {
			for _, h := range sets {
				if h.OnValidated != nil {
					h.OnValidated(ctx, e)
				}
			}
		},
	}
}
