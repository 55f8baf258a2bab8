package ports

import (
	"context"

	"github.com/aretw0/rowflow/pkg/domain"
)

// ResultStore persists the latest validation result of each tracked row.
// Keeping the previous result lets callers receive only what changed
// while a row is being typed in.
type ResultStore interface {
	// Save persists the result for a given row ID, replacing any previous one.
	Save(ctx context.Context, rowID string, result *domain.Result) error

	// Load retrieves the result for a given row ID.
	// Returns domain.ErrResultNotFound if nothing was saved.
	Load(ctx context.Context, rowID string) (*domain.Result, error)

	// Delete removes the result for a given row ID.
	Delete(ctx context.Context, rowID string) error

	// List returns the tracked row IDs.
	List(ctx context.Context) ([]string, error)
}
