package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/goccy/go-json"
)

// ErrInvalidRowID is returned for ids that cannot be used as a file name.
var ErrInvalidRowID = errors.New("invalid row id")

// Store implements ports.ResultStore using the local filesystem.
// It stores one JSON file per row in a configured directory.
type Store struct {
	BasePath string
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".rowflow/results".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".rowflow", "results")
	}
	return &Store{BasePath: basePath}
}

func (f *Store) path(rowID string) (string, error) {
	if rowID == "" || rowID != filepath.Base(rowID) || strings.HasPrefix(rowID, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRowID, rowID)
	}
	return filepath.Join(f.BasePath, rowID+".json"), nil
}

// Save persists the result to a JSON file. The file is replaced atomically.
func (f *Store) Save(ctx context.Context, rowID string, result *domain.Result) error {
	filePath, err := f.path(rowID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure result directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	tmp, err := os.CreateTemp(f.BasePath, "."+rowID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to replace result file: %w", err)
	}
	return nil
}

// Load retrieves the result from its JSON file.
func (f *Store) Load(ctx context.Context, rowID string) (*domain.Result, error) {
	filePath, err := f.path(rowID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// Delete removes the result file.
func (f *Store) Delete(ctx context.Context, rowID string) error {
	filePath, err := f.path(rowID)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete result file: %w", err)
	}
	return nil
}

// List returns the tracked row IDs.
func (f *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	rows := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		rows = append(rows, strings.TrimSuffix(name, ".json"))
	}
	return rows, nil
}
