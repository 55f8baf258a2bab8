package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ResultStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the suggested values of
// variables whose names match one of the patterns.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ResultStore) ports.ResultStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, rowID string, result *domain.Result) error {
	// Clone so the caller's result keeps its values.
	cloned := result.Clone()
	for name := range cloned.AutoFilled {
		if m.sensitive(name) {
			cloned.AutoFilled[name] = Mask
		}
	}
	return m.next.Save(ctx, rowID, cloned)
}

func (m *piiMiddleware) sensitive(name string) bool {
	for _, p := range m.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Load(ctx context.Context, rowID string) (*domain.Result, error) {
	return m.next.Load(ctx, rowID)
}

func (m *piiMiddleware) Delete(ctx context.Context, rowID string) error {
	return m.next.Delete(ctx, rowID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
