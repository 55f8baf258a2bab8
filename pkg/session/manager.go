package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/rowflow/internal/logging"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a row.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// ValidateFunc produces the new result of a tracked row.
type ValidateFunc func(ctx context.Context) (*domain.Result, error)

// Manager tracks rows across validations: it serializes work on the same row,
// persists the latest result and reports what changed since the previous one.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ResultStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given result store.
func NewManager(store ports.ResultStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(rowID) after unlocking.
func (m *Manager) acquire(rowID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[rowID]
	if !exists {
		entry = &lockEntry{}
		m.locks[rowID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(rowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[rowID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, rowID)
	}
}

// Track validates a row under its lock, stores the new result and returns it
// together with the changes against the previously stored one.
// The diff is nil when nothing changed; for an untracked row it describes the whole result.
func (m *Manager) Track(ctx context.Context, rowID string, validate ValidateFunc) (*domain.Result, *domain.ResultDiff, error) {
	var (
		result *domain.Result
		diff   *domain.ResultDiff
	)
	err := m.WithLock(ctx, rowID, func(ctx context.Context) error {
		previous, err := m.store.Load(ctx, rowID)
		if err != nil && !errors.Is(err, domain.ErrResultNotFound) {
			return fmt.Errorf("failed to load previous result: %w", err)
		}

		result, err = validate(ctx)
		if err != nil {
			return err
		}

		if err := m.store.Save(ctx, rowID, result); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		diff = domain.Diff(previous, result)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.logger.Debug("row tracked", "row_id", rowID, "summary", result.Summary, "changed", diff != nil)
	return result, diff, nil
}

// Load retrieves the latest result of a row.
func (m *Manager) Load(ctx context.Context, rowID string) (*domain.Result, error) {
	var result *domain.Result
	err := m.WithLock(ctx, rowID, func(ctx context.Context) error {
		var err error
		result, err = m.store.Load(ctx, rowID)
		return err
	})
	return result, err
}

// Delete stops tracking a row.
func (m *Manager) Delete(ctx context.Context, rowID string) error {
	return m.WithLock(ctx, rowID, func(ctx context.Context) error {
		return m.store.Delete(ctx, rowID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// WithLock executes a function while holding the lock for the row.
func (m *Manager) WithLock(ctx context.Context, rowID string, fn func(context.Context) error) error {
	entry := m.acquire(rowID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(rowID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, rowID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"row_id", rowID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
