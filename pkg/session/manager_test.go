package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/rowflow/pkg/adapters/memory"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/ports"
	"github.com/aretw0/rowflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func result(summary domain.Summary, current string, states map[string]domain.State) *domain.Result {
	res := &domain.Result{Summary: summary, Current: current, Feedback: map[string]domain.Feedback{}}
	for _, name := range []string{"v1", "v2"} {
		res.Order = append(res.Order, name)
		res.Feedback[name] = domain.Feedback{State: states[name]}
	}
	return res
}

func TestManager_TrackReportsChanges(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	first := result(domain.SummaryEmpty, "v1", map[string]domain.State{"v1": domain.StateActual, "v2": domain.StateNotYet})
	second := result(domain.SummaryIncomplete, "v2", map[string]domain.State{"v1": domain.StateValid, "v2": domain.StateActual})

	res, diff, err := mgr.Track(ctx, "row", func(context.Context) (*domain.Result, error) { return first, nil })
	require.NoError(t, err)
	assert.Equal(t, first, res)
	require.NotNil(t, diff)
	assert.Len(t, diff.Feedback, 2)

	_, diff, err = mgr.Track(ctx, "row", func(context.Context) (*domain.Result, error) { return first, nil })
	require.NoError(t, err)
	assert.Nil(t, diff)

	_, diff, err = mgr.Track(ctx, "row", func(context.Context) (*domain.Result, error) { return second, nil })
	require.NoError(t, err)
	require.NotNil(t, diff)
	require.NotNil(t, diff.Summary)
	assert.Equal(t, domain.SummaryIncomplete, *diff.Summary)
	assert.Equal(t, "v2", *diff.Current)
	assert.Nil(t, diff.FirstFailure)

	stored, err := mgr.Load(ctx, "row")
	require.NoError(t, err)
	assert.Equal(t, "v2", stored.Current)
}

func TestManager_TrackValidationError(t *testing.T) {
	store := memory.NewStore()
	mgr := session.NewManager(store)
	boom := errors.New("boom")

	_, _, err := mgr.Track(context.Background(), "row", func(context.Context) (*domain.Result, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Load(context.Background(), "row")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

// slowStore simulates latency to provoke race conditions if locking is missing.
type slowStore struct {
	mu    sync.Mutex
	saves int
	data  map[string]*domain.Result
}

func (s *slowStore) Save(ctx context.Context, rowID string, res *domain.Result) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.Result)
	}
	s.saves++
	s.data[rowID] = res
	return nil
}

func (s *slowStore) Load(ctx context.Context, rowID string) (*domain.Result, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.data[rowID]; ok {
		return res, nil
	}
	return nil, domain.ErrResultNotFound
}

func (s *slowStore) Delete(ctx context.Context, rowID string) error { return nil }
func (s *slowStore) List(ctx context.Context) ([]string, error)     { return nil, nil }

func TestManager_TrackSerializesRow(t *testing.T) {
	store := &slowStore{}
	mgr := session.NewManager(store)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := mgr.Track(ctx, "shared", func(context.Context) (*domain.Result, error) {
				mu.Lock()
				active++
				if active > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return &domain.Result{Summary: domain.SummaryOK}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Equal(t, 10, store.saves)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(ctx, key, ttl)
	if fn := args.Get(0); fn != nil {
		return fn.(ports.UnlockFunc), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestManager_DistributedLock(t *testing.T) {
	released := false
	unlock := ports.UnlockFunc(func(context.Context) error {
		released = true
		return nil
	})

	locker := &mockLocker{}
	locker.On("Lock", mock.Anything, "row", 5*time.Second).Return(unlock, nil).Once()

	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	_, _, err := mgr.Track(context.Background(), "row", func(context.Context) (*domain.Result, error) {
		return &domain.Result{Summary: domain.SummaryOK}, nil
	})
	require.NoError(t, err)
	assert.True(t, released)
	locker.AssertExpectations(t)

	failing := &mockLocker{}
	failing.On("Lock", mock.Anything, "row", session.DefaultLockTTL).Return(nil, errors.New("redis down"))

	mgr = session.NewManager(memory.NewStore(), session.WithLocker(failing))
	_, _, err = mgr.Track(context.Background(), "row", func(context.Context) (*domain.Result, error) {
		t.Fatal("validate must not run without the lock")
		return nil, nil
	})
	assert.Error(t, err)
}
