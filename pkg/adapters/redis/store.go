package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/goccy/go-json"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "rowflow:"

// Store implements ports.ResultStore on Redis.
// Results are stored as JSON strings; a sorted set indexes the tracked rows.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires stored results after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix namespaces every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New connects to the Redis server at addr.
func New(addr string, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

func (s *Store) key(rowID string) string {
	return s.prefix + "result:" + rowID
}

func (s *Store) indexKey() string {
	return s.prefix + "rows"
}

// Save persists the result, replacing any previous one.
func (s *Store) Save(ctx context.Context, rowID string, result *domain.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(rowID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{
			Score:  float64(time.Now().Unix()),
			Member: rowID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error saving result: %w", err)
	}
	return nil
}

// Load retrieves the result for a row.
func (s *Store) Load(ctx context.Context, rowID string) (*domain.Result, error) {
	data, err := s.client.Get(ctx, s.key(rowID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error loading result: %w", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// Delete removes the result and its index entry.
func (s *Store) Delete(ctx context.Context, rowID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(rowID))
		pipe.ZRem(ctx, s.indexKey(), rowID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error deleting result: %w", err)
	}
	return nil
}

// List returns the tracked rows. Index entries older than the TTL are pruned first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		cutoff := time.Now().Add(-s.ttl).Unix()
		max := "(" + strconv.FormatInt(cutoff, 10)
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", max).Err(); err != nil {
			return nil, fmt.Errorf("redis error pruning index: %w", err)
		}
	}

	rows, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing rows: %w", err)
	}
	return rows, nil
}
