package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// RedisStore implements Store on a Redis sorted set per batch, for
// deployments where several replicas must see the same rankings. Batches
// remain ephemeral: every key carries a TTL.
//
// Tie ordering differs slightly from the treap store: Redis breaks equal
// scores by member lexicographic order in ascending rank, which reverses
// under ZREVRANGE. Probabilities rarely collide at 12 decimal places, so
// this is accepted.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key prefix for batch sorted sets.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithBatchTTL sets the expiry applied to batch keys on every write.
func WithBatchTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore creates a ranking store on the given Redis address and
// verifies connectivity.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "leadscore:batch:",
		ttl:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: ping %s: %v", ErrStore, addr, err)
	}
	return s, nil
}

func (s *RedisStore) key(batchID string) string {
	return s.prefix + batchID
}

// Record stores a lead's probability, replacing any previous value.
func (s *RedisStore) Record(ctx context.Context, batchID, customerID string, probability float64) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	key := s.key(batchID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: probability, Member: customerID})
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: record %s/%s: %v", ErrStore, batchID, customerID, err)
	}

	metrics.RecordRankingUpdate()
	return nil
}

// Rank returns the current rank and probability for a lead.
func (s *RedisStore) Rank(ctx context.Context, batchID, customerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	key := s.key(batchID)

	rank, err := s.client.ZRevRank(ctx, key, customerID).Result()
	if err == redis.Nil {
		exists, eerr := s.client.Exists(ctx, key).Result()
		if eerr != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrStore, eerr)
		}
		if exists == 0 {
			return Entry{}, ErrBatchUnknown
		}
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	prob, err := s.client.ZScore(ctx, key, customerID).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return Entry{
		Rank:        int(rank) + 1,
		CustomerID:  customerID,
		Probability: prob,
	}, nil
}

// TopN returns the first n entries of a batch in ranking order.
func (s *RedisStore) TopN(ctx context.Context, batchID string, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	return s.revRange(ctx, batchID, int64(n)-1)
}

// All returns every entry of a batch in ranking order.
func (s *RedisStore) All(ctx context.Context, batchID string) ([]Entry, error) {
	return s.revRange(ctx, batchID, -1)
}

func (s *RedisStore) revRange(ctx context.Context, batchID string, stop int64) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	key := s.key(batchID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if exists == 0 {
		return nil, ErrBatchUnknown
	}

	zs, err := s.client.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	entries := make([]Entry, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		entries[i] = Entry{
			Rank:        i + 1,
			CustomerID:  id,
			Probability: z.Score,
		}
	}
	return entries, nil
}

// CountAbove returns how many leads have probability >= threshold.
func (s *RedisStore) CountAbove(ctx context.Context, batchID string, threshold float64) (int, error) {
	key := s.key(batchID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if exists == 0 {
		return 0, ErrBatchUnknown
	}

	n, err := s.client.ZCount(ctx, key, fmt.Sprintf("%.12f", threshold), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return int(n), nil
}

// Count returns the number of scored leads in a batch.
func (s *RedisStore) Count(ctx context.Context, batchID string) int {
	n, err := s.client.ZCard(ctx, s.key(batchID)).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// DropBatch removes a batch's ranking state.
func (s *RedisStore) DropBatch(ctx context.Context, batchID string) error {
	if err := s.client.Del(ctx, s.key(batchID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
