package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/tozd/go/errors"
)

const keyPrefix = "cartilla:done:"

// RedisStore marks finished combinations in Redis so an interrupted run
// can resume where it stopped. Marks expire after TTL.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisStore accepts either a redis:// URL or a bare host:port.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	return &RedisStore{Client: redis.NewClient(opts), TTL: ttl}
}

func (s *RedisStore) Done(ctx context.Context, key string) (bool, error) {
	n, err := s.Client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, errors.Errorf("checking %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, key string) error {
	if err := s.Client.Set(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.TTL).Err(); err != nil {
		return errors.Errorf("marking %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

// MemoryStore keeps marks for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	done map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{done: make(map[string]bool)}
}

func (s *MemoryStore) Done(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done[key], nil
}

func (s *MemoryStore) Mark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done[key] = true
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done)
}
