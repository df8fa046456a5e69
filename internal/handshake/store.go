package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/shoplink/bva-backend/pkg/redis"
)

// ErrExchangeNotFound signals a missing or expired exchange.
var ErrExchangeNotFound = errors.New("exchange not found")

// Store persists link exchanges for the duration of one attempt.
type Store interface {
	Save(ctx context.Context, exchange *Exchange, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Exchange, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps exchanges in redis so any API instance can serve the
// polling and message endpoints.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a redis-backed exchange store.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Save(ctx context.Context, exchange *Exchange, ttl time.Duration) error {
	payload, err := json.Marshal(exchange)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.client.HandshakeKey(exchange.ID), payload, ttl)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Exchange, error) {
	raw, err := s.client.Get(ctx, s.client.HandshakeKey(id))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	var exchange Exchange
	if err := json.Unmarshal([]byte(raw), &exchange); err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.client.HandshakeKey(id))
}

// MemoryStore is the in-process fallback used when redis is unavailable,
// and by tests. Expiry is enforced on read.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	exchange  Exchange
	expiresAt time.Time
}

// NewMemoryStore builds an in-process exchange store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, exchange *Exchange, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[exchange.ID] = memoryEntry{
		exchange:  *exchange,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.rows[id]
	if !ok {
		return nil, ErrExchangeNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.rows, id)
		return nil, ErrExchangeNotFound
	}
	copied := entry.exchange
	return &copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}
