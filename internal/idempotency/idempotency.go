// Package idempotency remembers the outcome of mutating requests by
// Idempotency-Key so a retried request is answered without re-running it.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInProgress is returned while the first request with a key is still running
var ErrInProgress = errors.New("request with this idempotency key is in progress")

const pendingMarker = "pending"

// Record is a stored response
type Record struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Store reserves keys and keeps their responses
type Store interface {
	// Begin reserves key. It returns nil, nil when the caller should execute the
	// request, the stored record for a finished key, or ErrInProgress.
	Begin(ctx context.Context, key string) (*Record, error)
	// Complete stores the response for a reserved key
	Complete(ctx context.Context, key string, rec Record) error
	// Abort releases a reserved key so the request can be retried
	Abort(ctx context.Context, key string) error
}

// RedisStore keeps keys in Redis with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a store on client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "idempotency:"}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Begin(ctx context.Context, key string) (*Record, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired or aborted between SETNX and GET; the caller may retry
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err()
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func decode(raw []byte) (*Record, error) {
	if string(raw) == pendingMarker {
		return nil, ErrInProgress
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is a single-process Store used when Redis is not configured
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Begin(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return decode(e.value)
	}
	s.entries[key] = memEntry{value: []byte(pendingMarker), expires: now.Add(s.ttl)}
	return nil, nil
}

func (s *MemoryStore) Complete(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{value: raw, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Abort(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep drops expired entries
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
