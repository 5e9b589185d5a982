package storage

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process port.KVStore on top of go-cache.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates a store; cleanupInterval controls how often expired items are purged.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, cleanupInterval)}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return append([]byte(nil), b...), true, nil
}

// Set stores value under key. ttl <= 0 means no expiry.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Close is a no-op, present so both backends can be closed the same way.
func (s *MemoryStore) Close() error {
	return nil
}
