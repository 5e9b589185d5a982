package port

import (
	"context"
	"time"
)

// KVStore is the persistent key-value storage behind the TTL caches.
// A missing key is reported with ok=false and a nil error.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache stores JSON values. Put/GetFresh wrap values with their write time and treat entries
// older than maxAge as missing; PutPlain/GetPlain store values as is and never expire them.
type Cache interface {
	Put(ctx context.Context, key string, value interface{}) error
	GetFresh(ctx context.Context, key string, maxAge time.Duration, out interface{}) (bool, error)
	PutPlain(ctx context.Context, key string, value interface{}) error
	GetPlain(ctx context.Context, key string, out interface{}) (bool, error)
}
