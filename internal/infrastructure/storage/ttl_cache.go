package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultRetention bounds how long the backend keeps an entry. Freshness is decided on read.
const DefaultRetention = 24 * time.Hour

// envelope is the stored form of a cached value.
type envelope struct {
	Data      jsoniter.RawMessage `json:"data"`
	Timestamp int64               `json:"timestamp"` // unix ms
}

// TTLCache stores JSON values with their write time and treats entries older than maxAge as absent.
// A stale entry is deleted from the backend when it is read.
type TTLCache struct {
	store     port.KVStore
	logger    port.Logger
	now       func() time.Time
	retention time.Duration
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock replaces time.Now, used by tests to move time forward.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// WithRetention sets the backend expiry of written entries. 0 keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(c *TTLCache) { c.retention = d }
}

func NewTTLCache(store port.KVStore, log port.Logger, opts ...Option) *TTLCache {
	c := &TTLCache{
		store:     store,
		logger:    log,
		now:       time.Now,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put writes value wrapped in a {data, timestamp} envelope.
func (c *TTLCache) Put(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to encode cache envelope for %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw, c.retention)
}

// GetFresh decodes the entry into out if it was written less than maxAge ago.
func (c *TTLCache) GetFresh(ctx context.Context, key string, maxAge time.Duration, out interface{}) (bool, error) {
	ns := namespaceOf(key)

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(ns, "miss").Inc()
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		_ = c.store.Delete(ctx, key)
		metrics.CacheLookups.WithLabelValues(ns, "miss").Inc()
		return false, nil
	}

	age := c.now().Sub(time.UnixMilli(env.Timestamp))
	if age >= maxAge {
		metrics.CacheLookups.WithLabelValues(ns, "stale").Inc()
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to evict stale cache entry", "key", key, "error", err)
		}
		return false, nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	metrics.CacheLookups.WithLabelValues(ns, "hit").Inc()
	return true, nil
}

// PutPlain writes value without an envelope and without expiry.
func (c *TTLCache) PutPlain(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw, 0)
}

// GetPlain reads a value written by PutPlain.
func (c *TTLCache) GetPlain(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode value for %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key from the backend.
func (c *TTLCache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// namespaceOf keeps the label cardinality low: "wallet_history_0xabc_base" -> "wallet_history".
func namespaceOf(key string) string {
	if i := strings.Index(key, "_0x"); i > 0 {
		return key[:i]
	}
	return "other"
}
