// Package cache is the explicit fetch cache placed in front of data source
// calls. Entries are keyed by (datasource, kind, args, time bucket), expire by
// TTL, and can be dropped early by prefix. Concurrent loads of the same key
// collapse into one in-flight call.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
)

const keyPrefix = "catalog"

// Store is a byte-oriented backing store for cache entries.
type Store interface {
	// Get returns the stored bytes; found is false on a miss.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Key identifies a cached fetch. Datasource and Kind are mandatory; Args are
// the remaining call parameters in order.
type Key struct {
	Datasource string
	Kind       string
	Args       []string
}

// Cache fronts a Store with TTL bucketing and single-flight loading.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
	logger *zap.Logger
}

// New creates a cache. A non-positive ttl disables caching but keeps single-flight.
func New(store Store, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.Named("cache"),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// keyString renders the key with the current time bucket appended.
func (c *Cache) keyString(k Key) string {
	var b strings.Builder
	b.WriteString(DatasourcePrefix(k.Datasource))
	b.WriteString(k.Kind)
	for _, a := range k.Args {
		b.WriteByte(':')
		b.WriteString(a)
	}
	b.WriteByte(':')
	b.WriteString(c.bucket())
	return b.String()
}

func (c *Cache) bucket() string {
	if c.ttl <= 0 {
		return "0"
	}
	return strconv.FormatInt(c.now().Truncate(c.ttl).Unix(), 10)
}

// DatasourcePrefix is the key prefix shared by every entry of one datasource.
func DatasourcePrefix(datasource string) string {
	return keyPrefix + ":" + datasource + ":"
}

// Invalidate drops every entry whose key starts with prefix. An empty prefix
// drops the whole cache.
func (c *Cache) Invalidate(ctx context.Context, prefix string) error {
	if prefix == "" {
		prefix = keyPrefix + ":"
	}
	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("failed to invalidate cache prefix %q: %w", prefix, err)
	}
	c.logger.Info("Cache invalidated", zap.String("prefix", prefix))
	return nil
}

// InvalidateDatasource drops every entry for one datasource.
func (c *Cache) InvalidateDatasource(ctx context.Context, datasource string) error {
	return c.Invalidate(ctx, DatasourcePrefix(datasource))
}

// GetOrLoad returns the cached value for key or calls load to produce it.
// At most one load per key is in flight at a time; concurrent callers share
// its result. Only successful loads are stored. Store failures are logged and
// never fail the call.
func GetOrLoad[T any](ctx context.Context, c *Cache, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	k := c.keyString(key)

	if c.ttl > 0 {
		data, found, err := c.store.Get(ctx, k)
		switch {
		case err != nil:
			metrics.RecordCache(key.Kind, "error")
			c.logger.Warn("Cache read failed", zap.String("key", k), zap.Error(err))
		case found:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				metrics.RecordCache(key.Kind, "hit")
				return v, nil
			}
			c.logger.Warn("Discarding undecodable cache entry", zap.String("key", k))
		}
		metrics.RecordCache(key.Kind, "miss")
	}

	// The shared load outlives any one caller; each caller stops waiting on
	// its own context. Source calls stay bounded by their per-call timeout.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		if c.ttl > 0 {
			c.put(loadCtx, k, v)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("Shared in-flight load", zap.String("key", k))
		}
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Cache) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl+time.Second); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
