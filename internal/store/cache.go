package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

const (
	defaultCacheTTL = 10 * time.Minute
	slugKeyPrefix   = "cvparser:resume:slug:"
	idKeyPrefix     = "cvparser:resume:id:"
	viewsKeyPrefix  = "cvparser:resume:views:"
)

// CachedGateway is a Redis read-through cache for GetResumeBySlug in front of
// another gateway. Edits and deletes go to the inner gateway and drop the
// cached entry. View increments keep the entry and bump a per-id counter that
// is added to the cached viewCount on read. Redis errors never fail a call;
// the cache is bypassed instead.
type CachedGateway struct {
	inner  Gateway
	client *redis.Client
	ttl    time.Duration
	logger *errors.Logger

	warnedUnavailable atomic.Bool
}

var _ Gateway = (*CachedGateway)(nil)

// NewCachedGateway wraps inner. A nil client disables caching.
func NewCachedGateway(inner Gateway, client *redis.Client, ttl time.Duration, logger *errors.Logger) *CachedGateway {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &CachedGateway{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachedGateway) available() bool {
	return c.client != nil
}

func (c *CachedGateway) warnOnce(err error) {
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		c.logger.Warn("Redis unavailable, bypassing resume cache", "error", err.Error())
	}
}

func (c *CachedGateway) SaveResume(ctx context.Context, rec Record) (Record, error) {
	return c.inner.SaveResume(ctx, rec)
}

func (c *CachedGateway) GetResumeBySlug(ctx context.Context, slug string) (Record, error) {
	if rec, ok := c.cached(ctx, slug); ok {
		return rec, nil
	}

	rec, err := c.inner.GetResumeBySlug(ctx, slug)
	if err != nil {
		return Record{}, err
	}
	c.store(ctx, rec)
	return rec, nil
}

// cached returns the cached record for slug with pending views applied.
func (c *CachedGateway) cached(ctx context.Context, slug string) (Record, bool) {
	if !c.available() {
		return Record{}, false
	}
	b, err := c.client.Get(ctx, slugKeyPrefix+slug).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.warnOnce(err)
		}
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, false
	}

	views, err := c.client.Get(ctx, viewsKeyPrefix+rec.ID).Int64()
	switch {
	case err == nil:
		rec.ViewCount += views
	case !stderrors.Is(err, redis.Nil):
		c.warnOnce(err)
		return Record{}, false
	}
	return rec, true
}

// store caches rec and resets its pending view counter, since rec already
// carries the gateway's count.
func (c *CachedGateway) store(ctx context.Context, rec Record) {
	if !c.available() {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, slugKeyPrefix+rec.Slug, b, c.ttl)
		pipe.Set(ctx, idKeyPrefix+rec.ID, rec.Slug, c.ttl)
		pipe.Del(ctx, viewsKeyPrefix+rec.ID)
		return nil
	})
	if err != nil {
		c.warnOnce(err)
	}
}

// invalidate drops cached entries for id and, when known, slug.
func (c *CachedGateway) invalidate(ctx context.Context, id, slug string) {
	if !c.available() {
		return
	}
	if slug == "" {
		s, err := c.client.Get(ctx, idKeyPrefix+id).Result()
		if err != nil && !stderrors.Is(err, redis.Nil) {
			c.warnOnce(err)
			return
		}
		slug = s
	}
	keys := []string{idKeyPrefix + id, viewsKeyPrefix + id}
	if slug != "" {
		keys = append(keys, slugKeyPrefix+slug)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.warnOnce(err)
	}
}

func (c *CachedGateway) UpdateResume(ctx context.Context, id string, upd Update) (Record, error) {
	rec, err := c.inner.UpdateResume(ctx, id, upd)
	if err != nil {
		return Record{}, err
	}
	c.invalidate(ctx, id, rec.Slug)
	return rec, nil
}

func (c *CachedGateway) DeleteResume(ctx context.Context, id string) error {
	c.invalidate(ctx, id, "")
	return c.inner.DeleteResume(ctx, id)
}

func (c *CachedGateway) IncrementViewCount(ctx context.Context, id string) error {
	if err := c.inner.IncrementViewCount(ctx, id); err != nil {
		return err
	}
	if !c.available() {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, viewsKeyPrefix+id)
		pipe.Expire(ctx, viewsKeyPrefix+id, c.ttl)
		return nil
	})
	if err != nil {
		// Reload on the next read rather than serve a short count.
		c.warnOnce(err)
		c.invalidate(ctx, id, "")
	}
	return nil
}

func (c *CachedGateway) Close() error {
	var cacheErr error
	if c.client != nil {
		cacheErr = c.client.Close()
	}
	if err := c.inner.Close(); err != nil {
		return err
	}
	return cacheErr
}
