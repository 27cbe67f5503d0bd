package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Source is what the cache decorates.
type Source interface {
	Statement(ctx context.Context, contentPath string) (string, error)
	Full(ctx context.Context, contentPath string) (json.RawMessage, error)
}

// CachedSource keeps statement text in Redis. Full documents carry the
// solution and always go to the content service.
type CachedSource struct {
	next Source
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedSource(next Source, rdb redis.Cmdable, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, rdb: rdb, ttl: ttl}
}

func statementKey(contentPath string) string {
	return "content:statement:" + contentPath
}

func (c *CachedSource) Statement(ctx context.Context, contentPath string) (string, error) {
	key := statementKey(contentPath)
	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	// Redis failures other than a miss fall through to the source.
	if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return "", ctx.Err()
	}

	statement, err := c.next.Statement(ctx, contentPath)
	if err != nil {
		return "", err
	}
	_ = c.rdb.Set(ctx, key, statement, c.ttl).Err()
	return statement, nil
}

func (c *CachedSource) Full(ctx context.Context, contentPath string) (json.RawMessage, error) {
	return c.next.Full(ctx, contentPath)
}
