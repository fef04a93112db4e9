// Package cache fronts an optional Redis instance with a uniform key-value,
// list, set and sorted-set interface. When no Redis address is configured the
// no-op implementation is returned instead, so call sites never branch on
// cache availability: every operation behaves as a cache miss and no error
// from this package is ever fatal to a request.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent (or the backend is the
// no-op store, which treats every key as absent).
var ErrMiss = errors.New("cache: miss")

// Member is one sorted-set entry with its score.
type Member struct {
	Member string
	Score  float64
}

// Batch collects operations for a best-effort pipelined flush. It is not
// transactional; partial application is acceptable at every call site.
type Batch interface {
	Del(keys ...string)
	LPush(key string, values ...string)
	LTrim(key string, start, stop int64)
	ZAdd(key string, score float64, member string)
	Expire(key string, ttl time.Duration)
}

// Store is the cache facade consumed by the rest of the system.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	ZIncrBy(ctx context.Context, key string, incr float64, member string) error
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Member, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Pipelined runs fn against a batch and flushes it in one round trip.
	Pipelined(ctx context.Context, fn func(Batch)) error
}

// New selects the Redis-backed store when an address is configured and the
// no-op store otherwise.
func New(addr, password string) Store {
	if addr == "" {
		return NewNoop()
	}
	return NewRedis(addr, password)
}
