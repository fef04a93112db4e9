package cache

import (
	"context"
	"time"
)

// noopStore stands in when Redis is unconfigured or unreachable at startup.
// Every read behaves as a miss and every write succeeds without effect, so
// the rest of the system follows its durable-store fallback paths.
type noopStore struct{}

// NewNoop returns the always-miss store.
func NewNoop() Store {
	return noopStore{}
}

func (noopStore) Get(ctx context.Context, key string) (string, error) { return "", ErrMiss }

func (noopStore) Set(ctx context.Context, key, value string, ttl time.Duration) error { return nil }

func (noopStore) Del(ctx context.Context, keys ...string) error { return nil }

func (noopStore) LPush(ctx context.Context, key string, values ...string) error { return nil }

func (noopStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return nil, nil
}

func (noopStore) LTrim(ctx context.Context, key string, start, stop int64) error { return nil }

func (noopStore) SAdd(ctx context.Context, key string, members ...string) error { return nil }

func (noopStore) SRem(ctx context.Context, key string, members ...string) error { return nil }

func (noopStore) SMembers(ctx context.Context, key string) ([]string, error) { return nil, nil }

func (noopStore) ZIncrBy(ctx context.Context, key string, incr float64, member string) error {
	return nil
}

func (noopStore) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Member, error) {
	return nil, nil
}

func (noopStore) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func (noopStore) Pipelined(ctx context.Context, fn func(Batch)) error {
	fn(noopBatch{})
	return nil
}

type noopBatch struct{}

func (noopBatch) Del(keys ...string)                            {}
func (noopBatch) LPush(key string, values ...string)            {}
func (noopBatch) LTrim(key string, start, stop int64)           {}
func (noopBatch) ZAdd(key string, score float64, member string) {}
func (noopBatch) Expire(key string, ttl time.Duration)          {}
