package sink

import (
	"context"
	"strings"
	"time"
)

const defaultRedisPrefix = "sregrade"

// HashStore is the subset of cache.RedisCache the redis sink needs.
type HashStore interface {
	HSetAll(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	RPush(ctx context.Context, key string, ttl time.Duration, values ...string) error
}

// Redis stores each run as a hash of flattened fields and indexes it in a per-sweep list.
//
//	<prefix>:run:<stamp>:<problem>:<kind>  hash of flattened result fields plus meta fields
//	<prefix>:sweep:<stamp>                 list of run keys in completion order
type Redis struct {
	store  HashStore
	prefix string
	ttl    time.Duration
}

// NewRedis creates a redis sink. A zero ttl keeps keys forever.
func NewRedis(store HashStore, prefix string, ttl time.Duration) *Redis {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{store: store, prefix: prefix, ttl: ttl}
}

func (r *Redis) Name() string {
	return "redis"
}

// RunKey returns the hash key for rec.
func (r *Redis) RunKey(rec Record) string {
	return r.prefix + ":run:" + rec.Key()
}

// SweepKey returns the list key for a sweep stamp.
func (r *Redis) SweepKey(stamp string) string {
	return r.prefix + ":sweep:" + stamp
}

func (r *Redis) PublishRun(ctx context.Context, rec Record) error {
	results, err := rec.Results.MarshalJSON()
	if err != nil {
		return err
	}
	fields := make(map[string]string, len(rec.Fields)+5)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields["_problem_id"] = rec.ProblemID
	fields["_kind"] = rec.Kind
	fields["_error"] = rec.Error
	fields["_finished_at"] = rec.FinishedAt.UTC().Format(time.RFC3339Nano)
	fields["_results"] = string(results)

	key := r.RunKey(rec)
	if err := r.store.HSetAll(ctx, key, fields, r.ttl); err != nil {
		return err
	}
	return r.store.RPush(ctx, r.SweepKey(rec.Stamp), r.ttl, key)
}
