// Package pairlock serializes work on one key (a club/student pair) across
// goroutines and, with Redis configured, across app instances.
package pairlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStripes is the number of in-process lock stripes.
const DefaultStripes = 256

// Locker acquires an exclusive lock on key. The returned release func must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

/* ----------------------------- in-process ------------------------------ */

// Striped hashes keys onto a fixed set of one-slot semaphores. Two keys
// sharing a stripe serialize with each other, which is harmless.
type Striped struct {
	stripes []chan struct{}
}

// NewStriped returns a Striped locker with n stripes (DefaultStripes if n <= 0).
func NewStriped(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	s := &Striped{stripes: make([]chan struct{}, n)}
	for i := range s.stripes {
		s.stripes[i] = make(chan struct{}, 1)
	}
	return s
}

func (s *Striped) stripe(key string) chan struct{} {
	return s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))]
}

// Lock blocks until the key's stripe is free or ctx is done.
func (s *Striped) Lock(ctx context.Context, key string) (func(), error) {
	ch := s.stripe(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
}

/* -------------------------------- redis -------------------------------- */

// ErrLost is logged when a Redis lock expired before it was released.
var ErrLost = errors.New("lock expired before release")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a SET NX PX lock shared by every instance pointed at the same
// server. Keys are first serialized locally so one instance does not poll
// Redis against itself.
type Redis struct {
	rdb    *redis.Client
	local  *Striped
	log    *zap.Logger
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	TTL    time.Duration // lock lease; defaults to 10s
	Retry  time.Duration // poll interval while waiting; defaults to 25ms
	Prefix string        // key prefix; defaults to "clubhouse:pairlock:"
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, log *zap.Logger, opts RedisOptions) *Redis {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}
	if opts.Prefix == "" {
		opts.Prefix = "clubhouse:pairlock:"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		rdb:    rdb,
		local:  NewStriped(DefaultStripes),
		log:    log,
		ttl:    opts.TTL,
		retry:  opts.Retry,
		prefix: opts.Prefix,
	}
}

// Dial parses url, connects and pings.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	releaseLocal, err := r.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	rkey := r.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, rkey, token, r.ttl).Result()
		if err != nil {
			releaseLocal()
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			releaseLocal()
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		defer releaseLocal()
		// Release with a fresh context: the caller's may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := releaseScript.Run(rctx, r.rdb, []string{rkey}, token).Int()
		switch {
		case err != nil:
			r.log.Warn("pair lock release failed", zap.String("key", key), zap.Error(err))
		case n == 0:
			r.log.Warn("pair lock release failed", zap.String("key", key), zap.Error(ErrLost))
		}
	}, nil
}
