package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

var errBadScriptResult = errors.New("ratelimit: unexpected script result")

// RedisStore shares windows across instances. While Redis is failing the
// breaker opens and hits go to the local Fallback instead.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	fallback *MemoryStore
	warn     rate.Sometimes
	log      *slog.Logger
	now      func() time.Time
}

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	s := &RedisStore{
		client:   client,
		prefix:   "ratelimit:",
		timeout:  500 * time.Millisecond,
		fallback: NewMemoryStore(),
		warn:     rate.Sometimes{Interval: 30 * time.Second},
		log:      log,
		now:      time.Now,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ratelimit-redis",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// A caller hanging up is not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Rate limit store breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

func (s *RedisStore) Hit(ctx context.Context, identity string, window time.Duration) (Window, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.hit(ctx, identity, window)
	})
	if err != nil {
		s.warn.Do(func() {
			s.log.Warn("Rate limit store unavailable, using local windows", "error", err)
		})
		return s.fallback.Hit(ctx, identity, window)
	}
	return res.(Window), nil
}

func (s *RedisStore) hit(ctx context.Context, identity string, window time.Duration) (Window, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + identity}, window.Milliseconds()).Result()
	if err != nil {
		return Window{}, fmt.Errorf("ratelimit: redis hit: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return Window{}, errBadScriptResult
	}
	count, ok1 := vals[0].(int64)
	ttlMs, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return Window{}, errBadScriptResult
	}

	resetAt := s.now().Add(time.Duration(ttlMs) * time.Millisecond)
	return Window{
		Count:   count,
		Start:   resetAt.Add(-window),
		ResetAt: resetAt,
	}, nil
}
