package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	// Prefix namespaces every counter key; it should match the session key prefix.
	Prefix string

	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// hitLua increments a fixed-window counter and returns {count, pttl}. The
// window starts on the first hit; a counter that somehow lost its expiry
// gets a fresh one so it can never lock an identifier out forever.
var hitLua = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if n == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Limiter enforces per-identifier and per-IP failed-login budgets and a
// per-user refresh budget with Redis fixed-window counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

type window struct {
	count int64
	ttl   time.Duration
}

func (w window) limitedAt(max int) error {
	if w.count < int64(max) {
		return nil
	}
	return &LimitedError{RetryAfter: w.ttl}
}

// CheckLogin returns a *LimitedError when the identifier, or the IP with
// EnableIPThrottle, has used up its failed-login budget. It does not count
// the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	keys := []string{l.loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	for _, key := range keys {
		w, err := l.peek(ctx, key)
		if err != nil {
			return err
		}
		if err := w.limitedAt(l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt. It returns a
// *LimitedError when this attempt exhausted a budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	keys := []string{l.loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	var limited error
	for _, key := range keys {
		w, err := l.hit(ctx, key, l.config.LoginCooldownDuration)
		if err != nil {
			return err
		}
		if w.count > int64(l.config.MaxLoginAttempts) && limited == nil {
			limited = &LimitedError{RetryAfter: w.ttl}
		}
	}
	return limited
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	keys := []string{l.loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts a refresh attempt for userID and returns a
// *LimitedError once the window budget is exceeded.
func (l *Limiter) CheckRefresh(ctx context.Context, userID string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	w, err := l.hit(ctx, l.refreshKey(userID), l.config.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if w.count > int64(l.config.MaxRefreshAttempts) {
		return &LimitedError{RetryAfter: w.ttl}
	}
	return nil
}

// LoginAttempts returns the current failed-attempt counter for an identifier.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	w, err := l.peek(ctx, l.loginUserKey(identifier))
	if err != nil {
		return 0, err
	}
	return int(w.count), nil
}

// peek reads a counter and its remaining window without counting.
func (l *Limiter) peek(ctx context.Context, key string) (window, error) {
	pipe := l.redis.Pipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return window{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := get.Int64()
	if errors.Is(err, redis.Nil) {
		return window{}, nil
	}
	if err != nil {
		return window{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		count = 0
	}

	ttl := pttl.Val()
	if ttl < 0 {
		ttl = 0
	}
	return window{count: count, ttl: ttl}, nil
}

func (l *Limiter) hit(ctx context.Context, key string, ttl time.Duration) (window, error) {
	res, err := hitLua.Run(ctx, l.redis, []string{key}, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return window{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return window{}, fmt.Errorf("%w: unexpected counter reply", ErrRedisUnavailable)
	}
	return window{count: res[0], ttl: time.Duration(res[1]) * time.Millisecond}, nil
}
