// Package cache wraps the Redis client used for request throttling.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:auth:"

type Cache struct {
	client *redis.Client
}

// New connects to the Redis instance at redisURL and pings it.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// attemptScript spends one attempt from the caller's bucket. The bucket
// holds `level` attempts as of `stamp` (unix ms) and refills at `per_ms`.
// Reply: {allowed, attempts left, ms until the next attempt}.
var attemptScript = redis.NewScript(`
local per_ms = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local idle_ms = tonumber(ARGV[4])

local level = cap
local state = redis.call('HMGET', KEYS[1], 'level', 'stamp')
if state[1] then
	local elapsed = math.max(0, now_ms - tonumber(state[2]))
	level = math.min(cap, tonumber(state[1]) + elapsed * per_ms)
end

local ok, wait_ms = 0, 0
if level >= 1 then
	ok = 1
	level = level - 1
else
	wait_ms = math.ceil((1 - level) / per_ms)
end

redis.call('HSET', KEYS[1], 'level', tostring(level), 'stamp', now_ms)
redis.call('PEXPIRE', KEYS[1], idle_ms)
return {ok, math.floor(level), wait_ms}
`)

// Limiter throttles attempts per client address with a token bucket.
type Limiter struct {
	cache *Cache
	rate  float64
	burst int
	now   func() time.Time
}

func NewLimiter(c *Cache, ratePerSecond float64, burst int) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{cache: c, rate: ratePerSecond, burst: burst, now: time.Now}
}

// Allow spends an attempt for ip. On a Redis error it returns an allowing
// result together with the error; the caller decides whether to fail open.
func (l *Limiter) Allow(ctx context.Context, ip string) (Result, error) {
	reply, err := attemptScript.Run(ctx, l.cache.client,
		[]string{rateLimitPrefix + hashIP(ip)},
		l.rate/1000, l.burst, l.now().UnixMilli(), bucketTTL(l.rate, l.burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{Allowed: true, Remaining: int64(l.burst)}, fmt.Errorf("spend attempt: %w", err)
	}
	if len(reply) != 3 {
		return Result{Allowed: true, Remaining: int64(l.burst)}, fmt.Errorf("spend attempt: unexpected reply %v", reply)
	}

	return Result{
		Allowed:    reply[0] == 1,
		Remaining:  reply[1],
		RetryAfter: retryAfter(reply[2]),
	}, nil
}

// retryAfter rounds a wait up to whole seconds for the Retry-After header.
func retryAfter(waitMS int64) time.Duration {
	if waitMS <= 0 {
		return 0
	}
	return (time.Duration(waitMS)*time.Millisecond + time.Second - 1).Truncate(time.Second)
}

// bucketTTL is long enough for an idle bucket to refill completely.
func bucketTTL(rate float64, burst int) time.Duration {
	secs := int64(float64(burst)/rate) + 1
	if secs < 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

// hashIP keeps raw client addresses out of Redis.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
