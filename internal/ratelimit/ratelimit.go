package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucket limits how often a subject (an email or a client address) may perform an action.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64         // Maximum number of tokens
	refill   int64         // Tokens added per window
	window   time.Duration // Refill window
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

// Both scripts share the refill arithmetic; only consume writes the bucket back.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return allowed
`)

var peekScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
	end

	return tokens
`)

func key(subject, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", action, subject)
}

func (tb *TokenBucket) run(ctx context.Context, script *redis.Script, subject, action string) (int64, error) {
	result, err := script.Run(ctx, tb.redis, []string{key(subject, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), time.Now().Unix()).Result()
	if err != nil {
		return 0, err
	}

	n, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type %T from rate limit script", result)
	}
	return n, nil
}

// Allow consumes one token and reports whether subject may perform action.
func (tb *TokenBucket) Allow(ctx context.Context, subject, action string) (bool, error) {
	n, err := tb.run(ctx, consumeScript, subject, action)
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return n == 1, nil
}

// GetRemaining returns the number of tokens left without consuming one.
func (tb *TokenBucket) GetRemaining(ctx context.Context, subject, action string) (int64, error) {
	n, err := tb.run(ctx, peekScript, subject, action)
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}
	return n, nil
}

// Reset clears the rate limit for a specific subject and action
func (tb *TokenBucket) Reset(ctx context.Context, subject, action string) error {
	return tb.redis.Del(ctx, key(subject, action)).Err()
}

func (tb *TokenBucket) Capacity() int64 {
	return tb.capacity
}
