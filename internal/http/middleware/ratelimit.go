package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/Niyati251208/sports-performance-analyzer/internal/ratelimit"
	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/response"
)

const ActionUpload = "upload"

type RateLimitConfig struct {
	limiters map[string]*ratelimit.TokenBucket
}

// NewRateLimitConfig limits uploads to uploadsPerMinute per subject. A nil client disables limiting.
func NewRateLimitConfig(redisClient *redis.Client, uploadsPerMinute int64) *RateLimitConfig {
	config := &RateLimitConfig{
		limiters: make(map[string]*ratelimit.TokenBucket),
	}
	if redisClient == nil || uploadsPerMinute <= 0 {
		return config
	}

	config.limiters[ActionUpload] = ratelimit.NewTokenBucket(redisClient, uploadsPerMinute, uploadsPerMinute)

	return config
}

// subject keys the bucket by token email when there is one, else by client address.
func subject(r *http.Request) string {
	if identity, ok := GetIdentityFromContext(r.Context()); ok {
		if email := identity.EmailOrEmpty(); email != "" {
			return email
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			who := subject(r)
			allowed, err := limiter.Allow(r.Context(), who, action)
			if err != nil {
				// Redis trouble should not take uploads down with it.
				slog.Warn("Rate limit check failed, allowing request", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			remaining, _ := limiter.GetRemaining(r.Context(), who, action)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.Capacity(), 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "60")

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.Failure("Too many uploads, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitedHandler wraps a handler with rate limiting for a specific action
func (rlc *RateLimitConfig) RateLimitedHandler(action string, handler http.HandlerFunc) http.Handler {
	return rlc.RateLimitMiddleware(action)(http.HandlerFunc(handler))
}
