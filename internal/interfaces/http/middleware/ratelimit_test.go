package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedLimiter(rps float64, burst int, ttl time.Duration, now *time.Time) *TokenBucketLimiter {
	l := NewTokenBucketLimiter(rps, burst, ttl)
	l.now = func() time.Time { return *now }
	return l
}

func TestTokenBucketLimiter_Burst(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := fixedLimiter(1, 2, time.Minute, &now)

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("a")
	assert.True(t, ok)

	ok, info = l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.True(t, info.ResetAt.After(now))

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys have independent buckets")

	now = now.Add(time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok, "one token refills per second")
}

func TestTokenBucketLimiter_SweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := fixedLimiter(1, 1, time.Minute, &now)

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.BucketCount())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.BucketCount())
}

func TestRateLimit_Middleware(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	r := newEngine(RateLimit(NewTokenBucketLimiter(0.001, 1, time.Minute), cfg))

	w := serve(r, http.MethodGet, "/api/molecules", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(r, http.MethodGet, "/api/molecules", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"error":"rate limit exceeded"`)

	for i := 0; i < 3; i++ {
		w = serve(r, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
