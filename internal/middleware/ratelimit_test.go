package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := NewRateLimiter()

		for i := 0; i < 5; i++ {
			allowed, remaining, _ := limiter.Check(ctx, "client-1", 10)
			assert.True(t, allowed)
			assert.Equal(t, 10-i-1, remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		limiter := NewRateLimiter()

		for i := 0; i < 5; i++ {
			limiter.Check(ctx, "client-2", 5)
		}

		allowed, remaining, _ := limiter.Check(ctx, "client-2", 5)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
	})

	t.Run("tracks clients separately", func(t *testing.T) {
		limiter := NewRateLimiter()

		for i := 0; i < 5; i++ {
			limiter.Check(ctx, "client-a", 5)
		}

		allowed, _, _ := limiter.Check(ctx, "client-b", 5)
		assert.True(t, allowed)
	})

	t.Run("returns reset time", func(t *testing.T) {
		limiter := NewRateLimiter()

		_, _, resetAt := limiter.Check(ctx, "client-3", 10)
		assert.Greater(t, resetAt, int64(0))
	})

	t.Run("sweep keeps recent windows", func(t *testing.T) {
		limiter := NewRateLimiter()
		limiter.Check(ctx, "client-4", 10)

		removed, err := limiter.Sweep(ctx)
		assert.NoError(t, err)
		assert.Zero(t, removed)
		assert.Len(t, limiter.store, 1)
	})

	t.Run("sweep drops idle windows", func(t *testing.T) {
		limiter := NewRateLimiter()
		limiter.Check(ctx, "client-5", 10)
		limiter.store["client-5"].lastAccess = time.Now().Add(-2 * entryTTL)

		removed, err := limiter.Sweep(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		assert.Empty(t, limiter.store)
	})
}

func TestRateLimitMiddleware_KeysOnPeerAddress(t *testing.T) {
	handler := NewRateLimitMiddleware(NewRateLimiter(), 2).Handler(okHandler())

	send := func(i int) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/scan/frames", nil)
		req.RemoteAddr = "203.0.113.7:" + strconv.Itoa(40000+i)
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(1))
	assert.Equal(t, http.StatusOK, send(2))
	assert.Equal(t, http.StatusTooManyRequests, send(3))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("zero limit disables", func(t *testing.T) {
		handler := NewRateLimitMiddleware(NewRateLimiter(), 0).Handler(okHandler())

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/scan/frames", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("sets headers and rejects over limit", func(t *testing.T) {
		handler := NewRateLimitMiddleware(NewRateLimiter(), 2).Handler(okHandler())

		send := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/v1/scan/frames", nil)
			req.RemoteAddr = "192.168.1.20:4000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		first := send()
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, send().Code)

		rejected := send()
		assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
		assert.Equal(t, "60", rejected.Header().Get("Retry-After"))
		assert.True(t, strings.Contains(rejected.Body.String(), "RATE_LIMITED"))
	})
}
