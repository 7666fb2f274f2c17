package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/inkwell/utils"
)

type bucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// TokenBucket throttles requests per client with a token bucket. Idle buckets are
// dropped after five minutes.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

// NewTokenBucket allows perMinute requests per client with a burst of half that.
func NewTokenBucket(perMinute int) *TokenBucket {
	perMinute = max(perMinute, 1)
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

// Allow spends one token for key.
func (t *TokenBucket) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, b := range t.buckets {
		if now.After(b.expires) {
			delete(t.buckets, k)
		}
	}

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[key] = b
	}
	b.expires = now.Add(5 * time.Minute)
	return b.limiter.Allow()
}

// Middleware rejects requests once the client's bucket is empty.
func (t *TokenBucket) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ClientID(ctx)
		if key == "" {
			key = EffectiveClientIP(ctx)
		}
		if !t.Allow(key) {
			utils.Reject(ctx, http.StatusTooManyRequests, 42901, "RATE_LIMITED", "rate limit exceeded", nil)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
