package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/omnidesk/omnidesk/internal/types"
	"golang.org/x/time/rate"
)

// rateLimiters keeps one token bucket per owner. Entries are small and the
// owner population is bounded, so no eviction is needed.
type rateLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newRateLimiters(rps float64, burst int) *rateLimiters {
	return &rateLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (r *rateLimiters) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(r.rps, r.burst)
		r.limiters[key] = limiter
	}
	return limiter
}

// RateLimitMiddleware throttles requests per owner. Unset config falls
// back to a sane default instead of blocking everything.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = int(rps) * 2
	}
	limiters := newRateLimiters(rps, burst)

	return func(c *gin.Context) {
		ownerID := c.GetHeader(types.HeaderOwnerID)
		if ownerID == "" {
			ownerID = c.ClientIP()
		}

		if !limiters.get(ownerID).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Success: false,
				Error: ErrorDetail{
					Display: "Too many requests, slow down",
				},
			})
			return
		}
		c.Next()
	}
}
