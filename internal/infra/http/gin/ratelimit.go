package ginserver

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// OwnerRateLimiter throttles expensive routes per owner. Idle limiters are
// dropped on access once they have been unused for idleTTL.
type OwnerRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewOwnerRateLimiter allows perMinute requests per owner with a burst of the
// same size. perMinute <= 0 disables limiting.
func NewOwnerRateLimiter(perMinute int) *OwnerRateLimiter {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &OwnerRateLimiter{
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (l *OwnerRateLimiter) limiterFor(owner string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, key)
		}
	}
	v, ok := l.visitors[owner]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[owner] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Middleware must run after authentication; anonymous requests share a bucket
// keyed by client IP.
func (l *OwnerRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if p, ok := currentPrincipal(c); ok && p.OwnerID != "" {
			key = "owner:" + p.OwnerID
		}
		lim := l.limiterFor(key)
		res := lim.ReserveN(l.now(), 1)
		if !res.OK() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many export requests"})
			return
		}
		if delay := res.DelayFrom(l.now()); delay > 0 {
			res.CancelAt(l.now())
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many export requests"})
			return
		}
		c.Next()
	}
}
