package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/icec/internal/pkg/errcode"
	"github.com/xxxsen/icec/internal/pkg/response"
)

const defaultSweepInterval = 5 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// rateLimiter keeps one token bucket per client ip and route.
type rateLimiter struct {
	mu            sync.Mutex
	limit         rate.Limit
	burst         int
	clients       map[string]*clientLimiter
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	limiter := &rateLimiter{
		limit:         rate.Limit(perSecond),
		burst:         burst,
		clients:       make(map[string]*clientLimiter),
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.limit <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, path}, "|")

	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.sweepInterval {
		l.cleanupExpiredLocked(now)
	}
	entry, ok := l.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastAccess = now
	allowed := entry.limiter.AllowN(now, 1)
	l.mu.Unlock()

	if !allowed {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("path", path),
		)
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	c.Next()
}

// cleanupExpiredLocked drops buckets idle for a full sweep interval.
func (l *rateLimiter) cleanupExpiredLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastAccess) >= l.sweepInterval {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
