package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pizzeria-service/internal/handler/http/response"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов с одного IP.
type RateLimiter struct {
	log      *slog.Logger
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(log *slog.Logger, rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		log:      log,
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()

	return v.limiter
}

// Handler отвечает 429, когда лимит для IP клиента исчерпан.
func (rl *RateLimiter) Handler(c *gin.Context) {
	key := c.ClientIP()

	if !rl.getLimiter(key).Allow() {
		rl.log.Warn("Rate limit exceeded",
			slog.String("op", "Middleware.RateLimit"),
			slog.String("request_id", GetRequestIDFromContext(c)),
			slog.String("remote_ip", key),
			slog.String("path", c.FullPath()),
		)
		c.Header("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
		response.SendError(c, http.StatusTooManyRequests, "Too many requests, try again later")
		c.Abort()
		return
	}

	c.Next()
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.rate <= 0 {
		return 60
	}
	seconds := int(1 / float64(rl.rate))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Cleanup удаляет лимитеры IP, не присылавших запросов дольше maxIdle. Возвращает число удалённых.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	threshold := rl.now().Add(-maxIdle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(threshold) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}
