// Package ratelimit limits requests per client with a fixed one-minute
// window. Client windows live in a bounded LRU so a flood of distinct
// addresses cannot grow memory without limit.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"claimlens/internal/cache"
	"claimlens/internal/log"
)

const window = time.Minute

// Limiter provides rate limiting functionality
type Limiter struct {
	clients           *cache.LRUCache[int]
	requestsPerMinute int
	logger            *log.Logger

	allowed  int64
	rejected int64
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// MaxClients bounds the number of tracked clients.
	MaxClients int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		MaxClients:        10000,
	}
}

// NewLimiter creates a new rate limiter. Register Cleaner() with a
// cache.Manager to drop idle clients between requests.
func NewLimiter(config Config, logger *log.Logger) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Limiter{
		clients:           cache.NewLRUCache[int](config.MaxClients, window),
		requestsPerMinute: config.RequestsPerMinute,
		logger:            logger.WithComponent(log.ComponentRateLimit),
	}
}

// Allow counts a request from clientIP and reports whether it is within
// the limit for the current window.
func (rl *Limiter) Allow(clientIP string) bool {
	n := rl.clients.Update(clientIP, func(count int, _ bool) int { return count + 1 })
	if n > rl.requestsPerMinute {
		atomic.AddInt64(&rl.rejected, 1)
		return false
	}
	atomic.AddInt64(&rl.allowed, 1)
	return true
}

// Cleaner exposes the client table for periodic expiry.
func (rl *Limiter) Cleaner() cache.Cleaner { return rl.clients }

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	Allowed     int64
	Rejected    int64
	ClientCount int64
	// Evictions counts clients dropped because the table was full.
	Evictions int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Allowed:     atomic.LoadInt64(&rl.allowed),
		Rejected:    atomic.LoadInt64(&rl.rejected),
		ClientCount: int64(rl.ActiveClients()),
		Evictions:   rl.clients.Evictions(),
	}
}

// Middleware creates HTTP middleware for rate limiting
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractIP(r)
			if !rl.Allow(clientIP) {
				rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, clientIP,
					log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
