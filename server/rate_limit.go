package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cienspay/cienspay-web/auth"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 10_000
	limiterIdleTTL   = 10 * time.Minute
)

// RateLimiter provides per client IP rate limiting. Idle limiters expire out of an LRU.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	interval time.Duration // time to earn one token, zero when unlimited
	burst    int
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
		rate:     rate.Inf,
		burst:    burst,
	}
	if perMinute > 0 {
		rl.interval = time.Minute / time.Duration(perMinute)
		rl.rate = rate.Every(rl.interval)
	}
	if rl.burst <= 0 {
		rl.burst = 1
	}
	return rl
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters.Get(ip); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Add(ip, l)
	return l
}

// Allow reports whether a request from ip may proceed now
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiter(ip).Allow()
}

func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			log.Ctx(r.Context()).Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(rl.interval.Seconds()))))
			http.Error(w, auth.MsgTooManyTries, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientIP is the remote address without its port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
