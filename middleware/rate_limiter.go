package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const defaultMaxVisitors = 10000

// RateLimiter keeps one token bucket per client IP. The visitor table is an
// LRU so idle clients fall out without a sweeper goroutine.
type RateLimiter struct {
	mu       sync.Mutex
	visitors *lru.Cache
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst, maxVisitors int) (*RateLimiter, error) {
	if maxVisitors <= 0 {
		maxVisitors = defaultMaxVisitors
	}
	cache, err := lru.New(maxVisitors)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{visitors: cache, rps: rate.Limit(rps), burst: burst}, nil
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors.Add(ip, limiter)
	return limiter
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
