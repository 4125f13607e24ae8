package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-bakery/utils"

	"golang.org/x/time/rate"
)

// visitorIdle is how long an address may stay quiet before its limiter is dropped.
const visitorIdle = 3 * time.Minute

// RateLimiter manages per-IP rate limiters.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	clock    utils.Clock
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int, clock utils.Clock) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		clock:    clock,
	}
}

func (rl *RateLimiter) getVisitor(ip string) *visitor {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.clock.Now()
	return v
}

// Cleanup drops limiters of idle addresses. It runs as a scheduled task.
func (rl *RateLimiter) Cleanup(context.Context) error {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(rl.visitors, ip)
		}
	}
	return nil
}

// Middleware enforces the limit per remote address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := rl.getVisitor(clientIP(r))
		if !v.limiter.AllowN(rl.clock.Now(), 1) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.rps)))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
	}
	return ip
}

func retryAfterSeconds(rps rate.Limit) int {
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(1/float64(rps) + 0.5)
}
