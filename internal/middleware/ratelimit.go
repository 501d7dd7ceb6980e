package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is per-IP token bucket rate limiting middleware.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*client
	rate       rate.Limit
	burst      int
	maxClients int // max tracked IPs
	now        func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with the given sustained rate
// (requests per second) and burst size.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:    make(map[string]*client),
		rate:       rate.Limit(rps),
		burst:      burst,
		maxClients: 100000,
		now:        time.Now,
	}
}

// Handler returns HTTP middleware that enforces per-IP rate limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, allowed := rl.allow(realIP(r))

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Max(1, math.Ceil(retryAfter.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow reports whether a request from ip may proceed, the tokens left and,
// when rejected, how long until the next token.
func (rl *RateLimiter) allow(ip string) (remaining int, retryAfter time.Duration, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[ip]
	if !ok {
		if len(rl.clients) >= rl.maxClients {
			return 0, time.Second, false
		}
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return 0, time.Second, false
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return 0, delay, false
	}
	return int(c.limiter.TokensAt(now)), 0, true
}

// StartCleanup spawns a goroutine that removes idle clients every interval.
// Returns a cancel function that stops the cleanup goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

// cleanup removes clients idle longer than maxIdle.
func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// realIP extracts the client IP from RemoteAddr. Proxy headers are not
// trusted here; chi's RealIP middleware rewrites RemoteAddr upstream when the
// deployment sits behind a trusted proxy.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
