package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults sized for the import API: submissions are cheap enqueue calls, so
// a modest per-client budget still leaves room for status polling.
const (
	defaultRateLimitRPS   = 15
	defaultRateLimitBurst = 30

	clientSweepInterval = 2 * time.Minute
	clientIdleEviction  = 10 * time.Minute
)

// clientRegistry keeps one limiter per caller address and evicts entries
// that have gone quiet.
type clientRegistry struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	rps     rate.Limit
	burst   int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientRegistry(rps float64, burst int) *clientRegistry {
	return &clientRegistry{
		clients: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (c *clientRegistry) allow(addr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.clients[addr]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.clients[addr] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (c *clientRegistry) sweep() {
	ticker := time.NewTicker(clientSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		for addr, entry := range c.clients {
			if time.Since(entry.lastSeen) > clientIdleEviction {
				delete(c.clients, addr)
			}
		}
		c.mu.Unlock()
	}
}

// RateLimit throttles requests per client address. Non-positive settings
// fall back to the import API defaults.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}

	registry := newClientRegistry(rps, burst)
	go registry.sweep()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !registry.allow(clientAddress(r.RemoteAddr)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"},"request_id":"` + GetRequestID(r.Context()) + `"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddress(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
