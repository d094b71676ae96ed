package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/qanda/internal/metrics"
)

// idleTTL is how long a client's bucket survives without requests.
const idleTTL = 10 * time.Minute

// RateLimiter throttles requests per client IP with a token bucket
// (golang.org/x/time/rate). It guards POST /login and /register against
// password guessing.
//
// Client IPs come from r.RemoteAddr, which chi's RealIP middleware has
// already rewritten from X-Forwarded-For / X-Real-IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
	swept   time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perSecond sustained requests with bursts of burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether ip may make a request now.
func (l *RateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// sweep drops idle clients at most once per idleTTL. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < idleTTL {
		return
	}
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > idleTTL {
			delete(l.clients, ip)
		}
	}
	l.swept = now
}

// Limit wraps next so that POST requests over the limit get 429. Other
// methods pass through: rendering the login form costs nothing.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || l.Allow(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}
		metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
