package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles login attempts per client address
type LoginLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	retry    int // seconds until one attempt refills
	now      func() time.Time
}

// NewLoginLimiter allows perMinute attempts per client with the given burst.
// perMinute <= 0 disables limiting.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	limit, retry := rate.Inf, 0
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
		retry = (60 + perMinute - 1) / perMinute
	}
	if burst < 1 {
		burst = 1
	}
	return &LoginLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		retry:    retry,
		now:      time.Now,
	}
}

// Allow reports whether client may attempt another login now
func (l *LoginLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(l.visitors, key)
		}
	}

	v, ok := l.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[client] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware answers 429 once a client exceeds its budget
func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientAddr(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retry))
			writeError(w, http.StatusTooManyRequests, "Too many login attempts, please wait", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
