package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// limiter counts requests per client over a fixed window.
type limiter struct {
	mu      sync.Mutex
	limit   int
	per     time.Duration
	windows map[string]*window
}

type window struct {
	hits   int
	resets time.Time
}

// take records one request for ip and reports whether it fits the current
// window, along with the time left until the window resets.
func (l *limiter) take(ip string) (ok bool, wait time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w := l.windows[ip]
	if w == nil || now.After(w.resets) {
		w = &window{resets: now.Add(l.per)}
		l.windows[ip] = w
	}
	if w.hits >= l.limit {
		return false, time.Until(w.resets)
	}
	w.hits++
	return true, 0
}

// RateLimit enforces a fixed-window per-client cap. Rejections carry the
// handlers' JSON error shape and a Retry-After hint.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	l := &limiter{limit: limit, per: per, windows: make(map[string]*window)}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.take(clientIP(r))
			if !ok {
				if wait < 0 {
					wait = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded","success":false}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the first valid address in X-Forwarded-For, then falls
// back to the remote address with any port stripped.
func clientIP(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
