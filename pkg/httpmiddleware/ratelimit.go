package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures a sliding window limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// Key extracts the client key. Defaults to the client IP.
	Key func(*http.Request) string
	// Skip bypasses the limiter for matching requests, e.g. health probes.
	Skip func(*http.Request) bool
}

// window holds counts for the current and previous fixed windows; the
// effective count weights the previous one by its remaining overlap.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type limiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.Key == nil {
		cfg.Key = ClientIP
	}
	return &limiter{cfg: cfg, now: time.Now, clients: make(map[string]*window)}
}

func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.cfg.Window
	w, found := l.clients[key]
	if !found {
		w = &window{currStart: now.Truncate(size)}
		l.clients[key] = w
	}
	switch elapsed := now.Sub(w.currStart); {
	case elapsed >= 2*size:
		w.prev, w.curr = 0, 0
		w.currStart = now.Truncate(size)
	case elapsed >= size:
		w.prev, w.curr = w.curr, 0
		w.currStart = w.currStart.Add(size)
	}

	overlap := 1 - now.Sub(w.currStart).Seconds()/size.Seconds()
	count := w.prev*math.Max(overlap, 0) + w.curr
	reset = w.currStart.Add(size)
	if count >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	w.curr++
	return max(int(float64(l.cfg.Max)-count-1), 0), reset, true
}

func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if now.Sub(w.currStart) >= 2*l.cfg.Window {
			delete(l.clients, key)
		}
	}
}

// RateLimit enforces cfg per client. Rejected requests get 429 with
// Retry-After; every limited response carries X-RateLimit-* headers.
// Idle clients are swept every two windows until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		t := time.NewTicker(2 * cfg.Window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.sweep(now)
			}
		}
	}()
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.Skip != nil && l.cfg.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}
		now := l.now()
		remaining, reset, ok := l.take(l.cfg.Key(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if !ok {
			retry := math.Ceil(max(reset.Sub(now), 0).Seconds())
			h.Set("Retry-After", strconv.Itoa(int(retry)))
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PathPrefix reports whether the request path starts with any prefix.
func PathPrefix(prefixes ...string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				return true
			}
		}
		return false
	}
}
