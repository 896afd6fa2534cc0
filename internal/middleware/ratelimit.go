package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// window is one fixed counting window for a single client identity.
type window struct {
	count   int
	resetAt time.Time
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed           bool
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int
}

// RateLimiter is a fixed-window counter keyed by client IP. Instances are
// constructed explicitly so tests can create isolated limiters; the periodic
// sweep goroutine belongs to the instance and stops on Close.
//
// Clients are identified by the first valid X-Forwarded-For address with a
// RemoteAddr fallback. That header is spoofable; this is a request-shaping
// convenience, not a security boundary.
type RateLimiter struct {
	limit  int
	per    time.Duration
	now    func() time.Time
	mu     sync.Mutex
	window map[string]*window
	stop   chan struct{}
	done   chan struct{}
}

// NewRateLimiter constructs a limiter allowing limit requests per window and
// starts its background sweep.
func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	l := &RateLimiter{
		limit:  limit,
		per:    per,
		now:    time.Now,
		window: make(map[string]*window),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.sweepLoop(per)
	return l
}

// Allow performs one fixed-window admission check for the given identity.
func (l *RateLimiter) Allow(identity string) Decision {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.window[identity]
	if !ok || !now.Before(w.resetAt) {
		// Expired windows are replaced, never merged.
		w = &window{count: 1, resetAt: now.Add(l.per)}
		l.window[identity] = w
		return Decision{Allowed: true, Remaining: l.limit - 1, ResetAt: w.resetAt}
	}

	w.count++
	if w.count > l.limit {
		retry := int((w.resetAt.Sub(now) + time.Second - 1) / time.Second)
		if retry < 1 {
			retry = 1
		}
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt, RetryAfterSeconds: retry}
	}
	return Decision{Allowed: true, Remaining: l.limit - w.count, ResetAt: w.resetAt}
}

// Middleware applies the limiter to a handler, attaching machine-readable
// quota headers on every response and a Retry-After hint on rejection.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := l.Allow(clientIPForRateLimit(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "too many generation requests, slow down",
				"retry_after": decision.RetryAfterSeconds,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the sweep goroutine. The limiter stays usable afterwards but
// expired windows are then only replaced lazily on access.
func (l *RateLimiter) Close() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
		<-l.done
	}
}

func (l *RateLimiter) sweepLoop(interval time.Duration) {
	defer close(l.done)
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep deletes expired windows so idle identities do not accumulate.
func (l *RateLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, w := range l.window {
		if !now.Before(w.resetAt) {
			delete(l.window, identity)
		}
	}
}

// ClientIP exposes the same identity extraction the limiter uses, for
// callers that want to annotate logs with the requester's address.
func ClientIP(r *http.Request) string {
	return clientIPForRateLimit(r)
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
