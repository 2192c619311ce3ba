package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	msgTooManyRequests = "Too many requests, please try again later."
	limiterSweepEvery  = 5 * time.Minute
)

// RateLimiter counts hits per key in fixed windows aligned to the clock,
// so every replica agrees on where a window starts.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

func windowBounds(now time.Time, window time.Duration) (start, end time.Time) {
	start = now.Truncate(window)
	return start, start.Add(window)
}

// ratePolicy bounds one class of traffic. Policies never share counters.
type ratePolicy struct {
	name   string
	limit  int
	window time.Duration
	// perUser counts authenticated requests against the caller's account
	// rather than the client address.
	perUser bool
}

var (
	browsePolicy     = ratePolicy{name: "browse", limit: 120, window: time.Minute}
	signupPolicy     = ratePolicy{name: "signup", limit: 5, window: time.Minute}
	loginPolicy      = ratePolicy{name: "login", limit: 12, window: time.Minute}
	placeWritePolicy = ratePolicy{name: "place_write", limit: 60, window: time.Minute, perUser: true}
	streamPolicy     = ratePolicy{name: "stream", limit: 30, window: 30 * time.Second}
)

// subject reports whom a request is counted against.
func (p ratePolicy) subject(req *http.Request) (kind, id string) {
	if p.perUser {
		if info, ok := authInfoFromContext(req.Context()); ok && info.UserID != "" {
			return "user", info.UserID
		}
	}
	if ip := clientIP(req); ip != "" {
		return "client", ip
	}
	return "client", "unknown"
}

func (p ratePolicy) key(req *http.Request) (string, string) {
	kind, id := p.subject(req)
	return p.name + ":" + kind + ":" + id, kind
}

// limit rejects requests over the policy with 429 and reports the budget in
// X-RateLimit-* headers.
func (r *Router) limit(p ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		key, kind := p.key(req)
		decision := r.limiter.Allow(key, p.limit, p.window)
		setRateHeaders(w.Header(), p.limit, decision)
		if !decision.allowed {
			r.recordRateLimitHit(p.name, kind)
			r.logger.Warn("rate limit exceeded", "policy", p.name, "subject", kind, "path", req.URL.Path)
			if !decision.windowEnd.IsZero() {
				retry := int(time.Until(decision.windowEnd).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
		next(w, req)
	}
}

func setRateHeaders(h http.Header, limit int, decision rateDecision) {
	remaining := max(limit-decision.count, 0)
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

type windowCount struct {
	count int
	ends  time.Time
}

// memoryLimiter is the single-process RateLimiter. Expired windows are
// swept lazily from Allow.
type memoryLimiter struct {
	mu        sync.Mutex
	counts    map[string]windowCount
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter returns a process-local RateLimiter.
func NewMemoryRateLimiter() RateLimiter {
	return &memoryLimiter{counts: make(map[string]windowCount), now: time.Now}
}

func (m *memoryLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 || window <= 0 {
		return rateDecision{allowed: true}
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= limiterSweepEvery {
		for k, c := range m.counts {
			if !now.Before(c.ends) {
				delete(m.counts, k)
			}
		}
		m.lastSweep = now
	}

	c, ok := m.counts[key]
	if !ok || !now.Before(c.ends) {
		_, end := windowBounds(now, window)
		c = windowCount{ends: end}
	}
	if c.count >= limit {
		return rateDecision{allowed: false, count: c.count, windowEnd: c.ends}
	}
	c.count++
	m.counts[key] = c
	return rateDecision{allowed: true, count: c.count, windowEnd: c.ends}
}

func (m *memoryLimiter) Close() {}
