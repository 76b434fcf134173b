// Package limits throttles inbound gateway traffic with per-caller token
// buckets. Callers are keyed by API key when one is presented, falling back
// to the remote host.
package limits

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelgate/gateway/internal/config"
)

// Result describes a rejected request.
type Result struct {
	Code              string
	Message           string
	RetryAfterSeconds int
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// Limiter is a token-bucket rate limiter. Each caller gets a bucket of
// capacity Burst refilled at RequestsPerSecond.
type Limiter struct {
	ratePerSecond float64
	burst         float64
	nowFn         func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

const bucketSweepInterval = 2 * time.Minute

func NewLimiter(cfg config.LimitsConfig) *Limiter {
	if !cfg.Enabled {
		return nil
	}
	return &Limiter{
		ratePerSecond: cfg.RequestsPerSecond,
		burst:         float64(cfg.Burst),
		nowFn:         func() time.Time { return time.Now().UTC() },
		buckets:       map[string]*bucket{},
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.ratePerSecond > 0 && l.burst > 0
}

// CheckRequest consumes one token from the caller's bucket. It returns nil
// when the request may proceed, or a Result describing the rejection.
func (l *Limiter) CheckRequest(r *http.Request) *Result {
	if !l.Enabled() {
		return nil
	}
	return l.take(callerKey(r))
}

func (l *Limiter) take(key string) *Result {
	now := l.nowFn().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeSweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastFill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+elapsed*l.ratePerSecond)
		b.lastFill = now
	}

	if b.tokens < 1 {
		return &Result{
			Code:              "RATE_LIMIT_EXCEEDED",
			Message:           "request rate limit exceeded",
			RetryAfterSeconds: l.retryAfterSeconds(b),
		}
	}
	b.tokens--
	return nil
}

func (l *Limiter) retryAfterSeconds(b *bucket) int {
	wait := (1 - b.tokens) / l.ratePerSecond
	if wait <= 1 {
		return 1
	}
	return int(math.Ceil(wait))
}

// maybeSweep drops buckets that have been full (idle) long enough to be
// indistinguishable from fresh ones. Caller holds l.mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < bucketSweepInterval {
		return
	}
	for key, b := range l.buckets {
		elapsed := now.Sub(b.lastFill).Seconds()
		if b.tokens+elapsed*l.ratePerSecond >= l.burst {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// callerKey identifies the caller for bucketing: the bearer token or API key
// header when present, otherwise the remote host.
func callerKey(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		return "auth|" + auth
	}
	if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" {
		return "key|" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "host|" + host
}
