// Package ratelimit guards the public stats endpoints with a per-client
// token bucket, so a misbehaving dashboard cannot burn the upstream
// providers' quotas.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultMaxKeys = 50000
	staleAfter     = 10 * time.Minute
	sweepEvery     = 5 * time.Minute
)

// Limiter is a per-IP token bucket.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int           // tokens added per interval
	burst    int           // bucket capacity
	interval time.Duration // refill interval
	maxKeys  int
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
	counter  prometheus.Counter
}

type bucket struct {
	tokens   int
	lastFill time.Time
}

type Option func(*Limiter)

// WithCounter counts rejected requests.
func WithCounter(c prometheus.Counter) Option {
	return func(l *Limiter) { l.counter = c }
}

// WithMaxKeys caps the number of tracked clients.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

// New creates a limiter allowing rate requests per interval with bursts up
// to burst. A non-positive rate disables limiting.
func New(rate, burst int, interval time.Duration, opts ...Option) *Limiter {
	if burst < rate {
		burst = rate
	}
	l := &Limiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		burst:    burst,
		interval: interval,
		maxKeys:  defaultMaxKeys,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.sweep()
	return l
}

// Middleware rejects over-limit clients with 429 and a JSON error body. The
// client is identified by RemoteAddr without its port; put chi's RealIP in
// front when running behind a proxy.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.rate <= 0 || l.allow(clientKey(r)) {
			next.ServeHTTP(w, r)
			return
		}
		if l.counter != nil {
			l.counter.Inc()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSecs()))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
	})
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Limiter) retryAfterSecs() int {
	return int(math.Max(1, math.Ceil(l.interval.Seconds())))
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.evictOldest()
		}
		b = &bucket{tokens: l.burst, lastFill: now}
		l.buckets[key] = b
	}

	if steps := int(now.Sub(b.lastFill) / l.interval); steps > 0 {
		b.tokens = min(l.burst, b.tokens+steps*l.rate)
		b.lastFill = b.lastFill.Add(time.Duration(steps) * l.interval)
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// evictOldest must be called with l.mu held.
func (l *Limiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, b := range l.buckets {
		if oldestKey == "" || b.lastFill.Before(oldest) {
			oldestKey, oldest = k, b.lastFill
		}
	}
	if oldestKey != "" {
		delete(l.buckets, oldestKey)
	}
}

// Len reports how many clients are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.dropStale()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) dropStale() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-staleAfter)
	for k, b := range l.buckets {
		if b.lastFill.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}
