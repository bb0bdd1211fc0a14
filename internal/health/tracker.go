// Package health keeps a running view of each upstream provider's health,
// fed by live aggregation calls and the optional background prober. It is
// reporting only: endpoint responses never depend on it.
package health

import (
	"sort"
	"sync"
	"time"
)

type State string

const (
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateDown     State = "down"
)

// Stats captures runtime health for a single provider.
type Stats struct {
	Provider      string    `json:"provider"`
	State         State     `json:"state"`
	TotalRequests int64     `json:"total_requests"`
	TotalErrors   int64     `json:"total_errors"`
	ConsecErrors  int       `json:"consec_errors"`
	AvgLatencyMs  float64   `json:"avg_latency_ms"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorAt   time.Time `json:"last_error_at,omitzero"`
	LastSuccessAt time.Time `json:"last_success_at,omitzero"`
}

// ErrorRate is the share of failed calls.
func (s Stats) ErrorRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalErrors) / float64(s.TotalRequests)
}

type TrackerConfig struct {
	// Consecutive errors before a provider is reported degraded.
	ConsecErrorsForDegraded int
	// Consecutive errors before a provider is reported down.
	ConsecErrorsForDown int
}

func DefaultConfig() TrackerConfig {
	return TrackerConfig{
		ConsecErrorsForDegraded: 2,
		ConsecErrorsForDown:     5,
	}
}

// Tracker is safe for concurrent use.
type Tracker struct {
	cfg      TrackerConfig
	onUpdate func(provider string, state State)
	now      func() time.Time

	mu    sync.RWMutex
	stats map[string]*Stats
}

type TrackerOption func(*Tracker)

// WithOnUpdate registers a callback run after every recorded call, outside
// the tracker lock. Used to keep the provider state gauge current.
func WithOnUpdate(fn func(provider string, state State)) TrackerOption {
	return func(t *Tracker) { t.onUpdate = fn }
}

func NewTracker(cfg TrackerConfig, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		cfg:   cfg,
		now:   time.Now,
		stats: make(map[string]*Stats),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register makes a provider visible in AllStats before its first call.
func (t *Tracker) Register(providers ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range providers {
		t.getOrCreate(p)
	}
}

func (t *Tracker) RecordSuccess(provider string, latencyMs float64) {
	t.mu.Lock()
	s := t.getOrCreate(provider)
	s.TotalRequests++
	s.ConsecErrors = 0
	s.LastSuccessAt = t.now()
	s.State = StateHealthy
	if s.TotalRequests == 1 || s.AvgLatencyMs == 0 {
		s.AvgLatencyMs = latencyMs
	} else {
		s.AvgLatencyMs = s.AvgLatencyMs*0.9 + latencyMs*0.1
	}
	state := s.State
	t.mu.Unlock()

	t.notify(provider, state)
}

func (t *Tracker) RecordError(provider string, errMsg string) {
	t.mu.Lock()
	s := t.getOrCreate(provider)
	s.TotalRequests++
	s.TotalErrors++
	s.ConsecErrors++
	s.LastError = errMsg
	s.LastErrorAt = t.now()
	switch {
	case s.ConsecErrors >= t.cfg.ConsecErrorsForDown:
		s.State = StateDown
	case s.ConsecErrors >= t.cfg.ConsecErrorsForDegraded:
		s.State = StateDegraded
	}
	state := s.State
	t.mu.Unlock()

	t.notify(provider, state)
}

func (t *Tracker) notify(provider string, state State) {
	if t.onUpdate != nil {
		t.onUpdate(provider, state)
	}
}

// GetStats returns a copy of the stats for provider. Unknown providers are
// reported healthy with no traffic.
func (t *Tracker) GetStats(provider string) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.stats[provider]; ok {
		return *s
	}
	return Stats{Provider: provider, State: StateHealthy}
}

// AllStats returns copies of every provider's stats ordered by name.
func (t *Tracker) AllStats() []Stats {
	t.mu.RLock()
	out := make([]Stats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// must be called with t.mu held
func (t *Tracker) getOrCreate(provider string) *Stats {
	s, ok := t.stats[provider]
	if !ok {
		s = &Stats{Provider: provider, State: StateHealthy}
		t.stats[provider] = s
	}
	return s
}
