package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Target is an upstream root checked for reachability.
type Target struct {
	Provider string
	URL      string
}

type ProberConfig struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
}

func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		Interval:     5 * time.Minute,
		ProbeTimeout: 5 * time.Second,
	}
}

// Prober periodically sends an unauthenticated GET to each target and
// records the outcome in the Tracker, so the admin view stays fresh between
// dashboard visits. Any answer below 500 means the provider is reachable.
type Prober struct {
	cfg     ProberConfig
	tracker *Tracker
	client  *http.Client
	logger  *slog.Logger
	targets []Target

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewProber(cfg ProberConfig, tracker *Tracker, targets []Target, client *http.Client, logger *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	kept := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.URL != "" {
			kept = append(kept, t)
		}
	}
	return &Prober{
		cfg:     cfg,
		tracker: tracker,
		client:  client,
		logger:  logger,
		targets: kept,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs one probe round immediately and then one per interval.
func (p *Prober) Start() {
	go p.run()
}

// Stop signals the loop and waits for it to exit.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

func (p *Prober) run() {
	defer close(p.done)

	p.probeAll()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.probeAll()
		case <-p.stop:
			return
		}
	}
}

func (p *Prober) probeAll() {
	var wg sync.WaitGroup
	for _, t := range p.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.probe(t)
		}()
	}
	wg.Wait()
}

func (p *Prober) probe(target Target) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		p.tracker.RecordError(target.Provider, "probe: "+err.Error())
		return
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	latencyMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		p.tracker.RecordError(target.Provider, "probe: "+err.Error())
		p.logger.Warn("health probe failed",
			slog.String("provider", target.Provider),
			slog.String("error", err.Error()),
		)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		p.tracker.RecordError(target.Provider, "probe: HTTP "+resp.Status)
		p.logger.Warn("health probe unhealthy",
			slog.String("provider", target.Provider),
			slog.Int("status", resp.StatusCode),
		)
		return
	}
	p.tracker.RecordSuccess(target.Provider, latencyMs)
	p.logger.Debug("health probe ok",
		slog.String("provider", target.Provider),
		slog.Int("status", resp.StatusCode),
		slog.Float64("latency_ms", latencyMs),
	)
}
