// Package dashboard is the client side of the stats API: a one-shot poller
// that fetches the three summaries concurrently and a terminal renderer for
// the result.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jordanhubbard/statshub/internal/normalize"
	"github.com/jordanhubbard/statshub/internal/providers"
)

const (
	ActivityPath = "/api/stats/activity"
	CodingPath   = "/api/stats/coding"
	TrafficPath  = "/api/stats/traffic"
)

// ErrAllFailed is wrapped by Snapshot.Err when no slice could be loaded.
var ErrAllFailed = errors.New("all stats requests failed")

// Snapshot is the dashboard state. Each slice holds its zero-value summary
// until its response arrives, and keeps it if the request fails.
type Snapshot struct {
	Activity normalize.ActivitySummary
	Coding   normalize.TimeTrackingSummary
	Traffic  normalize.TrafficSummary

	ActivityErr error
	CodingErr   error
	TrafficErr  error

	// Loading clears once all three requests have settled.
	Loading bool
	// Err is set only when all three requests failed.
	Err error
}

// EmptySnapshot is the state before any response arrives.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Activity: normalize.EmptyActivity(),
		Coding:   normalize.EmptyTimeTracking(),
		Traffic:  normalize.EmptyTraffic(),
		Loading:  true,
	}
}

// Poller fetches the stats endpoints of one statshub server.
type Poller struct {
	baseURL  string
	client   *http.Client
	onUpdate func(Snapshot)
}

type Option func(*Poller)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.client = c }
}

// WithOnUpdate registers a callback that receives a snapshot every time a
// slice settles, so partial results can be shown. Calls are serialized.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

func NewPoller(baseURL string, opts ...Option) *Poller {
	p := &Poller{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Fetch requests all three endpoints concurrently and returns the settled
// snapshot. It never retries.
func (p *Poller) Fetch(ctx context.Context) Snapshot {
	var (
		mu      sync.Mutex
		snap    = EmptySnapshot()
		settled int
	)
	settle := func(apply func(*Snapshot)) {
		mu.Lock()
		defer mu.Unlock()
		apply(&snap)
		settled++
		if settled == 3 {
			snap.Loading = false
			if snap.ActivityErr != nil && snap.CodingErr != nil && snap.TrafficErr != nil {
				snap.Err = fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(snap.ActivityErr, snap.CodingErr, snap.TrafficErr))
			}
		}
		if p.onUpdate != nil {
			p.onUpdate(snap)
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		var out normalize.ActivitySummary
		err := p.get(ctx, ActivityPath, &out)
		settle(func(s *Snapshot) {
			if err != nil {
				s.ActivityErr = err
				return
			}
			s.Activity = out
		})
		return nil
	})
	g.Go(func() error {
		var out normalize.TimeTrackingSummary
		err := p.get(ctx, CodingPath, &out)
		settle(func(s *Snapshot) {
			if err != nil {
				s.CodingErr = err
				return
			}
			s.Coding = out
		})
		return nil
	})
	g.Go(func() error {
		var out normalize.TrafficSummary
		err := p.get(ctx, TrafficPath, &out)
		settle(func(s *Snapshot) {
			if err != nil {
				s.TrafficErr = err
				return
			}
			s.Traffic = out
		})
		return nil
	})
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return snap
}

func (p *Poller) get(ctx context.Context, path string, out any) error {
	if err := providers.GetJSON(ctx, p.client, p.baseURL+path, nil, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
