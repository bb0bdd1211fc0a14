package httpapi

import (
	"sync/atomic"
	"time"

	"github.com/jordanhubbard/statshub/internal/providers/contributions"
	"github.com/jordanhubbard/statshub/internal/providers/github"
	"github.com/jordanhubbard/statshub/internal/providers/umami"
	"github.com/jordanhubbard/statshub/internal/providers/wakatime"
)

// Settings are the non-secret knobs the aggregation handlers read.
type Settings struct {
	// UpstreamTimeout bounds each upstream call on its own.
	UpstreamTimeout       time.Duration
	CacheMaxAge           time.Duration
	ContributionsFallback int
	UTCOffsetHours        int
	TrafficEpoch          time.Time
	// ExposeStacks adds stack traces to traffic failure bodies.
	ExposeStacks bool
}

// Sources is one consistent snapshot of provider clients and identities.
// A non-empty Missing* list turns the matching endpoint into a
// configuration error without contacting any upstream.
type Sources struct {
	Settings Settings

	GitHub         *github.Client
	Contributions  *contributions.Client
	GitHubUser     string
	WakaTime       *wakatime.Client
	Umami          *umami.Client
	UmamiWebsiteID string

	MissingActivity []string
	MissingCoding   []string
	MissingTraffic  []string
}

// SourceSet publishes Sources to handlers. Swapping the snapshot (on a
// config reload) affects only requests that start afterwards.
type SourceSet struct {
	p atomic.Pointer[Sources]
}

func NewSourceSet(s *Sources) *SourceSet {
	set := &SourceSet{}
	set.p.Store(s)
	return set
}

func (s *SourceSet) Load() *Sources   { return s.p.Load() }
func (s *SourceSet) Store(v *Sources) { s.p.Store(v) }
