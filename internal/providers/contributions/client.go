// Package contributions reads a day-by-day contribution calendar from a
// third-party feed that mirrors GitHub's profile heatmap.
package contributions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jordanhubbard/statshub/internal/providers"
)

const (
	ProviderID     = "contributions"
	DefaultBaseURL = "https://github-contributions-api.jogruber.de/v4"
)

// Day is one cell of the calendar.
type Day struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Calendar is the normalized feed. Total is nil when the upstream did not
// report one.
type Calendar struct {
	Total *int
	Weeks [][]Day
}

// Client fetches calendars.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// New creates a client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Calendar fetches the trailing-year calendar for user.
func (c *Client) Calendar(ctx context.Context, user string) (Calendar, error) {
	endpoint := fmt.Sprintf("%s/%s?y=last", c.baseURL, url.PathEscape(user))

	var raw feed
	if err := providers.GetJSON(ctx, c.client, endpoint, nil, &raw); err != nil {
		return Calendar{}, fmt.Errorf("contributions: fetch calendar: %w", err)
	}
	return raw.normalize(), nil
}

// feed accepts the shapes seen across calendar providers: a flat
// "contributions" day list, pre-grouped weeks, or GraphQL-style
// weeks[].contributionDays[].
type feed struct {
	Total              json.RawMessage `json:"total"`
	TotalContributions *int            `json:"totalContributions"`
	Contributions      json.RawMessage `json:"contributions"`
	Weeks              []struct {
		ContributionDays []rawDay `json:"contributionDays"`
	} `json:"weeks"`
}

type rawDay struct {
	Date              string `json:"date"`
	Count             *int   `json:"count"`
	ContributionCount *int   `json:"contributionCount"`
}

func (d rawDay) toDay() Day {
	day := Day{Date: d.Date}
	switch {
	case d.Count != nil:
		day.Count = *d.Count
	case d.ContributionCount != nil:
		day.Count = *d.ContributionCount
	}
	return day
}

func (f feed) normalize() Calendar {
	cal := Calendar{Total: f.total()}

	if len(f.Weeks) > 0 {
		for _, w := range f.Weeks {
			week := make([]Day, 0, len(w.ContributionDays))
			for _, d := range w.ContributionDays {
				week = append(week, d.toDay())
			}
			cal.Weeks = append(cal.Weeks, week)
		}
		return cal
	}

	var nested [][]rawDay
	if err := json.Unmarshal(f.Contributions, &nested); err == nil && len(nested) > 0 {
		for _, w := range nested {
			week := make([]Day, 0, len(w))
			for _, d := range w {
				week = append(week, d.toDay())
			}
			cal.Weeks = append(cal.Weeks, week)
		}
		return cal
	}

	var flat []rawDay
	if err := json.Unmarshal(f.Contributions, &flat); err == nil {
		days := make([]Day, 0, len(flat))
		for _, d := range flat {
			days = append(days, d.toDay())
		}
		cal.Weeks = GroupWeeks(days)
	}
	return cal
}

// total prefers totalContributions, then "total" as either a number or an
// object of period→count (summed).
func (f feed) total() *int {
	if f.TotalContributions != nil {
		n := *f.TotalContributions
		return &n
	}
	if len(f.Total) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(f.Total, &n); err == nil {
		v := int(n)
		return &v
	}
	var byPeriod map[string]float64
	if err := json.Unmarshal(f.Total, &byPeriod); err == nil && len(byPeriod) > 0 {
		var sum float64
		for _, v := range byPeriod {
			sum += v
		}
		v := int(sum)
		return &v
	}
	return nil
}

// GroupWeeks splits a flat day list into Sunday-first calendar weeks. Days
// are sorted by date and undated days are dropped. A gap in the feed never
// merges two calendar weeks.
func GroupWeeks(days []Day) [][]Day {
	dated := make([]Day, 0, len(days))
	for _, d := range days {
		if _, err := time.Parse(time.DateOnly, d.Date); err == nil {
			dated = append(dated, d)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].Date < dated[j].Date })

	var weeks [][]Day
	var cur []Day
	var curStart time.Time
	for _, d := range dated {
		t, _ := time.Parse(time.DateOnly, d.Date)
		start := t.AddDate(0, 0, -int(t.Weekday()))
		if len(cur) > 0 && !start.Equal(curStart) {
			weeks = append(weeks, cur)
			cur = nil
		}
		curStart = start
		cur = append(cur, d)
	}
	if len(cur) > 0 {
		weeks = append(weeks, cur)
	}
	return weeks
}
