package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jordanhubbard/statshub/internal/normalize"
)

func TestRender_loaded(t *testing.T) {
	s := EmptySnapshot()
	s.Loading = false
	s.Activity.Profile = normalize.ActivityProfile{Repos: 7, Followers: 3, TotalContributions: 321, Stars: 42}
	s.Activity.TopRepos = []normalize.TopRepo{{Name: "statshub", StargazersCount: 40, ForksCount: 5, Language: "Go"}}
	s.Activity.Contributions = [][]normalize.ContributionDay{{{Date: "2024-03-03", Count: 0}, {Date: "2024-03-04", Count: 4}}}
	s.Coding = normalize.TimeTrackingSummary{
		Languages:          []normalize.LanguageShare{{Name: "Go", Percent: 75.5, Color: "#00add8"}},
		TotalTime:          "120h",
		DailyAverage:       "2h 5m",
		BestDay:            "5h (Mar 4)",
		OptimizationFactor: "-12%",
		IsLoaded:           true,
	}
	s.Traffic.Summary = normalize.TrafficCounts{Pageviews: 900, Visitors: 250, Active: 3}
	s.Traffic.Active = 3

	out := Render(s)

	for _, want := range []string{"Activity", "321", "statshub", "Coding time", "120h", "2h 5m", "5h (Mar 4)", "-12%", "75.5%", "Traffic", "900", "250", "█"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Loading")
	assert.NotContains(t, out, "unavailable")
	assert.NotContains(t, out, "Failed to load stats")
}

func TestRender_partialFailureShowsDefaults(t *testing.T) {
	s := EmptySnapshot()
	s.Loading = false
	s.CodingErr = errors.New("coding: status 500")

	out := Render(s)

	assert.Contains(t, out, "(unavailable)")
	assert.Contains(t, out, normalize.NoTime)
	assert.Contains(t, out, normalize.NoBestDay)
	assert.NotContains(t, out, "Failed to load stats")
}

func TestRender_allFailedBanner(t *testing.T) {
	s := EmptySnapshot()
	s.Loading = false
	s.Err = ErrAllFailed

	assert.Contains(t, Render(s), "Failed to load stats")
}

func TestRender_loading(t *testing.T) {
	assert.Contains(t, Render(EmptySnapshot()), "Loading...")
}

func TestHeatLevel(t *testing.T) {
	assert.Equal(t, '·', heatLevel(0, 10))
	assert.Equal(t, '·', heatLevel(3, 0))
	assert.Equal(t, '░', heatLevel(1, 10))
	assert.Equal(t, '█', heatLevel(10, 10))
}
