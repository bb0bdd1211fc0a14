// Package normalize reshapes upstream provider payloads into the stable
// summaries served to the dashboard. Every function is pure: inputs are
// per-call Result records, and each output field has a documented default
// for when its source call failed.
package normalize

import "encoding/json"

// ActivityProfile is the headline numbers block of ActivitySummary.
type ActivityProfile struct {
	Repos              int `json:"repos"`
	Followers          int `json:"followers"`
	TotalContributions int `json:"totalContributions"`
	Stars              int `json:"stars"`
}

// TopRepo is a ranked repository.
type TopRepo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
}

// ContributionDay is one heatmap cell.
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ActivitySummary is the source-hosting activity payload.
type ActivitySummary struct {
	Profile       ActivityProfile     `json:"profile"`
	TopRepos      []TopRepo           `json:"topRepos"`
	Contributions [][]ContributionDay `json:"contributions"`
}

// EmptyActivity is the zero-value shape shown before data arrives.
func EmptyActivity() ActivitySummary {
	return ActivitySummary{TopRepos: []TopRepo{}, Contributions: [][]ContributionDay{}}
}

// LanguageShare is one entry of the coding-time language breakdown.
type LanguageShare struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

// TimeTrackingSummary is the coding-time payload.
type TimeTrackingSummary struct {
	Languages          []LanguageShare `json:"languages"`
	TotalTime          string          `json:"totalTime"`
	DailyAverage       string          `json:"dailyAverage"`
	BestDay            string          `json:"bestDay"`
	OptimizationFactor string          `json:"optimizationFactor"`
	IsLoaded           bool            `json:"isLoaded"`
}

// EmptyTimeTracking is the zero-value shape shown before data arrives.
func EmptyTimeTracking() TimeTrackingSummary {
	return TimeTrackingSummary{
		Languages:          []LanguageShare{},
		TotalTime:          NoTime,
		DailyAverage:       NoTime,
		BestDay:            NoBestDay,
		OptimizationFactor: "+0%",
	}
}

// TrafficCounts is a flattened view of the analytics stats.
type TrafficCounts struct {
	Pageviews int `json:"pageviews"`
	Visitors  int `json:"visitors"`
	Active    int `json:"active"`
}

// TrafficSummary is the site analytics payload. Stats is the upstream
// object verbatim, or null when that call failed.
type TrafficSummary struct {
	Stats   json.RawMessage `json:"stats"`
	Active  int             `json:"active"`
	Summary TrafficCounts   `json:"summary"`
}

// EmptyTraffic is the zero-value shape shown before data arrives.
func EmptyTraffic() TrafficSummary {
	return TrafficSummary{Stats: json.RawMessage("null")}
}
