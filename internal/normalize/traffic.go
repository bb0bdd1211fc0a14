package normalize

import (
	"encoding/json"

	"github.com/jordanhubbard/statshub/internal/providers"
	"github.com/jordanhubbard/statshub/internal/providers/umami"
)

// Traffic builds the analytics summary. A failed stats call yields
// stats:null; a failed active call yields active:0.
func Traffic(stats providers.Result[json.RawMessage], active providers.Result[umami.ActiveCount]) TrafficSummary {
	out := EmptyTraffic()

	if active.OK() && active.Value > 0 {
		out.Active = int(active.Value)
	}
	out.Summary.Active = out.Active

	if stats.OK() && len(stats.Value) > 0 {
		out.Stats = stats.Value
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(stats.Value, &fields); err == nil {
			out.Summary.Pageviews = statValue(fields["pageviews"])
			out.Summary.Visitors = statValue(fields["visitors"])
		}
	}
	return out
}

// statValue reads a metric that is either a bare number or {"value": N}.
func statValue(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return nonNegative(n)
	}
	var wrapped struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != nil {
		return nonNegative(*wrapped.Value)
	}
	return 0
}

func nonNegative(f float64) int {
	if f < 0 {
		return 0
	}
	return int(f)
}
