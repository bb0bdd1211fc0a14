package normalize

import (
	"fmt"
	"math"
	"regexp"
)

const (
	// NoTime is shown when no duration is available at all.
	NoTime = "0 mins"
	// NoBestDay is shown when no day in the window has coded time.
	NoBestDay = "N/A"
)

var unitPatterns = []struct {
	re   *regexp.Regexp
	abbr string
}{
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours|hour|hrs|hr)\b`), "h"},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:minutes|minute|mins|min)\b`), "m"},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:seconds|second|secs|sec)\b`), "s"},
}

// ShortenDuration abbreviates unit words in a provider duration text:
// "2 hours 30 mins" becomes "2h 30m". Already-short text is left unchanged.
func ShortenDuration(text string) string {
	for _, p := range unitPatterns {
		text = p.re.ReplaceAllString(text, "${1}"+p.abbr)
	}
	return text
}

// GrowthFactor formats the week-over-week change in coded seconds as a
// signed percentage.
func GrowthFactor(current, previous float64) string {
	switch {
	case current > 0 && previous > 0:
		pct := int(math.Round((current - previous) / previous * 100))
		if pct < 0 {
			return fmt.Sprintf("%d%%", pct)
		}
		return fmt.Sprintf("+%d%%", pct)
	case current > 0:
		return "+100%"
	default:
		return "+0%"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
