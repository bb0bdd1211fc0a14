package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/jordanhubbard/statshub/internal/providers"
	"github.com/jordanhubbard/statshub/internal/providers/wakatime"
)

// LanguageLimit is how many languages the breakdown keeps.
const LanguageLimit = 8

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// WeekRanges returns the trailing 7-day window ending today and the 7 days
// before it, with "today" taken in a fixed UTC offset.
func WeekRanges(now time.Time, utcOffsetHours int) (current, previous DateRange) {
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", utcOffsetHours), utcOffsetHours*3600)
	local := now.In(zone)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)

	current = DateRange{Start: today.AddDate(0, 0, -6), End: today}
	previous = DateRange{Start: today.AddDate(0, 0, -13), End: today.AddDate(0, 0, -7)}
	return current, previous
}

// TimeTrackingInputs collects the outcome of each coding-time upstream call.
type TimeTrackingInputs struct {
	AllTime      providers.Result[*wakatime.AllTimeResponse]
	CurrentWeek  providers.Result[*wakatime.SummaryResponse]
	PreviousWeek providers.Result[*wakatime.SummaryResponse]
}

// TimeTracking builds the coding-time summary.
func TimeTracking(in TimeTrackingInputs) TimeTrackingSummary {
	out := EmptyTimeTracking()
	out.IsLoaded = true

	var week *wakatime.SummaryResponse
	if in.CurrentWeek.OK() {
		week = in.CurrentWeek.Value
	}
	var prev *wakatime.SummaryResponse
	if in.PreviousWeek.OK() {
		prev = in.PreviousWeek.Value
	}

	out.TotalTime = totalTime(in.AllTime, week)

	if week != nil {
		if avg := dailyAverageText(week.DailyAverage); avg != "" {
			out.DailyAverage = ShortenDuration(avg)
		}
		out.BestDay = BestDay(week.Data)
		out.Languages = Languages(week.Data, LanguageLimit)
	}

	out.OptimizationFactor = GrowthFactor(weekSeconds(week), weekSeconds(prev))
	return out
}

func totalTime(allTime providers.Result[*wakatime.AllTimeResponse], week *wakatime.SummaryResponse) string {
	if allTime.OK() && allTime.Value != nil {
		if d := allTime.Value.Data; d.TotalSeconds > 0 && d.Text != "" {
			return ShortenDuration(d.Text)
		}
	}
	if week != nil && week.CumulativeTotal.Text != "" {
		return ShortenDuration(week.CumulativeTotal.Text) + " (7d)"
	}
	return NoTime
}

func dailyAverageText(avg wakatime.DailyAverage) string {
	if avg.TextIncludingOtherLanguage != "" {
		return avg.TextIncludingOtherLanguage
	}
	return avg.Text
}

// weekSeconds prefers the provider's cumulative total and falls back to the
// sum of daily totals.
func weekSeconds(s *wakatime.SummaryResponse) float64 {
	if s == nil {
		return 0
	}
	if s.CumulativeTotal.Seconds > 0 {
		return s.CumulativeTotal.Seconds
	}
	var sum float64
	for _, d := range s.Data {
		sum += d.GrandTotal.TotalSeconds
	}
	return sum
}

// BestDay formats the day with the most coded time as "3h 20m (Jan 2)".
func BestDay(days []wakatime.SummaryDay) string {
	best := -1
	for i, d := range days {
		if d.GrandTotal.TotalSeconds <= 0 {
			continue
		}
		if best < 0 || d.GrandTotal.TotalSeconds > days[best].GrandTotal.TotalSeconds {
			best = i
		}
	}
	if best < 0 {
		return NoBestDay
	}

	d := days[best]
	text := ShortenDuration(d.GrandTotal.Text)
	if text == "" {
		text = ShortenDuration(fmt.Sprintf("%d mins", int(d.GrandTotal.TotalSeconds/60)))
	}
	if label := dayLabel(d.Range); label != "" {
		return fmt.Sprintf("%s (%s)", text, label)
	}
	return text
}

func dayLabel(r wakatime.SummaryRange) string {
	if t, err := time.Parse(time.DateOnly, r.Date); err == nil {
		return t.Format("Jan 2")
	}
	if t, err := time.Parse(time.RFC3339, r.Start); err == nil {
		return t.Format("Jan 2")
	}
	return ""
}

// Languages sums per-language seconds across days and returns the top n by
// time with their share of all language time. Shares are rounded one by one
// and are not rebalanced, so their sum can exceed 100 by a rounding step.
func Languages(days []wakatime.SummaryDay, n int) []LanguageShare {
	seconds := make(map[string]float64)
	var total float64
	for _, d := range days {
		for _, l := range d.Languages {
			if l.Name == "" || l.TotalSeconds <= 0 {
				continue
			}
			seconds[l.Name] += l.TotalSeconds
			total += l.TotalSeconds
		}
	}

	names := make([]string, 0, len(seconds))
	for name := range seconds {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if seconds[names[i]] != seconds[names[j]] {
			return seconds[names[i]] > seconds[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}

	out := make([]LanguageShare, 0, len(names))
	for _, name := range names {
		var pct float64
		if total > 0 {
			pct = round1(seconds[name] / total * 100)
		}
		out = append(out, LanguageShare{Name: name, Percent: pct, Color: LanguageColor(name)})
	}
	return out
}
