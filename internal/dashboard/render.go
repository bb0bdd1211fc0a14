package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jordanhubbard/statshub/internal/normalize"
)

const (
	cardWidth     = 58
	barWidth      = 24
	heatmapWeeks  = 26
	maxRepoNameLn = 28
)

// Theme holds the color slots used by Render.
type Theme struct {
	Title  lipgloss.Color
	Border lipgloss.Color
	Label  lipgloss.Color
	Value  lipgloss.Color
	Subtle lipgloss.Color
	Error  lipgloss.Color
	Up     lipgloss.Color
	Down   lipgloss.Color
	Heat   lipgloss.Color
}

var DefaultTheme = Theme{
	Title:  lipgloss.Color("62"),
	Border: lipgloss.Color("241"),
	Label:  lipgloss.Color("246"),
	Value:  lipgloss.Color("255"),
	Subtle: lipgloss.Color("241"),
	Error:  lipgloss.Color("9"),
	Up:     lipgloss.Color("42"),
	Down:   lipgloss.Color("196"),
	Heat:   lipgloss.Color("35"),
}

type styles struct {
	title, label, value, subtle, errText, up, down, heat lipgloss.Style
	card                                                 lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Title),
		label:   lipgloss.NewStyle().Foreground(t.Label),
		value:   lipgloss.NewStyle().Bold(true).Foreground(t.Value),
		subtle:  lipgloss.NewStyle().Foreground(t.Subtle),
		errText: lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		up:      lipgloss.NewStyle().Foreground(t.Up),
		down:    lipgloss.NewStyle().Foreground(t.Down),
		heat:    lipgloss.NewStyle().Foreground(t.Heat),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1).
			Width(cardWidth),
	}
}

// Render draws the snapshot with DefaultTheme.
func Render(s Snapshot) string {
	return RenderWithTheme(s, DefaultTheme)
}

// RenderWithTheme draws the snapshot as three stacked cards. Failed slices
// show their default values with an "unavailable" note; the error banner
// only appears when every slice failed.
func RenderWithTheme(s Snapshot, t Theme) string {
	st := newStyles(t)

	var parts []string
	if s.Err != nil {
		parts = append(parts, st.errText.Render("Failed to load stats: "+s.Err.Error()))
	}
	if s.Loading {
		parts = append(parts, st.subtle.Render("Loading..."))
	}
	parts = append(parts,
		st.card.Render(renderActivity(st, s.Activity, s.ActivityErr)),
		st.card.Render(renderCoding(st, s.Coding, s.CodingErr)),
		st.card.Render(renderTraffic(st, s.Traffic, s.TrafficErr)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func header(st styles, title string, err error) string {
	h := st.title.Render(title)
	if err != nil {
		h += " " + st.subtle.Render("(unavailable)")
	}
	return h
}

func stat(st styles, label string, value any) string {
	return st.label.Render(label+" ") + st.value.Render(fmt.Sprint(value))
}

func renderActivity(st styles, a normalize.ActivitySummary, err error) string {
	var b strings.Builder
	b.WriteString(header(st, "Activity", err))
	b.WriteString("\n")
	b.WriteString(strings.Join([]string{
		stat(st, "Repos", a.Profile.Repos),
		stat(st, "Stars", a.Profile.Stars),
		stat(st, "Followers", a.Profile.Followers),
		stat(st, "Contributions", a.Profile.TotalContributions),
	}, "  "))

	if len(a.TopRepos) > 0 {
		b.WriteString("\n\n")
		b.WriteString(st.label.Render("Top repositories"))
		for _, r := range a.TopRepos {
			name := r.Name
			if len(name) > maxRepoNameLn {
				name = name[:maxRepoNameLn-3] + "..."
			}
			line := fmt.Sprintf("%-*s ★ %-4d ⑂ %d", maxRepoNameLn, name, r.StargazersCount, r.ForksCount)
			if r.Language != "" {
				line += "  " + st.subtle.Render(r.Language)
			}
			b.WriteString("\n  " + line)
		}
	}

	if hm := heatmap(st, a.Contributions); hm != "" {
		b.WriteString("\n\n")
		b.WriteString(hm)
	}
	return b.String()
}

var heatLevels = []rune(" ░▒▓█")

// heatmap draws the most recent weeks as columns, Sunday at the top.
func heatmap(st styles, weeks [][]normalize.ContributionDay) string {
	if len(weeks) == 0 {
		return ""
	}
	if len(weeks) > heatmapWeeks {
		weeks = weeks[len(weeks)-heatmapWeeks:]
	}

	peak := 0
	for _, w := range weeks {
		for _, d := range w {
			peak = max(peak, d.Count)
		}
	}

	rows := make([][]rune, 7)
	for i := range rows {
		rows[i] = []rune(strings.Repeat(" ", len(weeks)))
	}
	for col, w := range weeks {
		for row, d := range w {
			if row >= 7 {
				break
			}
			rows[row][col] = heatLevel(d.Count, peak)
		}
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, st.heat.Render(string(r)))
	}
	return strings.Join(lines, "\n")
}

func heatLevel(count, peak int) rune {
	if count <= 0 || peak <= 0 {
		return '·'
	}
	idx := 1 + count*(len(heatLevels)-2)/peak
	return heatLevels[min(idx, len(heatLevels)-1)]
}

func renderCoding(st styles, c normalize.TimeTrackingSummary, err error) string {
	var b strings.Builder
	b.WriteString(header(st, "Coding time", err))
	b.WriteString("\n")

	growth := st.up
	if strings.HasPrefix(c.OptimizationFactor, "-") {
		growth = st.down
	}
	b.WriteString(stat(st, "Total", c.TotalTime) + "  " + stat(st, "Daily avg", c.DailyAverage))
	b.WriteString("\n")
	b.WriteString(stat(st, "Best day", c.BestDay) + "  " +
		st.label.Render("Week over week ") + growth.Render(c.OptimizationFactor))

	if len(c.Languages) > 0 {
		b.WriteString("\n")
		for _, l := range c.Languages {
			filled := min(int(l.Percent/100*barWidth), barWidth)
			if l.Percent > 0 && filled == 0 {
				filled = 1
			}
			bar := lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color)).Render(strings.Repeat("█", filled))
			fmt.Fprintf(&b, "\n%-12s %s%s %5.1f%%", l.Name, bar, strings.Repeat(" ", barWidth-filled), l.Percent)
		}
	}
	return b.String()
}

func renderTraffic(st styles, t normalize.TrafficSummary, err error) string {
	var b strings.Builder
	b.WriteString(header(st, "Traffic", err))
	b.WriteString("\n")
	b.WriteString(strings.Join([]string{
		stat(st, "Pageviews", t.Summary.Pageviews),
		stat(st, "Visitors", t.Summary.Visitors),
		stat(st, "Active now", t.Active),
	}, "  "))
	return b.String()
}
