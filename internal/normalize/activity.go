package normalize

import (
	"sort"

	"github.com/jordanhubbard/statshub/internal/providers"
	"github.com/jordanhubbard/statshub/internal/providers/contributions"
	"github.com/jordanhubbard/statshub/internal/providers/github"
)

// TopRepoLimit is how many repositories the ranking keeps.
const TopRepoLimit = 5

// DefaultContributionsFallback is reported when the calendar feed gives no
// total.
// TODO: confirm with the site owner whether 116 should stay or become 0.
const DefaultContributionsFallback = 116

// ActivityInputs collects the outcome of each activity upstream call.
type ActivityInputs struct {
	Profile  providers.Result[github.Profile]
	Repos    providers.Result[[]github.Repo]
	Calendar providers.Result[contributions.Calendar]
}

// ActivityDefaults holds the fallback policy for missing activity data.
type ActivityDefaults struct {
	ContributionsFallback int
}

// Activity builds the activity summary. Failed calls degrade their own
// fields only.
func Activity(in ActivityInputs, def ActivityDefaults) ActivitySummary {
	out := EmptyActivity()

	if in.Profile.OK() {
		out.Profile.Repos = in.Profile.Value.PublicRepos
		out.Profile.Followers = in.Profile.Value.Followers
	}

	if in.Repos.OK() {
		out.Profile.Stars = SumStars(in.Repos.Value)
		out.TopRepos = RankRepos(in.Repos.Value, TopRepoLimit)
	}

	out.Profile.TotalContributions = def.ContributionsFallback
	if in.Calendar.OK() {
		cal := in.Calendar.Value
		if cal.Total != nil {
			out.Profile.TotalContributions = *cal.Total
		}
		for _, week := range cal.Weeks {
			days := make([]ContributionDay, 0, len(week))
			for _, d := range week {
				days = append(days, ContributionDay{Date: d.Date, Count: d.Count})
			}
			out.Contributions = append(out.Contributions, days)
		}
	}

	return out
}

// SumStars totals stargazers across repos.
func SumStars(repos []github.Repo) int {
	var total int
	for _, r := range repos {
		total += r.Stars
	}
	return total
}

// RankRepos returns up to n repos ordered by stars+forks descending. Ties
// keep their upstream order.
func RankRepos(repos []github.Repo, n int) []TopRepo {
	ranked := make([]github.Repo, len(repos))
	copy(ranked, repos)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Stars+ranked[i].Forks > ranked[j].Stars+ranked[j].Forks
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]TopRepo, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, TopRepo{
			ID:              r.ID,
			Name:            r.Name,
			HTMLURL:         r.HTMLURL,
			Description:     r.Description,
			Language:        r.Language,
			StargazersCount: r.Stars,
			ForksCount:      r.Forks,
		})
	}
	return out
}
