// Package github fetches the profile and repository list of a single
// GitHub user.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v62/github"

	"github.com/jordanhubbard/statshub/internal/providers"
)

const (
	// ProviderID is the name used for metrics, health and errors.
	ProviderID = "github"

	reposPerPage = 100
)

// Profile is the subset of the user profile the activity summary needs.
type Profile struct {
	Login       string
	PublicRepos int
	Followers   int
}

// Repo is a public repository as exposed by the activity summary.
type Repo struct {
	ID          int64
	Name        string
	HTMLURL     string
	Description string
	Language    string
	Stars       int
	Forks       int
}

// Client wraps go-github with the options statshub needs.
type Client struct {
	gh *gh.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
}

// WithHTTPClient sets the underlying HTTP client (for tracing transports or
// tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL points the client at a GitHub-compatible API root.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// New creates a client authenticated with token.
func New(token string, opts ...Option) (*Client, error) {
	o := options{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, fn := range opts {
		fn(&o)
	}

	c := gh.NewClient(o.httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		c.BaseURL = u
	}
	return &Client{gh: c}, nil
}

// Profile fetches the public profile of user.
func (c *Client) Profile(ctx context.Context, user string) (Profile, error) {
	u, _, err := c.gh.Users.Get(ctx, user)
	if err != nil {
		return Profile{}, fmt.Errorf("github: fetch user: %w", convertError(err))
	}
	return Profile{
		Login:       u.GetLogin(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
	}, nil
}

// Repos fetches a single page of the user's repositories, most recently
// updated first.
func (c *Client) Repos(ctx context.Context, user string) ([]Repo, error) {
	list, _, err := c.gh.Repositories.ListByUser(ctx, user, &gh.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: reposPerPage},
	})
	if err != nil {
		return nil, fmt.Errorf("github: fetch repos: %w", convertError(err))
	}

	repos := make([]Repo, 0, len(list))
	for _, r := range list {
		if r == nil {
			continue
		}
		repos = append(repos, Repo{
			ID:          r.GetID(),
			Name:        r.GetName(),
			HTMLURL:     r.GetHTMLURL(),
			Description: r.GetDescription(),
			Language:    r.GetLanguage(),
			Stars:       r.GetStargazersCount(),
			Forks:       r.GetForksCount(),
		})
	}
	return repos, nil
}

// convertError maps go-github's error types onto providers.StatusError so
// the failure taxonomy treats GitHub like every other upstream.
func convertError(err error) error {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return &providers.StatusError{StatusCode: er.Response.StatusCode, Body: er.Message}
	}
	var rl *gh.RateLimitError
	if errors.As(err, &rl) && rl.Response != nil {
		se := &providers.StatusError{StatusCode: rl.Response.StatusCode, Body: rl.Message}
		if d := time.Until(rl.Rate.Reset.Time); d > 0 {
			se.RetryAfterSecs = int(d.Seconds())
		}
		return se
	}
	var arl *gh.AbuseRateLimitError
	if errors.As(err, &arl) && arl.Response != nil {
		se := &providers.StatusError{StatusCode: arl.Response.StatusCode, Body: arl.Message}
		if arl.RetryAfter != nil {
			se.RetryAfterSecs = int(arl.RetryAfter.Seconds())
		}
		return se
	}
	return err
}
