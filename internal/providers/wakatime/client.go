package wakatime

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jordanhubbard/statshub/internal/providers"
)

const (
	ProviderID = "wakatime"
	BaseURL    = "https://wakatime.com/api/v1"
)

// Client talks to the WakaTime REST API for the key's owner.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithBaseURL overrides the API root (Wakapi and other compatible servers).
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: BaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- API Methods ---

// AllTime returns the all-time total since account creation. The provider
// may report zero seconds while it is still computing.
func (c *Client) AllTime(ctx context.Context) (*AllTimeResponse, error) {
	var resp AllTimeResponse
	if err := c.get(ctx, "/users/current/all_time_since_today", nil, &resp); err != nil {
		return nil, fmt.Errorf("wakatime: all time: %w", err)
	}
	return &resp, nil
}

// Summaries returns per-day summaries for the inclusive date range.
func (c *Client) Summaries(ctx context.Context, start, end time.Time) (*SummaryResponse, error) {
	params := url.Values{
		"start": {start.Format(time.DateOnly)},
		"end":   {end.Format(time.DateOnly)},
	}
	var resp SummaryResponse
	if err := c.get(ctx, "/users/current/summaries", params, &resp); err != nil {
		return nil, fmt.Errorf("wakatime: summaries %s..%s: %w", params.Get("start"), params.Get("end"), err)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return providers.GetJSON(ctx, c.client, reqURL, c.authHeaders(), out)
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(c.apiKey)),
	}
}
