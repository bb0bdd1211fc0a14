// Package umami reads site statistics from the Umami analytics API.
package umami

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jordanhubbard/statshub/internal/providers"
)

const (
	ProviderID = "umami"
	BaseURL    = "https://api.umami.is/v1"
)

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

// WithBaseURL overrides the API root, e.g. for a self-hosted instance.
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

// Stats returns the aggregate stats object for [start, end] verbatim. The
// body must be a JSON object.
func (c *Client) Stats(ctx context.Context, websiteID string, start, end time.Time) (json.RawMessage, error) {
	params := url.Values{
		"startAt": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endAt":   {strconv.FormatInt(end.UnixMilli(), 10)},
	}
	endpoint := fmt.Sprintf("%s/websites/%s/stats?%s", c.baseURL, url.PathEscape(websiteID), params.Encode())

	var obj map[string]json.RawMessage
	body, err := providers.Get(ctx, c.client, endpoint, c.headers())
	if err != nil {
		return nil, fmt.Errorf("umami: stats: %w", err)
	}
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("umami: stats: %w: expected a JSON object", providers.ErrDecode)
	}
	return json.RawMessage(body), nil
}

// Active returns the number of visitors active right now.
func (c *Client) Active(ctx context.Context, websiteID string) (ActiveCount, error) {
	endpoint := fmt.Sprintf("%s/websites/%s/active", c.baseURL, url.PathEscape(websiteID))

	var n ActiveCount
	if err := providers.GetJSON(ctx, c.client, endpoint, c.headers(), &n); err != nil {
		return 0, fmt.Errorf("umami: active: %w", err)
	}
	return n, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-umami-api-key": c.apiKey}
}

// countKeys are the record fields that have carried the active count across
// Umami versions.
var countKeys = []string{"x", "visitors", "active", "count"}

// ActiveCount decodes the active-visitor payload, which arrives as an array
// of records, a single record, or a bare number. Anything else is zero.
type ActiveCount int

func (a *ActiveCount) UnmarshalJSON(data []byte) error {
	*a = ActiveCount(decodeActive(data))
	return nil
}

func decodeActive(data []byte) int {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return clamp(t)
	case []any:
		if len(t) == 0 {
			return 0
		}
		if rec, ok := t[0].(map[string]any); ok {
			return fromRecord(rec)
		}
		if f, ok := t[0].(float64); ok {
			return clamp(f)
		}
		return 0
	case map[string]any:
		return fromRecord(t)
	default:
		return 0
	}
}

func fromRecord(rec map[string]any) int {
	for _, k := range countKeys {
		if f, ok := rec[k].(float64); ok {
			return clamp(f)
		}
	}
	return 0
}

func clamp(f float64) int {
	if f < 0 {
		return 0
	}
	return int(f)
}
