package contributions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, body string) *Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/octo", r.URL.Path)
		assert.Equal(t, "last", r.URL.Query().Get("y"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", WithHTTPClient(ts.Client()))
}

func TestCalendar_flat_days_with_period_total(t *testing.T) {
	// 2024-01-06 is a Saturday, 2024-01-07 a Sunday.
	c := serve(t, `{
		"total": {"lastYear": 321},
		"contributions": [
			{"date":"2024-01-07","count":2,"level":1},
			{"date":"2024-01-06","count":1,"level":1},
			{"date":"2024-01-08","count":0,"level":0}
		]
	}`)

	cal, err := c.Calendar(context.Background(), "octo")
	require.NoError(t, err)
	require.NotNil(t, cal.Total)
	assert.Equal(t, 321, *cal.Total)
	require.Len(t, cal.Weeks, 2)
	assert.Equal(t, []Day{{Date: "2024-01-06", Count: 1}}, cal.Weeks[0])
	assert.Equal(t, []Day{{Date: "2024-01-07", Count: 2}, {Date: "2024-01-08", Count: 0}}, cal.Weeks[1])
}

func TestCalendar_graphql_weeks(t *testing.T) {
	c := serve(t, `{
		"totalContributions": 7,
		"weeks": [
			{"contributionDays":[{"date":"2024-01-07","contributionCount":3},{"date":"2024-01-08","contributionCount":4}]}
		]
	}`)

	cal, err := c.Calendar(context.Background(), "octo")
	require.NoError(t, err)
	require.NotNil(t, cal.Total)
	assert.Equal(t, 7, *cal.Total)
	assert.Equal(t, [][]Day{{{Date: "2024-01-07", Count: 3}, {Date: "2024-01-08", Count: 4}}}, cal.Weeks)
}

func TestCalendar_nested_weeks_without_total(t *testing.T) {
	c := serve(t, `{"contributions": [[{"date":"2024-01-07","count":1}],[{"date":"2024-01-14","contributionCount":5}]]}`)

	cal, err := c.Calendar(context.Background(), "octo")
	require.NoError(t, err)
	assert.Nil(t, cal.Total)
	assert.Equal(t, [][]Day{{{Date: "2024-01-07", Count: 1}}, {{Date: "2024-01-14", Count: 5}}}, cal.Weeks)
}

func TestCalendar_numeric_total_and_garbage_contributions(t *testing.T) {
	c := serve(t, `{"total": 42, "contributions": "oops"}`)

	cal, err := c.Calendar(context.Background(), "octo")
	require.NoError(t, err)
	require.NotNil(t, cal.Total)
	assert.Equal(t, 42, *cal.Total)
	assert.Empty(t, cal.Weeks)
}

func TestGroupWeeks_drops_undated(t *testing.T) {
	weeks := GroupWeeks([]Day{{Date: "", Count: 9}, {Date: "bad", Count: 1}, {Date: "2024-01-09", Count: 2}})
	assert.Equal(t, [][]Day{{{Date: "2024-01-09", Count: 2}}}, weeks)
}

func TestGroupWeeks_gapSkippingSunday(t *testing.T) {
	// 2024-03-09 is a Saturday and 2024-03-11 a Monday; the Sunday between is missing.
	weeks := GroupWeeks([]Day{
		{Date: "2024-03-08", Count: 1},
		{Date: "2024-03-09", Count: 2},
		{Date: "2024-03-11", Count: 3},
		{Date: "2024-03-26", Count: 4},
	})
	assert.Equal(t, [][]Day{
		{{Date: "2024-03-08", Count: 1}, {Date: "2024-03-09", Count: 2}},
		{{Date: "2024-03-11", Count: 3}},
		{{Date: "2024-03-26", Count: 4}},
	}, weeks)
	for _, w := range weeks {
		assert.LessOrEqual(t, len(w), 7)
	}
}
