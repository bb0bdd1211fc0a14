package wakatime

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/statshub/internal/providers"
)

func TestAllTime(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/current/all_time_since_today", r.URL.Path)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("waka-key"))
		assert.Equal(t, want, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"total_seconds":7200.5,"text":"2 hrs","is_up_to_date":true}}`))
	}))
	defer ts.Close()

	c := New("waka-key", WithBaseURL(ts.URL+"/"), WithHTTPClient(ts.Client()))
	resp, err := c.AllTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7200.5, resp.Data.TotalSeconds)
	assert.Equal(t, "2 hrs", resp.Data.Text)
}

func TestSummaries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/current/summaries", r.URL.Path)
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("start"))
		assert.Equal(t, "2024-03-07", r.URL.Query().Get("end"))
		_, _ = w.Write([]byte(`{
			"data": [{"grand_total":{"text":"1 hr 5 mins","total_seconds":3900},
			          "languages":[{"name":"Go","total_seconds":3000}],
			          "range":{"date":"2024-03-01"}}],
			"cumulative_total": {"seconds": 3900, "text": "1 hr 5 mins"},
			"daily_average": {"text": "9 mins", "text_including_other_language": "10 mins"}
		}`))
	}))
	defer ts.Close()

	c := New("k", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	resp, err := c.Summaries(context.Background(), start, start.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 3900.0, resp.CumulativeTotal.Seconds)
	assert.Equal(t, "10 mins", resp.DailyAverage.TextIncludingOtherLanguage)
	assert.Equal(t, "Go", resp.Data[0].Languages[0].Name)
	assert.Equal(t, "2024-03-01", resp.Data[0].Range.Date)
}

func TestSummaries_status_error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := New("k", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	_, err := c.Summaries(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Equal(t, providers.FailureStatus, providers.Classify(ProviderID, err).Kind)
}

func TestAllTime_lenientFields(t *testing.T) {
	cases := map[string]struct {
		body    string
		seconds float64
		text    string
	}{
		"numeric string":  {`{"data":{"total_seconds":"7200","text":"2 hrs"}}`, 7200, "2 hrs"},
		"wrong types":     {`{"data":{"total_seconds":true,"text":42}}`, 0, ""},
		"null data":       {`{"data":null}`, 0, ""},
		"data not object": {`{"data":[1,2]}`, 0, ""},
		"not a number":    {`{"data":{"total_seconds":"NaN","text":"x"}}`, 0, "x"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			resp, err := New("k", WithBaseURL(ts.URL), WithHTTPClient(ts.Client())).AllTime(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.seconds, resp.Data.TotalSeconds)
			assert.Equal(t, tc.text, resp.Data.Text)
		})
	}
}

func TestSummaries_lenientNesting(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": [{"grand_total":"oops","languages":{"Go":1},"range":{"date":"2024-03-01"}}, 5],
			"cumulative_total": {"seconds": "3900.5"},
			"daily_average": []
		}`))
	}))
	defer ts.Close()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	resp, err := New("k", WithBaseURL(ts.URL), WithHTTPClient(ts.Client())).Summaries(context.Background(), start, start)
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, GrandTotal{}, resp.Data[0].GrandTotal)
	assert.Nil(t, resp.Data[0].Languages)
	assert.Equal(t, "2024-03-01", resp.Data[0].Range.Date)
	assert.Equal(t, SummaryDay{}, resp.Data[1])
	assert.Equal(t, 3900.5, resp.CumulativeTotal.Seconds)
	assert.Equal(t, DailyAverage{}, resp.DailyAverage)
}

func TestAllTime_invalidJSONIsDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"total_seconds":`))
	}))
	defer ts.Close()

	_, err := New("k", WithBaseURL(ts.URL), WithHTTPClient(ts.Client())).AllTime(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrDecode)
}
