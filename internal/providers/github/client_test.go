package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/statshub/internal/providers"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := New("gh-token", WithHTTPClient(ts.Client()), WithBaseURL(ts.URL))
	require.NoError(t, err)
	return c
}

func TestProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octo", r.URL.Path)
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"login":"octo","public_repos":12,"followers":34}`))
	})

	p, err := c.Profile(context.Background(), "octo")
	require.NoError(t, err)
	assert.Equal(t, Profile{Login: "octo", PublicRepos: 12, Followers: 34}, p)
}

func TestProfile_missing_fields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"login":"octo","followers":null}`))
	})

	p, err := c.Profile(context.Background(), "octo")
	require.NoError(t, err)
	assert.Zero(t, p.Followers)
	assert.Zero(t, p.PublicRepos)
}

func TestRepos(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octo/repos", r.URL.Path)
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"alpha","html_url":"https://github.com/octo/alpha","description":"first","language":"Go","stargazers_count":5,"forks_count":2},
			{"id":2,"name":"beta","html_url":"https://github.com/octo/beta","description":null,"language":null,"stargazers_count":0}
		]`))
	})

	repos, err := c.Repos(context.Background(), "octo")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, Repo{ID: 1, Name: "alpha", HTMLURL: "https://github.com/octo/alpha", Description: "first", Language: "Go", Stars: 5, Forks: 2}, repos[0])
	assert.Equal(t, "", repos[1].Description)
	assert.Equal(t, "", repos[1].Language)
	assert.Zero(t, repos[1].Forks)
}

func TestRepos_status_error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	})

	_, err := c.Repos(context.Background(), "octo")
	require.Error(t, err)

	var se *providers.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Bad credentials", se.Body)
	assert.Equal(t, providers.FailureStatus, providers.Classify(ProviderID, err).Kind)
}

func TestNew_bad_base_url(t *testing.T) {
	_, err := New("t", WithBaseURL("://nope"))
	require.Error(t, err)
}
