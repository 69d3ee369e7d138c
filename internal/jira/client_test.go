package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reillywatson/dorametrics/internal/cache"
	"github.com/reillywatson/dorametrics/internal/dora"
)

func newTestLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func TestClient_FetchReleases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/project/OPS/versions", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "dev@example.com", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Version{
			{ID: "10000", Name: "1.0", ReleaseDate: "2024-01-01", Released: true},
			{ID: "10001", Name: "1.1", ReleaseDate: "2024-01-11", Released: true},
			{ID: "10002", Name: "2.0"},
			{ID: "10003", Name: "2.1", ReleaseDate: "2099-03-01", Released: false},
		})
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:  server.URL + "/rest/api/3/",
		Email:    "dev@example.com",
		APIToken: "secret",
	}, newTestLogger())

	releases, err := client.FetchReleases(context.Background(), "OPS")
	require.NoError(t, err)

	assert.Equal(t, []dora.ReleaseRecord{
		{ID: "10000", Name: "1.0", ReleaseDate: "2024-01-01"},
		{ID: "10001", Name: "1.1", ReleaseDate: "2024-01-11"},
	}, releases)
}

func TestClient_FetchQualifyingBugs(t *testing.T) {
	resolved := "2024-01-05T12:00:00.000+0000"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer pat-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t,
			`project = "OPS" AND issuetype = Bug AND status = "Done" AND priority in ("Highest", "High") AND fixVersion in releasedVersions()`,
			q.Get("jql"))
		assert.Equal(t, "id,resolutiondate,fixVersions", q.Get("fields"))
		assert.Equal(t, "25", q.Get("maxResults"))

		json.NewEncoder(w).Encode(SearchResponse{
			Total: 2,
			Issues: []Issue{
				{ID: "1", Key: "OPS-1", Fields: IssueFields{
					ResolutionDate: &resolved,
					FixVersions:    []Version{{Name: "2.4.1", ReleaseDate: "2024-01-01"}},
				}},
				{ID: "2", Key: "OPS-2", Fields: IssueFields{
					FixVersions: []Version{{Name: "2.5", ReleaseDate: "2024-02-01"}},
				}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:     server.URL,
		Email:       "ignored@example.com",
		BearerToken: "pat-token",
		MaxResults:  25,
	}, newTestLogger())

	issues, err := client.FetchQualifyingBugs(context.Background(), "OPS")
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, "OPS-1", issues[0].Key)
	require.NotNil(t, issues[0].ResolutionDate)
	assert.Equal(t, resolved, *issues[0].ResolutionDate)
	assert.Equal(t, []dora.FixVersion{{Name: "2.4.1", ReleaseDate: "2024-01-01"}}, issues[0].FixVersions)
	assert.Nil(t, issues[1].ResolutionDate)
}

func TestClient_TruncatedSearchWarns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResponse{Total: 3, Issues: []Issue{{Key: "OPS-1"}}})
	}))
	defer server.Close()

	log, hook := test.NewNullLogger()
	client := NewClient(Options{BaseURL: server.URL}, log)

	issues, err := client.FetchQualifyingBugs(context.Background(), "OPS")
	require.NoError(t, err)
	assert.Len(t, issues, 1)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 3, hook.LastEntry().Data["total"])
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("No project could be found with key 'NOPE'."))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL}, newTestLogger())

	releases, err := client.FetchReleases(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Nil(t, releases)
	assert.ErrorIs(t, err, dora.ErrUpstreamFetch)
	assert.Contains(t, err.Error(), "API returned status 404")
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>"))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL}, newTestLogger())

	_, err := client.FetchQualifyingBugs(context.Background(), "OPS")
	assert.ErrorIs(t, err, dora.ErrUpstreamFetch)
}

func TestBuildQualifyingBugsJQL(t *testing.T) {
	jql := BuildQualifyingBugsJQL("WEB", []string{"Blocker"}, "Closed")
	assert.Equal(t,
		`project = "WEB" AND issuetype = Bug AND status = "Closed" AND priority in ("Blocker") AND fixVersion in releasedVersions()`,
		jql)
}

func TestCachedClient_ServesFromCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode([]Version{{ID: "1", Name: "1.0", ReleaseDate: "2024-01-01", Released: true}})
	}))
	defer server.Close()

	fileCache, err := cache.NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	client := NewCachedClient(Options{BaseURL: server.URL}, fileCache, time.Hour, newTestLogger())
	defer client.Close()

	for i := 0; i < 3; i++ {
		releases, err := client.FetchReleases(context.Background(), "OPS")
		require.NoError(t, err)
		assert.Equal(t, []dora.ReleaseRecord{{ID: "1", Name: "1.0", ReleaseDate: "2024-01-01"}}, releases)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedClient_ErrorsNotCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SearchResponse{Total: 1, Issues: []Issue{{Key: "OPS-1"}}})
	}))
	defer server.Close()

	fileCache, err := cache.NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	client := NewCachedClient(Options{BaseURL: server.URL}, fileCache, time.Hour, newTestLogger())

	_, err = client.FetchQualifyingBugs(context.Background(), "OPS")
	require.ErrorIs(t, err, dora.ErrUpstreamFetch)

	issues, err := client.FetchQualifyingBugs(context.Background(), "OPS")
	require.NoError(t, err)
	assert.Len(t, issues, 1)
	assert.Equal(t, int32(2), calls.Load())
}
