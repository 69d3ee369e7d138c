package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/reillywatson/dorametrics/internal/dora"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxResults = 100
	defaultDoneStatus = "Done"
)

var defaultPriorities = []string{"Highest", "High"}

// Options configures a Client.
type Options struct {
	BaseURL string // e.g. https://example.atlassian.net/rest/api/3

	// Basic auth with an Atlassian account email and API token, or a bearer token
	// (OAuth 2.0 access token or Data Center personal access token). Bearer wins when both are set.
	Email       string
	APIToken    string
	BearerToken string

	Timeout    time.Duration
	MaxResults int
	Priorities []string
	DoneStatus string
}

// Client handles Jira REST API operations
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	apiToken   string
	maxResults int
	priorities []string
	doneStatus string
	log        logrus.FieldLogger
}

// NewClient creates a new Jira client
func NewClient(opts Options, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if opts.BearerToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.BearerToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = timeout
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxResults: opts.MaxResults,
		priorities: opts.Priorities,
		doneStatus: opts.DoneStatus,
		log:        log.WithField("component", "jira"),
	}
	if opts.BearerToken == "" {
		c.email = opts.Email
		c.apiToken = opts.APIToken
	}
	if c.maxResults <= 0 {
		c.maxResults = defaultMaxResults
	}
	if len(c.priorities) == 0 {
		c.priorities = defaultPriorities
	}
	if c.doneStatus == "" {
		c.doneStatus = defaultDoneStatus
	}

	return c
}

// BaseURL returns the REST API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchReleases lists a project's released versions. Unreleased versions are left
// out even when they carry a planned release date, as are versions without a date.
func (c *Client) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	endpoint := fmt.Sprintf("%s/project/%s/versions", c.baseURL, url.PathEscape(project))

	var versions []Version
	if err := c.get(ctx, endpoint, &versions); err != nil {
		return nil, err
	}

	releases := make([]dora.ReleaseRecord, 0, len(versions))
	for _, v := range versions {
		if !v.Released || v.ReleaseDate == "" {
			c.log.WithFields(logrus.Fields{
				"version":     v.Name,
				"released":    v.Released,
				"releaseDate": v.ReleaseDate,
			}).Debug("skipping unreleased version")
			continue
		}
		releases = append(releases, v.toReleaseRecord())
	}

	c.log.WithFields(logrus.Fields{
		"project":  project,
		"versions": len(versions),
		"releases": len(releases),
	}).Debug("fetched versions")

	return releases, nil
}

// FetchQualifyingBugs runs the bug search feeding the repair metrics: done bugs of
// the configured priorities whose fix version has been released.
func (c *Client) FetchQualifyingBugs(ctx context.Context, project string) ([]dora.IssueRecord, error) {
	var response SearchResponse
	if err := c.get(ctx, c.searchURL(project), &response); err != nil {
		return nil, err
	}

	if response.Total > len(response.Issues) {
		c.log.WithFields(logrus.Fields{
			"project":  project,
			"total":    response.Total,
			"returned": len(response.Issues),
		}).Warn("bug search truncated, raise the max results setting to include every issue")
	}

	issues := make([]dora.IssueRecord, 0, len(response.Issues))
	for _, issue := range response.Issues {
		issues = append(issues, issue.toIssueRecord())
	}

	return issues, nil
}

// QualifyingBugsJQL returns the search used by FetchQualifyingBugs.
func (c *Client) QualifyingBugsJQL(project string) string {
	return BuildQualifyingBugsJQL(project, c.priorities, c.doneStatus)
}

// MaxResults returns the cap applied to bug searches.
func (c *Client) MaxResults() int {
	return c.maxResults
}

// BuildQualifyingBugsJQL builds the JQL selecting bugs that count toward MTTR and
// change failure rate.
func BuildQualifyingBugsJQL(project string, priorities []string, doneStatus string) string {
	quoted := make([]string, 0, len(priorities))
	for _, p := range priorities {
		quoted = append(quoted, strconv.Quote(p))
	}

	return fmt.Sprintf("project = %s AND issuetype = Bug AND status = %s AND priority in (%s) AND fixVersion in releasedVersions()",
		strconv.Quote(project), strconv.Quote(doneStatus), strings.Join(quoted, ", "))
}

func (c *Client) searchURL(project string) string {
	q := url.Values{}
	q.Set("jql", c.QualifyingBugsJQL(project))
	q.Set("fields", "id,resolutiondate,fixVersions")
	q.Set("maxResults", strconv.Itoa(c.maxResults))
	return c.baseURL + "/search?" + q.Encode()
}

// get performs a GET against endpoint and decodes the JSON body into out
func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("url", endpoint))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.email != "" || c.apiToken != "" {
		req.SetBasicAuth(c.email, c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dora.UpstreamError(err, "failed to make request to jira", goerr.V("url", endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dora.UpstreamError(
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"jira request failed",
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dora.UpstreamError(err, "failed to decode jira response", goerr.V("url", endpoint))
	}

	return nil
}
