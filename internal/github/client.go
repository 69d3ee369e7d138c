package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v39/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/reillywatson/dorametrics/internal/dora"
)

// GitHubClient reads published releases as a deployment history
type GitHubClient struct {
	client *github.Client
	log    logrus.FieldLogger
}

func NewGitHubClient(token string, log logrus.FieldLogger) *GitHubClient {
	if log == nil {
		log = logrus.StandardLogger()
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &GitHubClient{
		client: github.NewClient(tc),
		log:    log.WithField("component", "github"),
	}
}

// SplitRepo splits an owner/repo project reference.
func SplitRepo(project string) (string, string, error) {
	parts := strings.Split(project, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", goerr.New("invalid repository format, use 'owner/repo'", goerr.V("project", project))
	}
	return parts[0], parts[1], nil
}

// FetchReleases lists the published releases of an owner/repo project
func (c *GitHubClient) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	owner, repo, err := SplitRepo(project)
	if err != nil {
		return nil, err
	}

	var all []*github.RepositoryRelease
	opts := &github.ListOptions{PerPage: 100}

	for {
		releases, resp, err := c.client.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, dora.UpstreamError(fmt.Errorf("failed to fetch releases: %w", err), "github request failed",
				goerr.V("owner", owner), goerr.V("repo", repo))
		}

		all = append(all, releases...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	records := ReleasesToRecords(all)
	c.log.WithFields(logrus.Fields{
		"project":   project,
		"fetched":   len(all),
		"published": len(records),
	}).Debug("fetched releases")

	return records, nil
}

// ReleasesToRecords keeps published, non-prerelease releases. The tag name is the
// version and the publish time is the release date.
func ReleasesToRecords(releases []*github.RepositoryRelease) []dora.ReleaseRecord {
	records := make([]dora.ReleaseRecord, 0, len(releases))

	for _, release := range releases {
		if release.GetDraft() || release.GetPrerelease() {
			continue
		}

		published := release.GetPublishedAt()
		if published.IsZero() {
			continue
		}

		records = append(records, dora.ReleaseRecord{
			ID:          fmt.Sprintf("%d", release.GetID()),
			Name:        release.GetTagName(),
			ReleaseDate: published.UTC().Format(time.RFC3339),
		})
	}

	return records
}
