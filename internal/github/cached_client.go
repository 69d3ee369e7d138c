package github

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reillywatson/dorametrics/internal/cache"
	"github.com/reillywatson/dorametrics/internal/dora"
)

// CachedGitHubClient wraps GitHubClient with caching capabilities
type CachedGitHubClient struct {
	client *GitHubClient
	cache  cache.Cache
	kb     *cache.CacheKeyBuilder
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewCachedGitHubClient creates a new GitHub client with caching
func NewCachedGitHubClient(token string, cacheImpl cache.Cache, ttl time.Duration, log logrus.FieldLogger) *CachedGitHubClient {
	return newCachedGitHubClient(NewGitHubClient(token, log), cacheImpl, ttl)
}

func newCachedGitHubClient(client *GitHubClient, cacheImpl cache.Cache, ttl time.Duration) *CachedGitHubClient {
	return &CachedGitHubClient{
		client: client,
		cache:  cacheImpl,
		kb:     cache.NewCacheKeyBuilder("github"),
		ttl:    ttl,
		log:    client.log,
	}
}

// FetchReleases fetches releases with caching
func (c *CachedGitHubClient) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	owner, repo, err := SplitRepo(project)
	if err != nil {
		return nil, err
	}

	cacheKey := c.kb.ReleasesKey(owner, repo)
	var cached []dora.ReleaseRecord
	if err := c.cache.Get(cacheKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.WithError(err).Warn("cache error for releases list")
	}

	releases, err := c.client.FetchReleases(ctx, project)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(cacheKey, releases, c.ttl); err != nil {
		c.log.WithError(err).Warn("failed to cache releases list")
	}

	return releases, nil
}

// Close cleans up the client
func (c *CachedGitHubClient) Close() error {
	return c.cache.Close()
}
