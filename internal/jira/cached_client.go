package jira

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reillywatson/dorametrics/internal/cache"
	"github.com/reillywatson/dorametrics/internal/dora"
)

// CachedClient wraps Client with caching capabilities
type CachedClient struct {
	client *Client
	cache  cache.Cache
	kb     *cache.CacheKeyBuilder
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewCachedClient creates a new Jira client with caching
func NewCachedClient(opts Options, cacheImpl cache.Cache, ttl time.Duration, log logrus.FieldLogger) *CachedClient {
	client := NewClient(opts, log)

	return &CachedClient{
		client: client,
		cache:  cacheImpl,
		kb:     cache.NewCacheKeyBuilder("jira"),
		ttl:    ttl,
		log:    client.log,
	}
}

// FetchReleases fetches project versions with caching
func (c *CachedClient) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	key := c.kb.VersionsKey(c.client.BaseURL(), project)

	var cached []dora.ReleaseRecord
	if c.lookup(key, &cached) {
		return cached, nil
	}

	releases, err := c.client.FetchReleases(ctx, project)
	if err != nil {
		return nil, err
	}

	c.store(key, releases)
	return releases, nil
}

// FetchQualifyingBugs fetches the bug search with caching
func (c *CachedClient) FetchQualifyingBugs(ctx context.Context, project string) ([]dora.IssueRecord, error) {
	key := c.kb.QualifyingBugsKey(c.client.BaseURL(), project, c.client.QualifyingBugsJQL(project), c.client.MaxResults())

	var cached []dora.IssueRecord
	if c.lookup(key, &cached) {
		return cached, nil
	}

	issues, err := c.client.FetchQualifyingBugs(ctx, project)
	if err != nil {
		return nil, err
	}

	c.store(key, issues)
	return issues, nil
}

// lookup reports whether key was served from the cache. Cache failures are logged
// and treated as a miss.
func (c *CachedClient) lookup(key string, value interface{}) bool {
	err := c.cache.Get(key, value)
	if err == nil {
		c.log.WithField("key", key).Debug("cache hit")
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	return false
}

func (c *CachedClient) store(key string, value interface{}) {
	if err := c.cache.Set(key, value, c.ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("failed to cache response")
	}
}

// Close cleans up the client
func (c *CachedClient) Close() error {
	return c.cache.Close()
}
