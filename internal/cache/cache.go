package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppName names the cache directory under the OS cache directory.
const AppName = "dorametrics"

// Common cache errors
var (
	ErrCacheMiss = errors.New("cache miss")
)

// Cache defines the interface for all cache implementations
type Cache interface {
	// Get retrieves a value from the cache
	Get(key string, value interface{}) error

	// Set stores a value in the cache with an optional TTL
	Set(key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error

	// Close cleans up the cache resources
	Close() error
}

// Entry represents a cached entry with metadata
type Entry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsExpired checks if the cache entry has expired
func (e *Entry) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*e.ExpiresAt)
}

// CacheKeyBuilder helps build consistent cache keys
type CacheKeyBuilder struct {
	prefix string
}

func NewCacheKeyBuilder(prefix string) *CacheKeyBuilder {
	return &CacheKeyBuilder{prefix: prefix}
}

// VersionsKey identifies a Jira project's version listing on a given site.
func (b *CacheKeyBuilder) VersionsKey(site, project string) string {
	return b.buildKey("versions", site, project)
}

// QualifyingBugsKey identifies the result of a bug search. The JQL is part of the key
// so changing the priority or status filter never serves stale results.
func (b *CacheKeyBuilder) QualifyingBugsKey(site, project, jql string, maxResults int) string {
	return b.buildKey("bugs", site, project, jql, maxResults)
}

// ReleasesKey identifies a repository's published releases.
func (b *CacheKeyBuilder) ReleasesKey(owner, repo string) string {
	return b.buildKey("releases", owner, repo)
}

func (b *CacheKeyBuilder) buildKey(parts ...interface{}) string {
	var sb strings.Builder
	sb.WriteString(b.prefix)
	for _, part := range parts {
		sb.WriteString(":")
		sb.WriteString(toString(part))
	}
	return sb.String()
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// NopCache never stores anything; every Get is a miss.
type NopCache struct{}

func (NopCache) Get(string, interface{}) error { return ErrCacheMiss }
func (NopCache) Set(string, interface{}, time.Duration) error { return nil }
func (NopCache) Delete(string) error { return nil }
func (NopCache) Close() error { return nil }

// New returns a file cache rooted at dir, the OS cache directory when dir is empty,
// or a NopCache when disabled is set.
func New(dir string, disabled bool) (Cache, error) {
	if disabled {
		return NopCache{}, nil
	}
	if dir != "" {
		return NewFileCacheWithDir(dir)
	}
	return NewDefaultCache()
}

// Factory function for creating default cache
func NewDefaultCache() (Cache, error) {
	return NewFileCache(AppName)
}
