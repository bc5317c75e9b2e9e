// Package cache provides an optional Redis-backed cache of raw page bodies.
//
// Keys are derived from the full request URL with query parameters sorted, so
// the same page requested twice maps to the same entry regardless of
// parameter order. Bodies are stored verbatim with a fixed TTL; the dataset
// refreshes on the server roughly daily, so short TTLs keep repeated runs
// (typically while debugging filters) from re-downloading every page.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the requested key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Key identifies one cached page by its request URL.
type Key struct {
	// URL is the full page request URL, query string included.
	URL string
}

// String generates a deterministic cache key string.
// Format: fema:host/path:param1=val1:param2=val2 (parameters sorted).
func (k Key) String() string {
	u, err := url.Parse(k.URL)
	if err != nil {
		// Unparseable URLs still get a stable key.
		return "fema:" + k.URL
	}

	parts := []string{"fema", u.Host + u.Path}

	params := u.Query()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, params.Get(name)))
	}

	return strings.Join(parts, ":")
}

// Manager handles page caching operations with a Redis backend.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a cache manager. ttl applies to every stored page.
func NewManager(redisClient *redis.Client, ttl time.Duration) (*Manager, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %v", ttl)
	}
	return &Manager{redis: redisClient, ttl: ttl}, nil
}

// Get retrieves a cached page body. Returns ErrCacheMiss when absent.
func (m *Manager) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.Inc()
	return data, nil
}

// Set stores a page body under key with the manager's TTL.
func (m *Manager) Set(ctx context.Context, key Key, body []byte) error {
	if err := m.redis.Set(ctx, key.String(), body, m.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cached page.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
