// Package settings provides cached access to runtime-tunable settings
// stored in the database, with compiled-in defaults as fallback.
package settings

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"trendwatch/pkg/domain"
	"trendwatch/pkg/trends"
)

// Store is the persistence interface the cache reads through
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Cache serves settings from memory, refreshing from the store when the
// entry is older than the TTL. On store errors it keeps serving the last
// known values, so a transient database problem never changes behavior
// mid-scan.
type Cache struct {
	store Store
	ttl   time.Duration

	mu        sync.RWMutex
	values    map[string]string
	fetchedAt time.Time
}

// NewCache creates a settings cache with the given TTL
func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{store: store, ttl: ttl, values: map[string]string{}}
}

// Get returns the setting for key, empty string when not set
func (c *Cache) Get(ctx context.Context, key string) string {
	return c.snapshot(ctx)[key]
}

// Set writes a setting through to the store and invalidates the cache
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.store.Set(ctx, key, value); err != nil {
		return err
	}

	c.mu.Lock()
	c.fetchedAt = time.Time{} // force refresh on next read
	c.mu.Unlock()
	return nil
}

// All returns a copy of all current settings
func (c *Cache) All(ctx context.Context) map[string]string {
	src := c.snapshot(ctx)
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// snapshot returns the current value map, refreshing it when stale
func (c *Cache) snapshot(ctx context.Context) map[string]string {
	c.mu.RLock()
	if time.Since(c.fetchedAt) < c.ttl {
		defer c.mu.RUnlock()
		return c.values
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another goroutine may have refreshed while we waited for the lock
	if time.Since(c.fetchedAt) < c.ttl {
		return c.values
	}

	fresh, err := c.store.GetAll(ctx)
	if err != nil {
		lgr.Printf("[WARN] settings refresh failed, using last known values: %v", err)
		c.fetchedAt = time.Now() // back off until the next TTL window
		return c.values
	}

	c.values = fresh
	c.fetchedAt = time.Now()
	return c.values
}

// Thresholds builds engagement thresholds from settings, falling back to
// the passed defaults for keys that are absent or malformed
func (c *Cache) Thresholds(ctx context.Context, defaults trends.Thresholds) trends.Thresholds {
	vals := c.snapshot(ctx)
	res := defaults

	if v, ok := parseInt(vals[domain.SettingForumUpvotes]); ok {
		res.Forum.MinUpvotes = v
	}
	if v, ok := parseInt(vals[domain.SettingForumComments]); ok {
		res.Forum.MinComments = v
	}
	if v, ok := parseFloat(vals[domain.SettingForumRatio]); ok {
		res.Forum.MinRatio = v
	}
	if v, ok := parseInt(vals[domain.SettingMicroblogLikes]); ok {
		res.Microblog.MinLikes = v
	}
	if v, ok := parseInt(vals[domain.SettingMicroblogRetweets]); ok {
		res.Microblog.MinRetweets = v
	}
	if v, ok := parseFloat(vals[domain.SettingWebScore]); ok {
		res.Web.MinScore = v
	}
	return res
}

// KeywordFilter builds a keyword filter from settings, compiled-in lists
// apply when the keys are not set
func (c *Cache) KeywordFilter(ctx context.Context) *trends.KeywordFilter {
	vals := c.snapshot(ctx)
	include := splitList(vals[domain.SettingPredictionKeywords])
	exclude := splitList(vals[domain.SettingExclusionKeywords])
	return trends.NewKeywordFilter(include, exclude)
}

// MicroblogAccounts returns the accounts to monitor, nil when not overridden
func (c *Cache) MicroblogAccounts(ctx context.Context) []string {
	return splitList(c.Get(ctx, domain.SettingMicroblogAccounts))
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
