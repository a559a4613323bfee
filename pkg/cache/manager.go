package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/story"
)

// Config holds content cache configuration.
type Config struct {
	// TTL is the lifetime of every entry.
	TTL time.Duration

	// DevMode disables caching globally.
	DevMode bool

	// Scope is the tenant/site discriminator added to every key.
	Scope string
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:   time.Hour,
		Scope: DefaultScope,
	}
}

// ItemKeyFunc derives the standalone key of a story written during list fan-out.
type ItemKeyFunc func(s story.Story) CacheKey

// ContentCache stores item and list responses with content-derived tags.
// Store failures never surface: loads degrade to ErrCacheMiss and saves are
// logged.
type ContentCache struct {
	store  Store
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewContentCache creates a cache over store.
func NewContentCache(store Store, cfg Config) (*ContentCache, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.TTL <= 0 {
		return nil, &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}

	return &ContentCache{
		store:  store,
		config: cfg,
		logger: logging.NewLogger("cache"),
		now:    time.Now,
	}, nil
}

// Enabled reports whether caching applies to a call. preview is the
// caller's editor/preview signal.
func (c *ContentCache) Enabled(preview bool) bool {
	return !preview && !c.config.DevMode
}

// ItemKey builds the key of a single-story lookup.
func (c *ContentCache) ItemKey(identifier string, params url.Values) CacheKey {
	return CacheKey{Kind: KindStory, Identifier: identifier, QueryParams: params, Scope: c.config.Scope}
}

// ListKey builds the key of a list query.
func (c *ContentCache) ListKey(params url.Values) CacheKey {
	return CacheKey{Kind: KindList, QueryParams: params, Scope: c.config.Scope}
}

// LoadItem returns a cached single-story response or ErrCacheMiss.
func (c *ContentCache) LoadItem(ctx context.Context, key CacheKey, preview bool) (*story.ItemResponse, error) {
	var resp story.ItemResponse
	if err := c.load(ctx, key, preview, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoadList returns a cached list response or ErrCacheMiss.
func (c *ContentCache) LoadList(ctx context.Context, key CacheKey, preview bool) (*story.ListResponse, error) {
	var resp story.ListResponse
	if err := c.load(ctx, key, preview, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveItem stores a single-story response tagged with its own identity.
func (c *ContentCache) SaveItem(ctx context.Context, key CacheKey, resp *story.ItemResponse, preview bool) {
	if resp == nil {
		return
	}
	if !c.Enabled(preview) {
		CacheBypasses.WithLabelValues("save").Inc()
		return
	}
	c.save(ctx, key, resp, resp.Tags())
}

// SaveList stores a list response, then writes each story to its own entry
// under itemKey so an item invalidation also reaches the list through the
// shared item tag. A nil itemKey skips the fan-out.
func (c *ContentCache) SaveList(ctx context.Context, key CacheKey, resp *story.ListResponse, preview bool, itemKey ItemKeyFunc) {
	if resp == nil {
		return
	}
	if !c.Enabled(preview) {
		CacheBypasses.WithLabelValues("save").Inc()
		return
	}

	c.save(ctx, key, resp, resp.Tags())

	if itemKey == nil {
		return
	}
	for i := range resp.Stories {
		item := resp.Item(i)
		c.save(ctx, itemKey(item.Story), item, item.Tags())
	}
}

// InvalidateByTags removes every entry carrying any of the tags. Empty or
// unknown tags are a no-op.
func (c *ContentCache) InvalidateByTags(ctx context.Context, tags []string) error {
	tags = compact(tags)
	if len(tags) == 0 {
		return nil
	}

	removed, err := c.store.DeleteByTags(ctx, tags...)
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return fmt.Errorf("invalidate tags: %w", err)
	}

	CacheInvalidations.Add(float64(removed))
	c.logger.Debug().
		Strs("tags", tags).
		Int("removed", removed).
		Msg("Cache entries invalidated")
	return nil
}

func (c *ContentCache) load(ctx context.Context, key CacheKey, preview bool, out any) error {
	kind := string(key.Kind)
	if !c.Enabled(preview) {
		CacheBypasses.WithLabelValues("load").Inc()
		return ErrCacheMiss
	}

	k := key.String()
	data, err := c.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			CacheErrors.WithLabelValues("get").Inc()
			c.logger.Warn().Err(err).Str("key", k).Msg("Cache read failed, treating as miss")
		}
		CacheMisses.WithLabelValues(kind).Inc()
		return ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err == nil {
		err = json.Unmarshal(entry.Data, out)
		if err == nil && !entry.IsExpiredAt(c.now()) {
			CacheHits.WithLabelValues(kind).Inc()
			c.logger.Debug().Str("key", k).Msg("Cache hit")
			return nil
		}
		if err == nil {
			c.drop(ctx, k)
			CacheMisses.WithLabelValues(kind).Inc()
			return ErrCacheMiss
		}
	}

	CacheCorruptEntries.Inc()
	c.logger.Warn().Str("key", k).Err(ErrInvalidEntry).Msg("Corrupted cache entry removed")
	c.drop(ctx, k)
	CacheMisses.WithLabelValues(kind).Inc()
	return ErrCacheMiss
}

func (c *ContentCache) save(ctx context.Context, key CacheKey, payload any, tags []string) {
	k := key.String()

	data, err := json.Marshal(payload)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Failed to encode cache payload")
		return
	}

	now := c.now()
	entry := Entry{
		Data:     data,
		Tags:     tags,
		CachedAt: now,
		Expires:  now.Add(c.config.TTL),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Failed to encode cache entry")
		return
	}

	if err := c.store.Set(ctx, k, raw, tags, entry.TTLAt(now)); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Cache write failed")
		return
	}

	CacheWrittenBytes.WithLabelValues(string(key.Kind)).Add(float64(len(raw)))
	c.logger.Debug().Str("key", k).Strs("tags", tags).Msg("Cache entry stored")
}

func (c *ContentCache) drop(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete cache entry")
	}
}

func compact(tags []string) []string {
	out := tags[:0:0]
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
