// Package cache provides the content response cache with tag-based invalidation.
//
// Entries are keyed deterministically from the lookup identifier, the encoded
// request parameters and a scope discriminator. Every entry carries tags derived
// from the response content (item:<id>, slug:<slug>, version:<cv>), so a single
// item invalidation reaches every entry that embedded the item.
//
// # Basic Usage
//
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	cc, err := cache.NewContentCache(store, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	key := cc.ItemKey("home", url.Values{"version": {"published"}})
//	resp, err := cc.LoadItem(ctx, key, false)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch remotely, then
//		cc.SaveItem(ctx, key, fetched, false)
//	}
//
// # Lists
//
// SaveList writes the list entry and one entry per contained story. The item
// keys come from the caller so they match later single-story lookups.
//
// # Bypass
//
// Loads always miss and saves do nothing when the caller signals preview or the
// cache is configured with DevMode.
//
// # Stores
//
//   - RedisStore: entries as strings, tags as Redis sets (shared across processes)
//   - MemoryStore: sturdyc sharded in-process cache with a local tag index
//
// # Metrics
//
//   - content_cache_hits_total{kind} - Cache hits
//   - content_cache_misses_total{kind} - Cache misses
//   - content_cache_bypass_total{operation} - Bypassed loads and saves
//   - content_cache_written_bytes_total{kind} - Bytes written
//   - content_cache_corrupt_entries_total - Corrupted entries removed
//   - content_cache_invalidated_entries_total - Entries removed by tag
//   - content_cache_errors_total{operation} - Store errors
package cache
