package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the shared keyed store behind ContentCache. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the raw bytes stored under key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key and registers key as a member of every tag.
	Set(ctx context.Context, key string, data []byte, tags []string, ttl time.Duration) error

	// Delete removes keys. Unknown keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// DeleteByTags removes every key registered under any of the tags and
	// returns how many entries were removed.
	DeleteByTags(ctx context.Context, tags ...string) (int, error)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
