package cache

import (
	"encoding/json"
	"time"
)

// Entry is the envelope stored for every cached response.
type Entry struct {
	// Data is the serialized response payload.
	Data json.RawMessage `json:"data"`

	// Tags are derived from the payload and drive invalidation.
	Tags []string `json:"tags"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpiredAt reports whether the entry is stale at now. An entry whose
// expiry equals now is already stale.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return !e.Expires.After(now)
}

// TTLAt returns the lifetime left at now, or 0 once expired.
func (e *Entry) TTLAt(now time.Time) time.Duration {
	if e.IsExpiredAt(now) {
		return 0
	}
	return e.Expires.Sub(now)
}
