package cache

import (
	"context"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int

	// NumShards is the number of cache shards. Must be greater than 0.
	NumShards int

	// TTL is the store-wide entry lifetime. Per-entry TTLs shorter than this
	// are enforced through the entry envelope.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted at capacity (1-100).
	EvictionPercentage int
}

// DefaultMemoryConfig returns defaults suitable for a single proxy instance.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// MemoryStore is a Store over a sturdyc client with a local tag index. It is
// meant for single-process deployments and tests.
type MemoryStore struct {
	client *sturdyc.Client[[]byte]

	mu      sync.Mutex
	tags    map[string]map[string]struct{}
	keyTags map[string][]string

	// capacity mirrors the sturdyc capacity; sweepAt is the index size
	// that triggers the next prune.
	capacity int
	sweepAt  int
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
	)

	return &MemoryStore{
		client:   client,
		tags:     make(map[string]map[string]struct{}),
		keyTags:  make(map[string][]string),
		capacity: cfg.Capacity,
		sweepAt:  cfg.Capacity,
	}, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.client.Get(key)
	if !ok {
		s.mu.Lock()
		s.unindex(key)
		s.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, data []byte, tags []string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unindex(key)
	if len(s.keyTags) >= s.sweepAt {
		s.prune()
	}
	s.client.Set(key, append([]byte(nil), data...))
	for _, tag := range tags {
		members, ok := s.tags[tag]
		if !ok {
			members = make(map[string]struct{})
			s.tags[tag] = members
		}
		members[key] = struct{}{}
	}
	s.keyTags[key] = append([]string(nil), tags...)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.unindex(key)
		s.client.Delete(key)
	}
	return nil
}

// DeleteByTags implements Store.
func (s *MemoryStore) DeleteByTags(_ context.Context, tags ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, tag := range tags {
		for key := range s.tags[tag] {
			if _, ok := s.client.Get(key); ok {
				removed++
			}
			s.unindex(key)
			s.client.Delete(key)
		}
		delete(s.tags, tag)
	}
	return removed, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	return s.client.Size()
}

// Prune drops tag index entries for keys the underlying cache has expired
// or evicted. It returns the number of keys removed from the index.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune()
}

// prune is Prune without locking. Caller holds mu.
func (s *MemoryStore) prune() int {
	removed := 0
	for key := range s.keyTags {
		if _, ok := s.client.Get(key); !ok {
			s.unindex(key)
			removed++
		}
	}
	s.sweepAt = max(s.capacity, 2*len(s.keyTags))
	return removed
}

// unindex drops key from every tag it was registered under. Caller holds mu.
func (s *MemoryStore) unindex(key string) {
	for _, tag := range s.keyTags[key] {
		if members, ok := s.tags[tag]; ok {
			delete(members, key)
			if len(members) == 0 {
				delete(s.tags, tag)
			}
		}
	}
	delete(s.keyTags, key)
}
