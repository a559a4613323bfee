package cache

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeyPrefix namespaces every entry and tag set written by this package.
const KeyPrefix = "storyblok"

// DefaultScope is used when no scope discriminator is configured.
const DefaultScope = "default"

// Kind distinguishes single-story entries from list entries.
type Kind string

const (
	KindStory Kind = "story"
	KindList  Kind = "list"
)

// CacheKey identifies a cached response.
type CacheKey struct {
	// Kind separates item and list entries built from the same input.
	Kind Kind

	// Identifier is the raw lookup value (slug, id, uuid). Empty for lists.
	Identifier string

	// QueryParams are the encoded request parameters.
	QueryParams url.Values

	// Scope is the tenant/site discriminator.
	Scope string
}

// String generates a deterministic key.
// Format: storyblok:<kind>:<identifier>[-<fingerprint>]:<scope>
//
// Example:
//
//	storyblok:story:home-4f1c0d3a9b2e8c71:default
//	storyblok:list:a0c4e1f27d3b9655:de-store
func (k CacheKey) String() string {
	kind := k.Kind
	if kind == "" {
		kind = KindStory
	}
	scope := k.Scope
	if scope == "" {
		scope = DefaultScope
	}

	body := k.Identifier
	if fp := Fingerprint(k.QueryParams); fp != "" {
		if body != "" {
			body += "-"
		}
		body += fp
	}

	return strings.Join([]string{KeyPrefix, string(kind), body, scope}, ":")
}

// Fingerprint hashes query params into a fixed-width hex string. Keys are
// sorted; every value of a key is kept in order. Empty params yield "".
func Fingerprint(params url.Values) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	d := xxhash.New()
	for _, key := range keys {
		_, _ = d.WriteString(key)
		_, _ = d.WriteString("=")
		for i, v := range params[key] {
			if i > 0 {
				_, _ = d.WriteString("\x1f")
			}
			_, _ = d.WriteString(v)
		}
		_, _ = d.WriteString("\x1e")
	}

	s := strconv.FormatUint(d.Sum64(), 16)
	return strings.Repeat("0", 16-len(s)) + s
}

// TagKey returns the store key holding the members of a tag.
func TagKey(tag string) string {
	return KeyPrefix + ":tag:" + tag
}
