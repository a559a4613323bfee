package story

import (
	"sort"
	"strconv"
)

// Tag prefixes. Tags are derived from response content so an item's
// invalidation reaches every entry that embedded it.
const (
	TagPrefixItem    = "item:"
	TagPrefixSlug    = "slug:"
	TagPrefixVersion = "version:"
)

func ItemTag(id string) string      { return TagPrefixItem + id }
func SlugTag(slug string) string    { return TagPrefixSlug + slug }
func VersionTag(cv string) string   { return TagPrefixVersion + cv }
func versionTagInt(cv int64) string { return VersionTag(strconv.FormatInt(cv, 10)) }

// Tags returns the identity tags of a story: id, slug and full slug.
func (s Story) Tags() []string {
	tags := []string{ItemTag(s.IDString())}
	if s.Slug != "" {
		tags = append(tags, SlugTag(s.Slug))
	}
	if s.FullSlug != "" && s.FullSlug != s.Slug {
		tags = append(tags, SlugTag(s.FullSlug))
	}
	return tags
}

// Tags returns the story's tags plus the cache version tag.
func (r *ItemResponse) Tags() []string {
	return dedupe(append(r.Story.Tags(), versionTagInt(r.CV)))
}

// Tags returns the union of every listed story's tags plus the cache version tag.
func (r *ListResponse) Tags() []string {
	tags := []string{versionTagInt(r.CV)}
	for _, s := range r.Stories {
		tags = append(tags, s.Tags()...)
	}
	return dedupe(tags)
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
