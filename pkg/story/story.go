// Package story holds the typed payloads returned by the content API and the
// cache tags derived from them.
package story

import (
	"encoding/json"
	"strconv"
	"time"
)

// Story is a single content item.
type Story struct {
	ID              int64      `json:"id"`
	UUID            string     `json:"uuid"`
	ParentID        int64      `json:"parent_id,omitempty"`
	GroupID         string     `json:"group_id,omitempty"`
	ReleaseID       *int64     `json:"release_id,omitempty"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	FullSlug        string     `json:"full_slug"`
	DefaultFullSlug string     `json:"default_full_slug,omitempty"`
	Path            string     `json:"path,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	FirstPublished  *time.Time `json:"first_published_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	SortByDate      string     `json:"sort_by_date,omitempty"`
	Position        int        `json:"position"`
	IsStartpage     bool       `json:"is_startpage"`
	Lang            string     `json:"lang,omitempty"`
	TagList         []string   `json:"tag_list,omitempty"`

	Alternatives    []Alternative    `json:"alternatives,omitempty"`
	TranslatedSlugs []TranslatedSlug `json:"translated_slugs,omitempty"`

	// Content is the component tree; its shape is defined by the space schema.
	Content  json.RawMessage `json:"content,omitempty"`
	MetaData json.RawMessage `json:"meta_data,omitempty"`

	// Set on single-item lookups.
	CacheVersion int64   `json:"cache_version,omitempty"`
	Rels         []Story `json:"rels,omitempty"`
}

// Alternative is a sibling story in another folder/language group.
type Alternative struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	FullSlug string `json:"full_slug"`
	IsFolder bool   `json:"is_folder"`
	ParentID int64  `json:"parent_id"`
}

// TranslatedSlug is the slug of a story in a given language.
type TranslatedSlug struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Component returns the root component name of the content tree, if any.
func (s Story) Component() string {
	if len(s.Content) == 0 {
		return ""
	}
	var root struct {
		Component string `json:"component"`
	}
	if err := json.Unmarshal(s.Content, &root); err != nil {
		return ""
	}
	return root.Component
}

// IDString returns the numeric id as a string.
func (s Story) IDString() string {
	return strconv.FormatInt(s.ID, 10)
}

// ItemResponse is the payload of a single-story lookup.
type ItemResponse struct {
	Story Story             `json:"story"`
	CV    int64             `json:"cv"`
	Rels  []Story           `json:"rels,omitempty"`
	Links []json.RawMessage `json:"links,omitempty"`
}

// ToStory returns the story enriched with the response's cache version and relations.
func (r *ItemResponse) ToStory() *Story {
	s := r.Story
	s.CacheVersion = r.CV
	s.Rels = r.Rels
	return &s
}

// ListResponse is the payload of a story listing.
type ListResponse struct {
	Stories []Story           `json:"stories"`
	CV      int64             `json:"cv"`
	Rels    []Story           `json:"rels,omitempty"`
	Links   []json.RawMessage `json:"links,omitempty"`

	// Populated from response headers and the request, not the body.
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Item wraps one story of the listing into a standalone item response.
func (r *ListResponse) Item(i int) *ItemResponse {
	return &ItemResponse{
		Story: r.Stories[i],
		CV:    r.CV,
		Rels:  r.Rels,
		Links: r.Links,
	}
}
