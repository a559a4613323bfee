// Package criteria defines the generic, paginated and filterable search model
// callers use to query stories, independent of the remote API dialect.
package criteria

import "strings"

const (
	// DefaultPage is used when no (or a non-positive) page is requested.
	DefaultPage = 1

	// DefaultPageSize is used when no (or a non-positive) page size is requested.
	DefaultPageSize = 25

	// DefaultLanguage selects the space's default language.
	DefaultLanguage = "default"
)

// ConditionType is the comparison applied by a Filter.
type ConditionType string

const (
	ConditionEquals      ConditionType = "eq"
	ConditionLike        ConditionType = "like"
	ConditionNotLike     ConditionType = "nlike"
	ConditionIn          ConditionType = "in"
	ConditionNotIn       ConditionType = "nin"
	ConditionGreaterThan ConditionType = "gt"
	ConditionLessThan    ConditionType = "lt"
	ConditionAllIn       ConditionType = "all_in"
	ConditionAnyIn       ConditionType = "any_in"
)

// conditionAliases maps every accepted spelling to its canonical condition.
var conditionAliases = map[string]ConditionType{
	"":            ConditionEquals,
	"eq":          ConditionEquals,
	"is":          ConditionEquals,
	"like":        ConditionLike,
	"nlike":       ConditionNotLike,
	"notlike":     ConditionNotLike,
	"not_like":    ConditionNotLike,
	"in":          ConditionIn,
	"nin":         ConditionNotIn,
	"notin":       ConditionNotIn,
	"not_in":      ConditionNotIn,
	"gt":          ConditionGreaterThan,
	"greaterthan": ConditionGreaterThan,
	"lt":          ConditionLessThan,
	"lessthan":    ConditionLessThan,
	"allin":       ConditionAllIn,
	"all_in":      ConditionAllIn,
	"anyin":       ConditionAnyIn,
	"any_in":      ConditionAnyIn,
}

// ParseCondition resolves a condition name or alias, case-insensitively.
// The second return value is false for unknown conditions.
func ParseCondition(s string) (ConditionType, bool) {
	c, ok := conditionAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// Canonical returns the canonical form of c, or c unchanged if it is unknown.
func (c ConditionType) Canonical() ConditionType {
	if parsed, ok := ParseCondition(string(c)); ok {
		return parsed
	}
	return c
}

// Direction is a sort direction.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// ParseDirection parses a direction case-insensitively. An empty string is asc.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return DirectionAsc, true
	case "desc":
		return DirectionDesc, true
	default:
		return Direction(s), false
	}
}

// Version selects draft or published content.
type Version string

const (
	VersionDraft     Version = "draft"
	VersionPublished Version = "published"
)

// Valid reports whether v is one of the known versions.
func (v Version) Valid() bool {
	return v == VersionDraft || v == VersionPublished
}

// LinkType selects how links inside content are resolved.
type LinkType string

const (
	LinkTypeNone  LinkType = ""
	LinkTypeLink  LinkType = "link"
	LinkTypeURL   LinkType = "url"
	LinkTypeStory LinkType = "story"
)

// Filter is a single (field, condition, value) predicate. List values are comma-joined.
type Filter struct {
	Field     string
	Condition ConditionType
	Value     string
}

// FilterGroup is a disjunction of filters.
type FilterGroup struct {
	Filters []Filter
}

// SortOrder orders results by a single field.
type SortOrder struct {
	Field     string
	Direction Direction
}

// SearchCriteria describes a paginated, filtered story listing.
type SearchCriteria struct {
	Language string
	Page     int
	PageSize int

	SortOrders   []SortOrder
	FilterGroups []FilterGroup

	ExcludeFields    []string
	ResolveRelations []string

	// Version is optional; empty means "let the session decide".
	Version    Version
	SearchTerm string

	ResolveLinks      LinkType
	ResolveLinksLevel int
}

// Normalize returns a copy with pagination defaults applied.
func (c SearchCriteria) Normalize() SearchCriteria {
	if c.Page < 1 {
		c.Page = DefaultPage
	}
	if c.PageSize < 1 {
		c.PageSize = DefaultPageSize
	}
	return c
}

// WithPage returns a copy requesting the given page.
func (c SearchCriteria) WithPage(page int) SearchCriteria {
	c.Page = page
	return c.Normalize()
}

// Filters returns every filter of every group in declaration order.
func (c SearchCriteria) Filters() []Filter {
	var out []Filter
	for _, g := range c.FilterGroups {
		out = append(out, g.Filters...)
	}
	return out
}
