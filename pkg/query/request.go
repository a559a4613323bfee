package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/content-cache/pkg/criteria"
)

// FilterOp is the operation of a standard filter in the remote filter_query dialect.
type FilterOp string

const (
	OpIs         FilterOp = "is"
	OpLike       FilterOp = "like"
	OpNotLike    FilterOp = "not_like"
	OpIn         FilterOp = "in"
	OpNotIn      FilterOp = "not_in"
	OpGtInt      FilterOp = "gt_int"
	OpGtFloat    FilterOp = "gt_float"
	OpGtDate     FilterOp = "gt_date"
	OpLtInt      FilterOp = "lt_int"
	OpLtFloat    FilterOp = "lt_float"
	OpLtDate     FilterOp = "lt_date"
	OpAllInArray FilterOp = "all_in_array"
	OpAnyInArray FilterOp = "any_in_array"
)

// StandardFilter is a generic predicate passed through to filter_query.
// List operations carry Values; all others carry Value.
type StandardFilter struct {
	Field  string
	Op     FilterOp
	Value  string
	Values []string
}

func (f StandardFilter) wireValue() string {
	if f.Values != nil {
		return strings.Join(f.Values, ",")
	}
	return f.Value
}

// SortBy is the single sort key sent to the remote API.
type SortBy struct {
	Field     string
	Direction criteria.Direction
}

func (s SortBy) String() string {
	return s.Field + ":" + string(s.Direction)
}

// Request is the canonical stories query. It is built once per call by the
// Converter and not mutated afterwards.
type Request struct {
	Language string
	Page     int
	PerPage  int
	SortBy   *SortBy
	Filters  []StandardFilter

	ExcludeFields    []string
	WithTag          []string
	ExcludingIDs     []string
	ResolveRelations []string
	Version          criteria.Version
	SearchTerm       string

	ResolveLinks      criteria.LinkType
	ResolveLinksLevel int

	ExcludingSlugs []string
}

// Query encodes the request in the stories endpoint dialect.
func (r *Request) Query() url.Values {
	q := url.Values{}
	q.Set("language", r.Language)
	q.Set("page", strconv.Itoa(r.Page))
	q.Set("per_page", strconv.Itoa(r.PerPage))
	q.Set("version", string(r.Version))

	if r.SortBy != nil {
		q.Set("sort_by", r.SortBy.String())
	}
	for _, f := range r.Filters {
		q.Add("filter_query["+f.Field+"]["+string(f.Op)+"]", f.wireValue())
	}

	setList(q, "excluding_fields", r.ExcludeFields)
	setList(q, ParamWithTag, r.WithTag)
	setList(q, ParamExcludingIDs, r.ExcludingIDs)
	setList(q, "resolve_relations", r.ResolveRelations)
	setList(q, ParamExcludingSlugs, r.ExcludingSlugs)

	if r.SearchTerm != "" {
		q.Set(ParamSearchTerm, r.SearchTerm)
	}
	setLinks(q, r.ResolveLinks, r.ResolveLinksLevel)
	return q
}

// ItemRequest projects the parts of the request that shape a single story
// payload. Items fanned out of a list are keyed with it.
func (r *Request) ItemRequest() StoryRequest {
	return StoryRequest{
		Language:          r.Language,
		Version:           r.Version,
		ResolveRelations:  append([]string(nil), r.ResolveRelations...),
		ResolveLinks:      r.ResolveLinks,
		ResolveLinksLevel: r.ResolveLinksLevel,
		ExcludeFields:     append([]string(nil), r.ExcludeFields...),
	}
}

// StoryRequest is a single-story lookup.
type StoryRequest struct {
	Language          string
	Version           criteria.Version
	ResolveRelations  []string
	ResolveLinks      criteria.LinkType
	ResolveLinksLevel int
	ExcludeFields     []string
}

// Query encodes the lookup parameters.
func (r StoryRequest) Query() url.Values {
	q := url.Values{}
	if r.Language != "" {
		q.Set("language", r.Language)
	}
	if r.Version != "" {
		q.Set("version", string(r.Version))
	}
	setList(q, "resolve_relations", r.ResolveRelations)
	setList(q, "excluding_fields", r.ExcludeFields)
	setLinks(q, r.ResolveLinks, r.ResolveLinksLevel)
	return q
}

// SpecialParams holds mapped parameters the canonical endpoint does not accept.
type SpecialParams map[string]ParamValue

// Names returns the parameter names in sorted order.
func (p SpecialParams) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a copy of base with every special parameter set on it.
func (p SpecialParams) Merge(base url.Values) url.Values {
	out := make(url.Values, len(base)+len(p))
	for k, vs := range base {
		out[k] = append([]string(nil), vs...)
	}
	for name, v := range p {
		out.Set(name, v.String())
	}
	return out
}

func setList(q url.Values, key string, values []string) {
	if len(values) > 0 {
		q.Set(key, strings.Join(values, ","))
	}
}

func setLinks(q url.Values, linkType criteria.LinkType, level int) {
	if linkType == criteria.LinkTypeNone {
		return
	}
	q.Set("resolve_links", string(linkType))
	if level > 0 {
		q.Set("resolve_links_level", strconv.Itoa(level))
	}
}
