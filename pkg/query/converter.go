// Package query translates criteria.SearchCriteria into the stories endpoint
// dialect: a canonical Request plus the special parameters only the raw query
// path can carry.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/content-cache/pkg/criteria"
)

// storyFields are the top-level story fields that sort without a content. prefix.
var storyFields = []string{
	"id", "uuid", "parent_id", "group_id", "release_id", "content",
	"name", "slug", "full_slug", "default_full_slug", "path",
	"created_at", "published_at", "first_published_at", "updated_at", "sort_by_date",
	"position", "is_startpage", "lang", "alternatives", "translated_slugs",
	"meta_data", "tag_list", "cache_version", "rels",
}

// Params the canonical endpoint accepts directly; moved out of SpecialParams.
var promotedParams = []string{ParamWithTag, ParamExcludingIDs, ParamSearchTerm, ParamExcludingSlugs}

var (
	digitsPattern  = regexp.MustCompile(`^\d+$`)
	numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// dateWireLayout is the date format of gt_date/lt_date filters.
const dateWireLayout = "2006-01-02 15:04"

// Scope carries the session-derived values a conversion depends on.
// Zero fields fall back to defaults.
type Scope struct {
	Version  criteria.Version
	Language string
}

// Converter turns search criteria into remote requests. It holds no mutable
// state and is safe for concurrent use.
type Converter struct {
	sortFields map[string]struct{}
}

// NewConverter creates a converter.
func NewConverter() *Converter {
	fields := make(map[string]struct{}, len(storyFields))
	for _, f := range storyFields {
		fields[f] = struct{}{}
	}
	return &Converter{sortFields: fields}
}

// Convert translates sc. The returned Request never contains values that remain
// in SpecialParams. On error neither a request nor params are returned.
func (c *Converter) Convert(sc criteria.SearchCriteria, scope Scope) (*Request, SpecialParams, error) {
	sc = sc.Normalize()

	special := SpecialParams{}
	var filters []StandardFilter

	for _, f := range sc.Filters() {
		if m, ok := LookupMapping(f.Field, f.Condition); ok {
			if v := m.Apply(f.Value); !v.Empty() {
				special[m.Param] = v
			}
			continue
		}

		sf, err := standardFilter(f)
		if err != nil {
			return nil, nil, err
		}
		filters = append(filters, sf)
	}

	sortBy, err := c.sortBy(sc.SortOrders)
	if err != nil {
		return nil, nil, err
	}

	req := &Request{
		Language:          resolveLanguage(sc.Language, scope.Language),
		Page:              sc.Page,
		PerPage:           sc.PageSize,
		SortBy:            sortBy,
		Filters:           filters,
		ExcludeFields:     append([]string(nil), sc.ExcludeFields...),
		ResolveRelations:  append([]string(nil), sc.ResolveRelations...),
		Version:           resolveVersion(sc.Version, scope.Version),
		SearchTerm:        sc.SearchTerm,
		ResolveLinks:      sc.ResolveLinks,
		ResolveLinksLevel: sc.ResolveLinksLevel,
	}

	for _, name := range promotedParams {
		v, ok := special[name]
		if !ok {
			continue
		}
		delete(special, name)

		switch name {
		case ParamWithTag:
			req.WithTag = v.Values()
		case ParamExcludingIDs:
			req.ExcludingIDs = v.Values()
		case ParamExcludingSlugs:
			req.ExcludingSlugs = v.Values()
		case ParamSearchTerm:
			req.SearchTerm = v.String()
		}
	}

	return req, special, nil
}

// IsStoryField reports whether field is a top-level story field.
func (c *Converter) IsStoryField(field string) bool {
	_, ok := c.sortFields[field]
	return ok
}

func (c *Converter) sortBy(orders []criteria.SortOrder) (*SortBy, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	first := orders[0]

	dir, ok := criteria.ParseDirection(string(first.Direction))
	if !ok {
		return nil, &ValidationError{Field: first.Field, Value: string(first.Direction), Err: ErrUnsupportedDirection}
	}

	field := first.Field
	if !c.IsStoryField(field) {
		field = "content." + field
	}
	return &SortBy{Field: field, Direction: dir}, nil
}

func standardFilter(f criteria.Filter) (StandardFilter, error) {
	cond, ok := criteria.ParseCondition(string(f.Condition))
	if !ok {
		return StandardFilter{}, &ValidationError{Field: f.Field, Condition: f.Condition, Value: f.Value, Err: ErrUnsupportedCondition}
	}

	out := StandardFilter{Field: f.Field}
	switch cond {
	case criteria.ConditionEquals:
		out.Op, out.Value = OpIs, f.Value
	case criteria.ConditionLike:
		out.Op, out.Value = OpLike, f.Value
	case criteria.ConditionNotLike:
		out.Op, out.Value = OpNotLike, f.Value
	case criteria.ConditionIn:
		out.Op, out.Values = OpIn, SplitList(f.Value).Values()
	case criteria.ConditionNotIn:
		out.Op, out.Values = OpNotIn, SplitList(f.Value).Values()
	case criteria.ConditionAllIn:
		out.Op, out.Values = OpAllInArray, SplitList(f.Value).Values()
	case criteria.ConditionAnyIn:
		out.Op, out.Values = OpAnyInArray, SplitList(f.Value).Values()
	case criteria.ConditionGreaterThan:
		return comparison(f, cond, OpGtInt, OpGtFloat, OpGtDate)
	case criteria.ConditionLessThan:
		return comparison(f, cond, OpLtInt, OpLtFloat, OpLtDate)
	}
	return out, nil
}

// comparison picks the int, float or date sub-kind from the shape of the value.
func comparison(f criteria.Filter, cond criteria.ConditionType, intOp, floatOp, dateOp FilterOp) (StandardFilter, error) {
	v := strings.TrimSpace(f.Value)

	if digitsPattern.MatchString(v) {
		return StandardFilter{Field: f.Field, Op: intOp, Value: v}, nil
	}
	if numericPattern.MatchString(v) {
		n, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return StandardFilter{Field: f.Field, Op: floatOp, Value: strconv.FormatFloat(n, 'f', -1, 64)}, nil
		}
	}
	if t, ok := parseDate(v); ok {
		return StandardFilter{Field: f.Field, Op: dateOp, Value: t.Format(dateWireLayout)}, nil
	}

	return StandardFilter{}, &ValidationError{Field: f.Field, Condition: cond, Value: f.Value, Err: ErrUnsupportedValue}
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func resolveVersion(explicit, scoped criteria.Version) criteria.Version {
	switch {
	case explicit.Valid():
		return explicit
	case scoped.Valid():
		return scoped
	default:
		return criteria.VersionPublished
	}
}

func resolveLanguage(explicit, scoped string) string {
	switch {
	case explicit != "":
		return explicit
	case scoped != "":
		return scoped
	default:
		return criteria.DefaultLanguage
	}
}
