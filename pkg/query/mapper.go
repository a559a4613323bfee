package query

import (
	"strconv"
	"strings"

	"github.com/Sternrassler/content-cache/pkg/criteria"
)

// Special parameter names understood by the stories endpoint.
const (
	ParamStartsWith         = "starts_with"
	ParamSearchTerm         = "search_term"
	ParamBySlugs            = "by_slugs"
	ParamExcludingSlugs     = "excluding_slugs"
	ParamPublishedAtGt      = "published_at_gt"
	ParamPublishedAtLt      = "published_at_lt"
	ParamFirstPublishedAtGt = "first_published_at_gt"
	ParamFirstPublishedAtLt = "first_published_at_lt"
	ParamUpdatedAtGt        = "updated_at_gt"
	ParamUpdatedAtLt        = "updated_at_lt"
	ParamInWorkflowStages   = "in_workflow_stages"
	ParamContentType        = "content_type"
	ParamLevel              = "level"
	ParamByIDs              = "by_ids"
	ParamExcludingIDs       = "excluding_ids"
	ParamByUUIDs            = "by_uuids"
	ParamByUUIDsOrdered     = "by_uuids_ordered"
	ParamWithTag            = "with_tag"
	ParamIsStartpage        = "is_startpage"
	ParamFromRelease        = "from_release"
)

// ParamValue is the transformed value of a special parameter: a scalar or a list.
type ParamValue struct {
	values []string
	list   bool
}

// Scalar wraps a single value.
func Scalar(v string) ParamValue {
	return ParamValue{values: []string{v}}
}

// List wraps a list of values.
func List(vs ...string) ParamValue {
	return ParamValue{values: append([]string(nil), vs...), list: true}
}

// IsList reports whether the value is sent as a comma-joined list.
func (p ParamValue) IsList() bool { return p.list }

// Values returns a copy of the underlying values.
func (p ParamValue) Values() []string {
	return append([]string(nil), p.values...)
}

// Empty reports whether the value carries nothing to send.
func (p ParamValue) Empty() bool {
	return len(p.values) == 0 || (!p.list && p.values[0] == "")
}

// String returns the wire form; lists are comma-joined.
func (p ParamValue) String() string {
	return strings.Join(p.values, ",")
}

// Transform coerces a raw filter value into a parameter value.
type Transform func(string) ParamValue

// Mapping routes a (field, condition) pair to a special parameter.
type Mapping struct {
	Param     string
	Transform Transform
}

// Apply transforms value; mappings without a transform pass the value through as a scalar.
func (m Mapping) Apply(value string) ParamValue {
	if m.Transform == nil {
		return Scalar(value)
	}
	return m.Transform(value)
}

type mappingKey struct {
	field     string
	condition criteria.ConditionType
}

// filterMappings is the closed table of special-parameter routes. Any pair not
// listed here becomes a standard filter.
var filterMappings = map[mappingKey]Mapping{
	{"starts_with", criteria.ConditionEquals}:             {Param: ParamStartsWith},
	{"search_term", criteria.ConditionEquals}:             {Param: ParamSearchTerm},
	{"slug", criteria.ConditionIn}:                        {Param: ParamBySlugs, Transform: SplitList},
	{"slug", criteria.ConditionNotIn}:                     {Param: ParamExcludingSlugs, Transform: SplitList},
	{"published_at", criteria.ConditionGreaterThan}:       {Param: ParamPublishedAtGt},
	{"published_at", criteria.ConditionLessThan}:          {Param: ParamPublishedAtLt},
	{"first_published_at", criteria.ConditionGreaterThan}: {Param: ParamFirstPublishedAtGt},
	{"first_published_at", criteria.ConditionLessThan}:    {Param: ParamFirstPublishedAtLt},
	{"updated_at", criteria.ConditionGreaterThan}:         {Param: ParamUpdatedAtGt},
	{"updated_at", criteria.ConditionLessThan}:            {Param: ParamUpdatedAtLt},
	{"workflow_stage", criteria.ConditionIn}:              {Param: ParamInWorkflowStages, Transform: SplitList},
	{"content_type", criteria.ConditionEquals}:            {Param: ParamContentType},
	{"level", criteria.ConditionEquals}:                   {Param: ParamLevel},
	{"id", criteria.ConditionIn}:                          {Param: ParamByIDs, Transform: SplitList},
	{"id", criteria.ConditionNotIn}:                       {Param: ParamExcludingIDs, Transform: SplitList},
	{"uuid", criteria.ConditionIn}:                        {Param: ParamByUUIDs, Transform: SplitList},
	{"tag", criteria.ConditionIn}:                         {Param: ParamWithTag, Transform: SplitList},
	{"is_startpage", criteria.ConditionEquals}:            {Param: ParamIsStartpage, Transform: Flag},
	{"release", criteria.ConditionEquals}:                 {Param: ParamFromRelease},
}

// LookupMapping returns the special-parameter route for a (field, condition) pair.
// condition may be any accepted alias.
func LookupMapping(field string, condition criteria.ConditionType) (Mapping, bool) {
	m, ok := filterMappings[mappingKey{field: field, condition: condition.Canonical()}]
	return m, ok
}

// SplitList splits a comma-joined value, trimming blanks and dropping empty items.
func SplitList(value string) ParamValue {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return List(out...)
}

// Flag coerces a truthy/falsy value to "1" or "0".
func Flag(value string) ParamValue {
	v := strings.ToLower(strings.TrimSpace(value))
	if b, err := strconv.ParseBool(v); err == nil {
		if b {
			return Scalar("1")
		}
		return Scalar("0")
	}
	if v == "yes" || v == "on" {
		return Scalar("1")
	}
	return Scalar("0")
}
