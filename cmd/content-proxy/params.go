package main

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/content-cache/pkg/criteria"
	"github.com/Sternrassler/content-cache/pkg/repository"
)

// filter[field][condition]=value; a missing condition means eq.
var filterParam = regexp.MustCompile(`^filter\[([^\]]+)\](?:\[([^\]]*)\])?$`)

// parseCriteria builds search criteria from list query parameters. Every
// filter parameter becomes its own group.
func parseCriteria(q url.Values) (criteria.SearchCriteria, error) {
	b := criteria.NewBuilder()

	page, err := intParam(q, "page")
	if err != nil {
		return criteria.SearchCriteria{}, err
	}
	perPage, err := intParam(q, "per_page")
	if err != nil {
		return criteria.SearchCriteria{}, err
	}
	b.SetPage(page).SetPageSize(perPage)

	if v := q.Get("sort_by"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		direction, ok := criteria.ParseDirection(dir)
		if !ok {
			return criteria.SearchCriteria{}, fmt.Errorf("sort_by: unknown direction %q", dir)
		}
		b.AddSortOrder(field, direction)
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := filterParam.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		cond, ok := criteria.ParseCondition(m[2])
		if !ok {
			return criteria.SearchCriteria{}, fmt.Errorf("%s: unknown condition %q", k, m[2])
		}
		for _, v := range q[k] {
			b.AddFilter(m[1], v, cond)
		}
	}

	if v := q.Get("version"); v != "" {
		version := criteria.Version(v)
		if !version.Valid() {
			return criteria.SearchCriteria{}, fmt.Errorf("version must be draft or published (got %q)", v)
		}
		b.SetVersion(version)
	}

	b.SetLanguage(q.Get("language")).SetSearchTerm(q.Get("search_term"))
	if fields := splitCSV(q.Get("excluding_fields")); len(fields) > 0 {
		b.SetExcludeFields(fields...)
	}
	if rels := splitCSV(q.Get("resolve_relations")); len(rels) > 0 {
		b.SetResolvedRelations(rels...)
	}

	if v := q.Get("resolve_links"); v != "" {
		level, err := intParam(q, "resolve_links_level")
		if err != nil {
			return criteria.SearchCriteria{}, err
		}
		b.SetResolvedLinks(criteria.LinkType(v), level)
	}

	return b.Create(), nil
}

// parseItemOptions reads relation and link resolution for single lookups.
func parseItemOptions(q url.Values) ([]repository.ItemOption, error) {
	var opts []repository.ItemOption
	if rels := splitCSV(q.Get("resolve_relations")); len(rels) > 0 {
		opts = append(opts, repository.WithResolveRelations(rels...))
	}
	if v := q.Get("resolve_links"); v != "" {
		level, err := intParam(q, "resolve_links_level")
		if err != nil {
			return nil, err
		}
		if level < 1 || level > 2 {
			level = 1
		}
		opts = append(opts, repository.WithResolveLinks(criteria.LinkType(v), level))
	}
	return opts, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", name, v)
	}
	return n, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
