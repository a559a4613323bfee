package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sternrassler/content-cache/pkg/criteria"
)

func TestRequest_Query(t *testing.T) {
	req := &Request{
		Language: "de",
		Page:     2,
		PerPage:  50,
		SortBy:   &SortBy{Field: "content.author", Direction: criteria.DirectionDesc},
		Filters: []StandardFilter{
			{Field: "component", Op: OpIs, Value: "article"},
			{Field: "categories", Op: OpAllInArray, Values: []string{"a", "b"}},
		},
		ExcludeFields:     []string{"body"},
		WithTag:           []string{"news"},
		ResolveRelations:  []string{"article.author"},
		Version:           criteria.VersionDraft,
		ResolveLinks:      criteria.LinkTypeURL,
		ResolveLinksLevel: 2,
	}

	q := req.Query()

	assert.Equal(t, "de", q.Get("language"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "50", q.Get("per_page"))
	assert.Equal(t, "content.author:desc", q.Get("sort_by"))
	assert.Equal(t, "article", q.Get("filter_query[component][is]"))
	assert.Equal(t, "a,b", q.Get("filter_query[categories][all_in_array]"))
	assert.Equal(t, "body", q.Get("excluding_fields"))
	assert.Equal(t, "news", q.Get("with_tag"))
	assert.Equal(t, "article.author", q.Get("resolve_relations"))
	assert.Equal(t, "draft", q.Get("version"))
	assert.Equal(t, "url", q.Get("resolve_links"))
	assert.Equal(t, "2", q.Get("resolve_links_level"))
	assert.False(t, q.Has("search_term"))
	assert.False(t, q.Has("excluding_ids"))
}

func TestRequest_ItemRequest(t *testing.T) {
	req := &Request{
		Language:         "en",
		Version:          criteria.VersionPublished,
		ResolveRelations: []string{"a.b"},
		ExcludeFields:    []string{"body"},
		Page:             3,
	}

	item := req.ItemRequest()
	req.ResolveRelations[0] = "changed"

	assert.Equal(t, []string{"a.b"}, item.ResolveRelations)

	q := item.Query()
	assert.Equal(t, "en", q.Get("language"))
	assert.Equal(t, "published", q.Get("version"))
	assert.Equal(t, "body", q.Get("excluding_fields"))
	assert.False(t, q.Has("page"))
	assert.False(t, q.Has("resolve_links"))
}

func TestParamValue(t *testing.T) {
	assert.True(t, Scalar("").Empty())
	assert.True(t, List().Empty())
	assert.False(t, List("a").Empty())
	assert.Equal(t, "a,b", List("a", "b").String())
	assert.Equal(t, []string{"x"}, SplitList(" , x ,").Values())
}

func TestLookupMapping_Aliases(t *testing.T) {
	m, ok := LookupMapping("slug", "not_in")
	assert.True(t, ok)
	assert.Equal(t, ParamExcludingSlugs, m.Param)

	_, ok = LookupMapping("slug", criteria.ConditionEquals)
	assert.False(t, ok)
}
