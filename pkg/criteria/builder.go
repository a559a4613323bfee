package criteria

// Builder assembles SearchCriteria fluently.
//
//	sc := criteria.NewBuilder().
//		AddFilter("slug", "home,about", criteria.ConditionIn).
//		AddSortOrder("published_at", criteria.DirectionDesc).
//		SetPageSize(100).
//		Create()
type Builder struct {
	c SearchCriteria
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddFilter adds a filter in its own group.
func (b *Builder) AddFilter(field, value string, condition ConditionType) *Builder {
	return b.AddFilterGroup(Filter{Field: field, Condition: condition, Value: value})
}

// AddFilterGroup adds a disjunction of filters.
func (b *Builder) AddFilterGroup(filters ...Filter) *Builder {
	if len(filters) == 0 {
		return b
	}
	b.c.FilterGroups = append(b.c.FilterGroups, FilterGroup{Filters: append([]Filter(nil), filters...)})
	return b
}

// AddSortOrder appends a sort order. Only the first one is honored by the converter.
func (b *Builder) AddSortOrder(field string, direction Direction) *Builder {
	b.c.SortOrders = append(b.c.SortOrders, SortOrder{Field: field, Direction: direction})
	return b
}

// SetPage sets the 1-based page number.
func (b *Builder) SetPage(page int) *Builder {
	b.c.Page = page
	return b
}

// SetPageSize sets the number of items per page.
func (b *Builder) SetPageSize(size int) *Builder {
	b.c.PageSize = size
	return b
}

// SetLanguage sets the content language code.
func (b *Builder) SetLanguage(language string) *Builder {
	b.c.Language = language
	return b
}

// SetVersion selects draft or published content.
func (b *Builder) SetVersion(version Version) *Builder {
	b.c.Version = version
	return b
}

// SetSearchTerm sets the full-text search term.
func (b *Builder) SetSearchTerm(term string) *Builder {
	b.c.SearchTerm = term
	return b
}

// SetExcludeFields replaces the fields omitted from the response.
func (b *Builder) SetExcludeFields(fields ...string) *Builder {
	b.c.ExcludeFields = append([]string(nil), fields...)
	return b
}

// SetResolvedRelations replaces the relations resolved inline.
func (b *Builder) SetResolvedRelations(relations ...string) *Builder {
	b.c.ResolveRelations = append([]string(nil), relations...)
	return b
}

// SetResolvedLinks sets link resolution. Levels outside 1..2 fall back to 1.
func (b *Builder) SetResolvedLinks(linkType LinkType, level int) *Builder {
	if level < 1 || level > 2 {
		level = 1
	}
	b.c.ResolveLinks = linkType
	b.c.ResolveLinksLevel = level
	return b
}

// Create returns the normalized criteria and resets the builder.
func (b *Builder) Create() SearchCriteria {
	out := b.c.Normalize()
	b.c = SearchCriteria{}
	return out
}
