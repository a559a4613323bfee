package criteria

import "testing"

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in     string
		want   ConditionType
		wantOK bool
	}{
		{"", ConditionEquals, true},
		{"is", ConditionEquals, true},
		{"EQ", ConditionEquals, true},
		{"not_like", ConditionNotLike, true},
		{"notlike", ConditionNotLike, true},
		{"NotIn", ConditionNotIn, true},
		{"greaterthan", ConditionGreaterThan, true},
		{"lessthan", ConditionLessThan, true},
		{"allin", ConditionAllIn, true},
		{"any_in", ConditionAnyIn, true},
		{"between", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCondition(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseCondition(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseCondition(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	if d, ok := ParseDirection("DESC"); !ok || d != DirectionDesc {
		t.Errorf("ParseDirection(DESC) = %v, %v", d, ok)
	}
	if d, ok := ParseDirection(""); !ok || d != DirectionAsc {
		t.Errorf("ParseDirection(\"\") = %v, %v", d, ok)
	}
	if _, ok := ParseDirection("sideways"); ok {
		t.Error("ParseDirection(sideways) should fail")
	}
}

func TestSearchCriteria_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
	}{
		{"defaults", 0, 0, DefaultPage, DefaultPageSize},
		{"negative", -3, -1, DefaultPage, DefaultPageSize},
		{"explicit", 4, 100, 4, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchCriteria{Page: tt.page, PageSize: tt.size}.Normalize()
			if got.Page != tt.wantPage || got.PageSize != tt.wantPageSize {
				t.Errorf("Normalize() = (%d, %d), want (%d, %d)", got.Page, got.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestBuilder_Create(t *testing.T) {
	b := NewBuilder()
	sc := b.AddFilter("slug", "a,b", ConditionIn).
		AddFilterGroup(Filter{Field: "tag", Condition: ConditionIn, Value: "news"}, Filter{Field: "name", Value: "x"}).
		AddSortOrder("published_at", DirectionDesc).
		SetLanguage("de").
		SetResolvedLinks(LinkTypeURL, 7).
		SetPageSize(100).
		Create()

	if len(sc.FilterGroups) != 2 {
		t.Fatalf("FilterGroups = %d, want 2", len(sc.FilterGroups))
	}
	if len(sc.Filters()) != 3 {
		t.Errorf("Filters() = %d, want 3", len(sc.Filters()))
	}
	if sc.Page != DefaultPage || sc.PageSize != 100 {
		t.Errorf("pagination = (%d, %d)", sc.Page, sc.PageSize)
	}
	if sc.ResolveLinksLevel != 1 {
		t.Errorf("ResolveLinksLevel = %d, want 1", sc.ResolveLinksLevel)
	}

	// Builder is reset after Create.
	if next := b.Create(); len(next.FilterGroups) != 0 || next.Language != "" {
		t.Errorf("builder not reset: %+v", next)
	}
}

func TestSearchCriteria_WithPage(t *testing.T) {
	sc := SearchCriteria{PageSize: 10}
	next := sc.WithPage(3)
	if next.Page != 3 || next.PageSize != 10 {
		t.Errorf("WithPage(3) = %+v", next)
	}
	if sc.Page != 0 {
		t.Error("WithPage mutated the receiver")
	}
}
