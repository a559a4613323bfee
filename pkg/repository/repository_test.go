package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/content-cache/internal/testutil"
	"github.com/Sternrassler/content-cache/pkg/cache"
	"github.com/Sternrassler/content-cache/pkg/client"
	"github.com/Sternrassler/content-cache/pkg/criteria"
	"github.com/Sternrassler/content-cache/pkg/query"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/story"
)

const (
	uuidHome   = "8a1f6c4e-3b2d-4f5a-9c7e-1d2b3a4c5e6f"
	uuidFirst  = "0b7e9d2c-5a4f-4e3b-8d1c-2f3e4a5b6c7d"
	uuidSecond = "c3d4e5f6-a7b8-4c9d-8e0f-1a2b3c4d5e6f"
)

var published = session.Mode{}

type fixture struct {
	mock  *testutil.MockContentAPI
	repo  *Repository
	cache *cache.ContentCache
	store *cache.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := testutil.NewMockContentAPI()
	t.Cleanup(mock.Close)
	mock.AddStory(story.Story{ID: 1, UUID: uuidHome, Slug: "home", FullSlug: "home", TagList: []string{"featured"}, Content: []byte(`{"component":"page"}`)})
	mock.AddStory(story.Story{ID: 2, UUID: uuidFirst, Slug: "first", FullSlug: "blog/first", Content: []byte(`{"component":"article"}`)})
	mock.AddStory(story.Story{ID: 3, UUID: uuidSecond, Slug: "second", FullSlug: "blog/second", TagList: []string{"featured"}, Content: []byte(`{"component":"article"}`)})

	cfg := client.DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 2 * time.Second
	api, err := client.New(cfg)
	require.NoError(t, err)

	store, err := cache.NewMemoryStore(cache.DefaultMemoryConfig())
	require.NoError(t, err)
	cc, err := cache.NewContentCache(store, cache.DefaultConfig())
	require.NoError(t, err)

	return &fixture{
		mock:  mock,
		repo:  New(api, cc, nil),
		cache: cc,
		store: store,
	}
}

func TestGetBySlug_CachesAfterFirstFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.repo.GetBySlug(ctx, published, "/blog/first/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ID)
	assert.NotZero(t, s.CacheVersion)
	assert.Equal(t, 1, f.mock.GetRequestCount())

	again, err := f.repo.GetBySlug(ctx, published, "blog/first")
	require.NoError(t, err)
	assert.Equal(t, s.UUID, again.UUID)
	assert.Equal(t, 1, f.mock.GetRequestCount(), "second lookup must be served from cache")
}

func TestGetByID_AndUUID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byID, err := f.repo.GetByID(ctx, published, 3)
	require.NoError(t, err)
	assert.Equal(t, "blog/second", byID.FullSlug)

	byUUID, err := f.repo.GetByUUID(ctx, published, uuidHome)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byUUID.ID)
	assert.Equal(t, "uuid", f.mock.GetLastQuery().Get("find_by"))
}

func TestItemLookups_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		lookup      func() (*story.Story, error)
		remoteCalls int
	}{
		{"unknown slug", func() (*story.Story, error) { return f.repo.GetBySlug(ctx, published, "nope") }, 1},
		{"empty slug", func() (*story.Story, error) { return f.repo.GetBySlug(ctx, published, "/") }, 0},
		{"unknown id", func() (*story.Story, error) { return f.repo.GetByID(ctx, published, 99) }, 1},
		{"non-positive id", func() (*story.Story, error) { return f.repo.GetByID(ctx, published, 0) }, 0},
		{"malformed uuid", func() (*story.Story, error) { return f.repo.GetByUUID(ctx, published, "not-a-uuid") }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.mock.Reset()

			s, err := tt.lookup()

			assert.Nil(t, s)
			assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
			var nf *NotFoundError
			assert.True(t, errors.As(err, &nf))
			assert.Equal(t, tt.remoteCalls, f.mock.GetRequestCount())
		})
	}
}

func TestGetBySlug_RemoteFailureIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.SetResponse("/stories/home", testutil.NewServerErrorResponse())

	_, err := f.repo.GetBySlug(context.Background(), published, "home")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, client.ErrorClassServer, apiErr.Class)
}

func TestGetBySlug_PreviewBypassesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	preview := session.Mode{Preview: true}

	for i := 0; i < 2; i++ {
		_, err := f.repo.GetBySlug(ctx, preview, "home")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, f.mock.GetRequestCount())
	assert.Equal(t, "draft", f.mock.GetLastQuery().Get("version"))
	assert.Zero(t, f.store.Len(), "preview lookups must not write the cache")
}

func TestGetList_FansOutItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.repo.GetList(ctx, published, criteria.SearchCriteria{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 1, page.Criteria.Page)
	assert.NotZero(t, page.CV)
	assert.Equal(t, 1, f.mock.GetRequestCount())

	// list entry plus one entry per story
	assert.Equal(t, 4, f.store.Len())

	s, err := f.repo.GetBySlug(ctx, published, "blog/second")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.ID)
	assert.Equal(t, 1, f.mock.GetRequestCount(), "fanned-out item must be served from cache")

	_, err = f.repo.GetList(ctx, published, criteria.SearchCriteria{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, f.mock.GetRequestCount())
}

func TestGetList_InvalidationRefetches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc := criteria.SearchCriteria{PageSize: 10}

	_, err := f.repo.GetList(ctx, published, sc)
	require.NoError(t, err)

	require.NoError(t, f.cache.InvalidateByTags(ctx, []string{story.ItemTag("2")}))

	_, err = f.repo.GetList(ctx, published, sc)
	require.NoError(t, err)
	assert.Equal(t, 2, f.mock.GetRequestCount())
}

func TestGetList_SpecialParamsUseRawQuery(t *testing.T) {
	f := newFixture(t)

	sc := criteria.NewBuilder().
		AddFilter("slug", "home, blog/second", criteria.ConditionIn).
		AddFilter("title", "Hello", criteria.ConditionEquals).
		Create()

	page, err := f.repo.GetList(context.Background(), published, sc)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	q := f.mock.GetLastQuery()
	assert.Equal(t, "home,blog/second", q.Get(query.ParamBySlugs))
	assert.Equal(t, "Hello", q.Get("filter_query[title][is]"))
	assert.Equal(t, "/stories", f.mock.GetLastPath())
}

func TestGetList_PromotedParamsStayCanonical(t *testing.T) {
	f := newFixture(t)

	sc := criteria.NewBuilder().AddFilter("tag", "featured", criteria.ConditionIn).Create()

	page, err := f.repo.GetList(context.Background(), published, sc)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "featured", f.mock.GetLastQuery().Get(query.ParamWithTag))
}

func TestGetList_ValidationError(t *testing.T) {
	f := newFixture(t)

	sc := criteria.NewBuilder().AddFilter("price", "cheap", criteria.ConditionGreaterThan).Create()

	_, err := f.repo.GetList(context.Background(), published, sc)

	var ve *query.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.True(t, errors.Is(err, query.ErrUnsupportedValue))
	assert.Zero(t, f.mock.GetRequestCount())
}

func TestGetList_RemoteFailureIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.SetResponse("/stories", testutil.NewRateLimitResponse())

	_, err := f.repo.GetList(context.Background(), published, criteria.SearchCriteria{})

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetListByContentType(t *testing.T) {
	f := newFixture(t)

	page, err := f.repo.GetListByContentType(context.Background(), published, "article", criteria.SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "article", f.mock.GetLastQuery().Get(query.ParamContentType))

	_, err = f.repo.GetListByContentType(context.Background(), published, "", criteria.SearchCriteria{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetListByUUIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.repo.GetListByUUIDs(ctx, published, []string{uuidSecond, "bogus", uuidHome}, true, criteria.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Items[0].ID)
	assert.Equal(t, int64(1), page.Items[1].ID)
	assert.Equal(t, uuidSecond+","+uuidHome, f.mock.GetLastQuery().Get(query.ParamByUUIDsOrdered))

	f.mock.Reset()
	empty, err := f.repo.GetListByUUIDs(ctx, published, []string{"bogus"}, false, criteria.SearchCriteria{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Zero(t, f.mock.GetRequestCount())
}

func TestAllPages(t *testing.T) {
	f := newFixture(t)

	items, err := f.repo.AllPages(context.Background(), published, criteria.SearchCriteria{PageSize: 1}, 2)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"home", "blog/first", "blog/second"}, []string{items[0].FullSlug, items[1].FullSlug, items[2].FullSlug})
	assert.Equal(t, 3, f.mock.GetRequestCount())
}
