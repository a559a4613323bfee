package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/content-cache/internal/testutil"
	"github.com/Sternrassler/content-cache/pkg/cache"
	"github.com/Sternrassler/content-cache/pkg/client"
	"github.com/Sternrassler/content-cache/pkg/criteria"
	"github.com/Sternrassler/content-cache/pkg/repository"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/story"
	"github.com/Sternrassler/content-cache/pkg/webhook"
)

const (
	testWebhookSecret = "hook"
	testPreviewToken  = "preview"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T) (*httptest.Server, *testutil.MockContentAPI) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mock := testutil.NewMockContentAPI()
	t.Cleanup(mock.Close)
	mock.AddStory(story.Story{ID: 1, UUID: "8a1f6c4e-3b2d-4f5a-9c7e-1d2b3a4c5e6f", Slug: "home", FullSlug: "home", Content: []byte(`{"component":"page"}`)})
	mock.AddStory(story.Story{ID: 2, UUID: "0b7e9d2c-5a4f-4e3b-8d1c-2f3e4a5b6c7d", Slug: "first", FullSlug: "blog/first", Content: []byte(`{"component":"article"}`)})

	cfg := client.DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 2 * time.Second
	api, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	store, err := cache.NewMemoryStore(cache.DefaultMemoryConfig())
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	cc, err := cache.NewContentCache(store, cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContentCache failed: %v", err)
	}

	srv := &server{
		repo:     repository.New(api, cc, nil),
		sessions: session.NewManager(session.Config{PreviewToken: testPreviewToken}),
		webhook:  webhook.NewConsumer(cc, webhook.Config{Secret: testWebhookSecret}),
		ready:    fakePinger{},
	}

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, mock
}

func get(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	raw, _ := io.ReadAll(resp.Body)
	json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	healthHandler(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %s", w.Body.String())
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		ready  pinger
		status int
	}{
		{"no probe", nil, http.StatusOK},
		{"store reachable", fakePinger{}, http.StatusOK},
		{"store down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			s := &server{ready: tt.ready}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

			s.readyHandler(c)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("Expected default collectors in /metrics output")
	}
}

func TestStoryRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"by slug", "/stories/slug/blog/first", http.StatusOK},
		{"by id", "/stories/by-id/1", http.StatusOK},
		{"by uuid", "/stories/by-uuid/8a1f6c4e-3b2d-4f5a-9c7e-1d2b3a4c5e6f", http.StatusOK},
		{"unknown slug", "/stories/slug/missing", http.StatusNotFound},
		{"malformed uuid", "/stories/by-uuid/nope", http.StatusNotFound},
		{"non-numeric id", "/stories/by-id/abc", http.StatusBadRequest},
		{"bad link level", "/stories/slug/home?resolve_links=url&resolve_links_level=x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, ts.URL+tt.path)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.status, body)
			}
			if status == http.StatusOK && body["story"] == nil {
				t.Errorf("expected story in body, got %v", body)
			}
		})
	}
}

func TestListRoute(t *testing.T) {
	ts, mock := newTestServer(t)

	status, body := get(t, ts.URL+"/stories?per_page=1&sort_by=name:desc&filter[slug][in]=home,blog/first")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if body["total"] != float64(2) || body["per_page"] != float64(1) {
		t.Errorf("unexpected pagination: %v", body)
	}
	q := mock.GetLastQuery()
	if q.Get("by_slugs") != "home,blog/first" || q.Get("sort_by") != "name:desc" {
		t.Errorf("unexpected upstream query: %v", q)
	}

	status, body = get(t, ts.URL+"/stories?content_type=article")
	if status != http.StatusOK {
		t.Fatalf("content_type status = %d", status)
	}
	if stories, _ := body["stories"].([]any); len(stories) != 1 {
		t.Errorf("content_type list = %v", body["stories"])
	}

	status, _ = get(t, ts.URL+"/stories?filter[price][gt]=cheap")
	if status != http.StatusBadRequest {
		t.Errorf("validation error status = %d, want 400", status)
	}

	status, _ = get(t, ts.URL+"/stories?page=two")
	if status != http.StatusBadRequest {
		t.Errorf("bad page status = %d, want 400", status)
	}
}

func TestWebhookInvalidatesCache(t *testing.T) {
	ts, mock := newTestServer(t)

	if status, _ := get(t, ts.URL+"/stories/slug/home"); status != http.StatusOK {
		t.Fatalf("warmup status = %d", status)
	}
	get(t, ts.URL+"/stories/slug/home")
	if n := mock.GetRequestCount(); n != 1 {
		t.Fatalf("expected cached second lookup, got %d upstream calls", n)
	}

	payload := []byte(`{"action":"published","story_id":1,"text":"home"}`)
	post := func(sig string) int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/webhook", strings.NewReader(string(payload)))
		req.Header.Set(webhook.SignatureHeader, sig)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST /webhook failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := post("sha1=deadbeef"); status != http.StatusUnauthorized {
		t.Errorf("forged signature status = %d, want 401", status)
	}
	if status := post(webhook.SignatureHeaderValue(payload, testWebhookSecret)); status != http.StatusOK {
		t.Fatalf("signed delivery status = %d, want 200", status)
	}

	get(t, ts.URL+"/stories/slug/home")
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("expected refetch after invalidation, got %d upstream calls", n)
	}
}

func TestEditorSessionBypassesCache(t *testing.T) {
	ts, mock := newTestServer(t)

	now := time.Now().Unix()
	q := url.Values{}
	q.Set(session.ParamEditor, "1")
	q.Set(session.ParamTokenSpaceID, "7")
	q.Set(session.ParamTokenTimestamp, strconv.FormatInt(now, 10))
	q.Set(session.ParamTokenToken, session.EditorToken("7", testPreviewToken, now))

	for i := 0; i < 2; i++ {
		if status, _ := get(t, ts.URL+"/stories/slug/home?"+q.Encode()); status != http.StatusOK {
			t.Fatalf("status = %d", status)
		}
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("editor session must bypass the cache, got %d upstream calls", n)
	}
	if v := mock.GetLastQuery().Get("version"); v != "draft" {
		t.Errorf("version = %q, want draft", v)
	}
}

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
		check   func(t *testing.T, sc criteria.SearchCriteria)
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, sc criteria.SearchCriteria) {
				if sc.Page != criteria.DefaultPage || sc.PageSize != criteria.DefaultPageSize {
					t.Errorf("pagination = %d/%d", sc.Page, sc.PageSize)
				}
			},
		},
		{
			name:  "filters sorted by key",
			query: "filter[tag][in]=a,b&filter[component]=article&sort_by=published_at:desc&search_term=go",
			check: func(t *testing.T, sc criteria.SearchCriteria) {
				fs := sc.Filters()
				if len(fs) != 2 || fs[0].Field != "component" || fs[0].Condition != criteria.ConditionEquals || fs[1].Field != "tag" {
					t.Errorf("filters = %+v", fs)
				}
				if len(sc.SortOrders) != 1 || sc.SortOrders[0].Direction != criteria.DirectionDesc {
					t.Errorf("sort = %+v", sc.SortOrders)
				}
				if sc.SearchTerm != "go" {
					t.Errorf("search term = %q", sc.SearchTerm)
				}
			},
		},
		{
			name:  "lists and links",
			query: "excluding_fields=body,%20teaser&resolve_relations=post.author&resolve_links=url&resolve_links_level=2&version=draft&language=de",
			check: func(t *testing.T, sc criteria.SearchCriteria) {
				if len(sc.ExcludeFields) != 2 || sc.ExcludeFields[1] != "teaser" {
					t.Errorf("exclude fields = %v", sc.ExcludeFields)
				}
				if sc.ResolveLinks != criteria.LinkTypeURL || sc.ResolveLinksLevel != 2 {
					t.Errorf("links = %q/%d", sc.ResolveLinks, sc.ResolveLinksLevel)
				}
				if sc.Version != criteria.VersionDraft || sc.Language != "de" {
					t.Errorf("version/language = %q/%q", sc.Version, sc.Language)
				}
			},
		},
		{name: "bad direction", query: "sort_by=name:sideways", wantErr: "unknown direction"},
		{name: "bad condition", query: "filter[name][between]=a", wantErr: "unknown condition"},
		{name: "bad version", query: "version=latest", wantErr: "version must be draft or published"},
		{name: "bad per_page", query: "per_page=many", wantErr: "per_page must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery failed: %v", err)
			}

			sc, err := parseCriteria(q)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCriteria failed: %v", err)
			}
			tt.check(t, sc)
		})
	}
}
