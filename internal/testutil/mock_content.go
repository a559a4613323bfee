// Package testutil provides testing utilities for the content API client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/content-cache/pkg/story"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockContentAPI is a configurable mock delivery API for testing. Without
// custom handlers it serves the stories added with AddStory.
type MockContentAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	stories  []story.Story
	cv       int64

	// Tracking
	RequestCount int
	LastQuery    url.Values
	LastPath     string
	LastHeader   http.Header
}

// NewMockContentAPI creates a new mock server.
func NewMockContentAPI() *MockContentAPI {
	mock := &MockContentAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		cv:       1700000000,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		mock.LastPath = r.URL.Path
		mock.LastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL, usable as client BaseURL.
func (m *MockContentAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockContentAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockContentAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
	m.LastPath = ""
	m.LastHeader = nil
}

// AddStory registers a story served by the default handler.
func (m *MockContentAPI) AddStory(s story.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories = append(m.stories, s)
}

// SetCacheVersion sets the cv returned in every default response.
func (m *MockContentAPI) SetCacheVersion(cv int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cv = cv
}

// SetHandler sets a custom handler for a specific path.
func (m *MockContentAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockContentAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockContentAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastQuery returns the query of the most recent request.
func (m *MockContentAPI) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// GetLastPath returns the path of the most recent request.
func (m *MockContentAPI) GetLastPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastPath
}

// defaultHandler serves /stories and /stories/<slug|id|uuid> from the registered stories.
func (m *MockContentAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.URL.Query().Get("token") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	m.mu.RLock()
	stories := append([]story.Story(nil), m.stories...)
	cv := m.cv
	m.mu.RUnlock()

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case path == "stories":
		m.serveList(w, r.URL.Query(), stories, cv)
	case strings.HasPrefix(path, "stories/"):
		ident := strings.TrimPrefix(path, "stories/")
		for _, s := range stories {
			if matchesIdentifier(s, ident, r.URL.Query().Get("find_by")) {
				writeJSON(w, http.StatusOK, story.ItemResponse{Story: s, CV: cv})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, []string{"This record could not be found"})
	default:
		writeJSON(w, http.StatusNotFound, []string{"Not found"})
	}
}

func (m *MockContentAPI) serveList(w http.ResponseWriter, q url.Values, stories []story.Story, cv int64) {
	filtered := []story.Story{}
	for _, s := range stories {
		if listMatches(s, q) {
			filtered = append(filtered, s)
		}
	}

	if ordered := q.Get("by_uuids_ordered"); ordered != "" {
		pos := make(map[string]int)
		for i, u := range strings.Split(ordered, ",") {
			pos[u] = i
		}
		sort.SliceStable(filtered, func(i, j int) bool { return pos[filtered[i].UUID] < pos[filtered[j].UUID] })
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 25
	}

	total := len(filtered)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	w.Header().Set("Total", strconv.Itoa(total))
	w.Header().Set("Per-Page", strconv.Itoa(perPage))
	writeJSON(w, http.StatusOK, story.ListResponse{Stories: filtered[start:end], CV: cv})
}

func listMatches(s story.Story, q url.Values) bool {
	if v := q.Get("by_slugs"); v != "" && !contains(strings.Split(v, ","), s.FullSlug) {
		return false
	}
	if v := q.Get("excluding_slugs"); v != "" && contains(strings.Split(v, ","), s.FullSlug) {
		return false
	}
	if v := q.Get("by_uuids"); v != "" && !contains(strings.Split(v, ","), s.UUID) {
		return false
	}
	if v := q.Get("by_uuids_ordered"); v != "" && !contains(strings.Split(v, ","), s.UUID) {
		return false
	}
	if v := q.Get("by_ids"); v != "" && !contains(strings.Split(v, ","), s.IDString()) {
		return false
	}
	if v := q.Get("excluding_ids"); v != "" && contains(strings.Split(v, ","), s.IDString()) {
		return false
	}
	if v := q.Get("with_tag"); v != "" && !containsAny(s.TagList, strings.Split(v, ",")) {
		return false
	}
	if v := q.Get("starts_with"); v != "" && !strings.HasPrefix(s.FullSlug, v) {
		return false
	}
	if v := q.Get("content_type"); v != "" && s.Component() != v {
		return false
	}
	return true
}

func matchesIdentifier(s story.Story, ident, findBy string) bool {
	if findBy == "uuid" {
		return s.UUID == ident
	}
	return s.FullSlug == ident || s.IDString() == ident
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsAny(list, candidates []string) bool {
	for _, c := range candidates {
		if contains(list, c) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewStoryResponse creates a 200 OK single-story response.
func NewStoryResponse(s story.Story, cv int64) MockResponse {
	body, _ := json.Marshal(story.ItemResponse{Story: s, CV: cv})
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewListResponse creates a 200 OK list response with a Total header.
func NewListResponse(stories []story.Story, cv int64, total int) MockResponse {
	body, _ := json.Marshal(story.ListResponse{Stories: stories, CV: cv})
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Total":        strconv.Itoa(total),
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `["This record could not be found"]`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
