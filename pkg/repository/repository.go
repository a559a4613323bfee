// Package repository is the read API for stories: it converts search
// criteria, consults the content cache and falls back to the remote
// delivery API, writing fetched payloads back with their tags.
package repository

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/content-cache/pkg/cache"
	"github.com/Sternrassler/content-cache/pkg/client"
	"github.com/Sternrassler/content-cache/pkg/criteria"
	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/query"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/story"
)

var lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "content_repository_lookups_total",
	Help: "Repository lookups by operation and source (cache, remote, not_found)",
}, []string{"operation", "source"})

// ContentAPI is the part of the delivery client the repository uses.
type ContentAPI interface {
	Raw(ctx context.Context, endpoint string, params url.Values) (*client.RawResponse, error)
	Stories(ctx context.Context, req *query.Request) (*story.ListResponse, error)
	StoriesByContentType(ctx context.Context, req *query.Request, contentType string) (*story.ListResponse, error)
	StoriesByUUIDs(ctx context.Context, req *query.Request, uuids []string, keepOrder bool) (*story.ListResponse, error)
	StoryBySlug(ctx context.Context, slug string, req query.StoryRequest) (*story.ItemResponse, error)
	StoryByID(ctx context.Context, id int64, req query.StoryRequest) (*story.ItemResponse, error)
	StoryByUUID(ctx context.Context, uuid string, req query.StoryRequest) (*story.ItemResponse, error)
}

// Page is one page of a list lookup.
type Page struct {
	Items      []story.Story
	TotalCount int
	Criteria   criteria.SearchCriteria
	CV         int64
}

// ItemOption adjusts a single-story lookup.
type ItemOption func(*query.StoryRequest)

// WithResolveRelations resolves the given component.field relations.
func WithResolveRelations(relations ...string) ItemOption {
	return func(r *query.StoryRequest) {
		r.ResolveRelations = append(r.ResolveRelations, relations...)
	}
}

// WithResolveLinks resolves links of the given type up to level.
func WithResolveLinks(linkType criteria.LinkType, level int) ItemOption {
	return func(r *query.StoryRequest) {
		r.ResolveLinks = linkType
		r.ResolveLinksLevel = level
	}
}

// Repository serves story lookups through the content cache.
type Repository struct {
	api       ContentAPI
	cache     *cache.ContentCache
	converter *query.Converter
	logger    zerolog.Logger
}

// New creates a repository. A nil converter uses query.NewConverter().
func New(api ContentAPI, contentCache *cache.ContentCache, converter *query.Converter) *Repository {
	if converter == nil {
		converter = query.NewConverter()
	}
	return &Repository{
		api:       api,
		cache:     contentCache,
		converter: converter,
		logger:    logging.NewLogger("repository"),
	}
}

// GetBySlug returns the story at the given full slug.
func (r *Repository) GetBySlug(ctx context.Context, mode session.Mode, slug string, opts ...ItemOption) (*story.Story, error) {
	slug = strings.Trim(slug, "/")
	if slug == "" {
		return nil, &NotFoundError{Field: "slug", Value: slug}
	}

	sr := itemRequest(mode, opts)
	return r.item(ctx, mode, "slug", slug, slug, sr, func() (*story.ItemResponse, error) {
		return r.api.StoryBySlug(ctx, slug, sr)
	})
}

// GetByID returns the story with the given numeric id.
func (r *Repository) GetByID(ctx context.Context, mode session.Mode, id int64, opts ...ItemOption) (*story.Story, error) {
	value := strconv.FormatInt(id, 10)
	if id <= 0 {
		return nil, &NotFoundError{Field: "id", Value: value}
	}

	sr := itemRequest(mode, opts)
	return r.item(ctx, mode, "id", value, "@id:"+value, sr, func() (*story.ItemResponse, error) {
		return r.api.StoryByID(ctx, id, sr)
	})
}

// GetByUUID returns the story with the given uuid. Malformed uuids are not
// found without a remote call.
func (r *Repository) GetByUUID(ctx context.Context, mode session.Mode, id string, opts ...ItemOption) (*story.Story, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		lookupsTotal.WithLabelValues("uuid", "not_found").Inc()
		return nil, &NotFoundError{Field: "uuid", Value: id, Err: err}
	}
	canonical := parsed.String()

	sr := itemRequest(mode, opts)
	return r.item(ctx, mode, "uuid", canonical, "@uuid:"+canonical, sr, func() (*story.ItemResponse, error) {
		return r.api.StoryByUUID(ctx, canonical, sr)
	})
}

func (r *Repository) item(ctx context.Context, mode session.Mode, field, value, identifier string, sr query.StoryRequest, fetch func() (*story.ItemResponse, error)) (*story.Story, error) {
	bypass := mode.BypassCache()
	key := r.cache.ItemKey(identifier, sr.Query())

	if resp, err := r.cache.LoadItem(ctx, key, bypass); err == nil {
		lookupsTotal.WithLabelValues(field, "cache").Inc()
		return resp.ToStory(), nil
	}

	resp, err := fetch()
	if err != nil {
		lookupsTotal.WithLabelValues(field, "not_found").Inc()
		r.logRemoteFailure(err, field, value)
		return nil, &NotFoundError{Field: field, Value: value, Err: err}
	}

	r.cache.SaveItem(ctx, key, resp, bypass)
	lookupsTotal.WithLabelValues(field, "remote").Inc()
	return resp.ToStory(), nil
}

// listVariant narrows a list lookup beyond the criteria.
type listVariant struct {
	operation   string
	contentType string
	uuids       []string
	keepOrder   bool
}

func (v listVariant) params(q url.Values) url.Values {
	if v.contentType != "" {
		q.Set(query.ParamContentType, v.contentType)
	}
	if len(v.uuids) > 0 {
		param := query.ParamByUUIDs
		if v.keepOrder {
			param = query.ParamByUUIDsOrdered
		}
		q.Set(param, strings.Join(v.uuids, ","))
	}
	return q
}

// GetList returns one page of stories matching sc.
func (r *Repository) GetList(ctx context.Context, mode session.Mode, sc criteria.SearchCriteria) (*Page, error) {
	return r.list(ctx, mode, sc, listVariant{operation: "list"})
}

// GetListByContentType returns one page of stories whose root component is contentType.
func (r *Repository) GetListByContentType(ctx context.Context, mode session.Mode, contentType string, sc criteria.SearchCriteria) (*Page, error) {
	if contentType == "" {
		return nil, &NotFoundError{Field: "content_type", Value: contentType}
	}
	return r.list(ctx, mode, sc, listVariant{operation: "content_type", contentType: contentType})
}

// GetListByUUIDs returns the given stories. With keepOrder the items follow
// the order of uuids. Malformed uuids are skipped.
func (r *Repository) GetListByUUIDs(ctx context.Context, mode session.Mode, uuids []string, keepOrder bool, sc criteria.SearchCriteria) (*Page, error) {
	valid := make([]string, 0, len(uuids))
	for _, id := range uuids {
		parsed, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			r.logger.Debug().Str("uuid", id).Msg("Skipping malformed uuid")
			continue
		}
		valid = append(valid, parsed.String())
	}
	if len(valid) == 0 {
		return &Page{Items: []story.Story{}, Criteria: sc.Normalize()}, nil
	}
	return r.list(ctx, mode, sc, listVariant{operation: "uuids", uuids: valid, keepOrder: keepOrder})
}

func (r *Repository) list(ctx context.Context, mode session.Mode, sc criteria.SearchCriteria, variant listVariant) (*Page, error) {
	sc = sc.Normalize()

	req, special, err := r.converter.Convert(sc, query.Scope{Version: mode.Version(), Language: mode.Language})
	if err != nil {
		return nil, err
	}

	bypass := mode.BypassCache()
	params := variant.params(special.Merge(req.Query()))
	key := r.cache.ListKey(params)

	if resp, err := r.cache.LoadList(ctx, key, bypass); err == nil {
		lookupsTotal.WithLabelValues(variant.operation, "cache").Inc()
		return newPage(resp, sc), nil
	}

	resp, err := r.fetchList(ctx, req, special, params, variant)
	if err != nil {
		lookupsTotal.WithLabelValues(variant.operation, "not_found").Inc()
		r.logRemoteFailure(err, variant.operation, key.String())
		return nil, &NotFoundError{Field: variant.operation, Value: key.String(), Err: err}
	}

	itemParams := req.ItemRequest().Query()
	r.cache.SaveList(ctx, key, resp, bypass, func(s story.Story) cache.CacheKey {
		return r.cache.ItemKey(s.FullSlug, itemParams)
	})

	lookupsTotal.WithLabelValues(variant.operation, "remote").Inc()
	return newPage(resp, sc), nil
}

// fetchList uses the raw endpoint when special parameters are present and
// the canonical calls otherwise.
func (r *Repository) fetchList(ctx context.Context, req *query.Request, special query.SpecialParams, params url.Values, variant listVariant) (*story.ListResponse, error) {
	if len(special) > 0 {
		r.logger.Debug().
			Strs("params", special.Names()).
			Msg("Using raw stories query for special parameters")

		raw, err := r.api.Raw(ctx, client.StoriesEndpoint, params)
		if err != nil {
			return nil, err
		}
		return client.DecodeStories(raw, req.Page, req.PerPage)
	}

	switch {
	case variant.contentType != "":
		return r.api.StoriesByContentType(ctx, req, variant.contentType)
	case len(variant.uuids) > 0:
		return r.api.StoriesByUUIDs(ctx, req, variant.uuids, variant.keepOrder)
	default:
		return r.api.Stories(ctx, req)
	}
}

func (r *Repository) logRemoteFailure(err error, field, value string) {
	evt := r.logger.Warn()
	if errors.Is(err, client.ErrNotFound) {
		evt = r.logger.Debug()
	}
	evt.Err(err).
		Str("lookup", field).
		Str("value", value).
		Msg("Content lookup failed")
}

func newPage(resp *story.ListResponse, sc criteria.SearchCriteria) *Page {
	items := make([]story.Story, len(resp.Stories))
	for i := range resp.Stories {
		items[i] = *resp.Item(i).ToStory()
	}
	return &Page{
		Items:      items,
		TotalCount: resp.Total,
		Criteria:   sc,
		CV:         resp.CV,
	}
}

func itemRequest(mode session.Mode, opts []ItemOption) query.StoryRequest {
	lang := mode.Language
	if lang == "" {
		lang = criteria.DefaultLanguage
	}
	sr := query.StoryRequest{Language: lang, Version: mode.Version()}
	for _, opt := range opts {
		opt(&sr)
	}
	return sr
}
