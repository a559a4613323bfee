package repository

import (
	"context"

	"github.com/Sternrassler/content-cache/pkg/criteria"
	"github.com/Sternrassler/content-cache/pkg/pagination"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/story"
)

// AllPages returns every story matching sc, walking the pages with at most
// concurrency parallel lookups. Each page is cached like a GetList call.
func (r *Repository) AllPages(ctx context.Context, mode session.Mode, sc criteria.SearchCriteria, concurrency int) ([]story.Story, error) {
	sc = sc.Normalize()

	cfg := pagination.DefaultConfig()
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}

	fetch := pagination.PageFetcherFunc[story.Story](func(ctx context.Context, page int) ([]story.Story, int, error) {
		p, err := r.GetList(ctx, mode, sc.WithPage(page))
		if err != nil {
			return nil, 0, err
		}
		return p.Items, pagination.TotalPages(p.TotalCount, sc.PageSize), nil
	})

	pages, err := pagination.NewBatchFetcher[story.Story](fetch, cfg).FetchAllPages(ctx)
	if err != nil {
		return nil, err
	}
	return pagination.Collect(pages), nil
}
