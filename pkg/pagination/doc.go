// Package pagination walks every page of a paginated story listing.
//
// The first page is fetched alone to learn the total page count; the
// remaining pages are spread over a bounded worker pool, each with its own
// timeout:
//
//	fetcher := pagination.NewBatchFetcher[story.Story](pageFunc, pagination.DefaultConfig())
//	pages, err := fetcher.FetchAllPages(ctx)
//	all := pagination.Collect(pages)
//
// A failing page stops the pool; the pages fetched so far are returned
// together with the error.
package pagination
