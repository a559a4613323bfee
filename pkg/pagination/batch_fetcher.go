package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/content-cache/pkg/logging"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration

	// BufferSize of the page and result channels.
	BufferSize int
}

// DefaultConfig returns a conservative configuration for the delivery API.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		BufferSize:     64,
	}
}

// PageFetcher fetches a single page and reports the total page count.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page int) (items []T, totalPages int, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, page int) ([]T, int, error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, page int) ([]T, int, error) {
	return f(ctx, page)
}

// PageResult is the outcome of fetching one page.
type PageResult[T any] struct {
	PageNumber int
	Items      []T
	Error      error
}

// BatchFetcher fetches every page of a paginated listing with a worker pool.
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("pagination"),
	}
}

// FetchAllPages fetches page 1, then pages 2..totalPages in parallel.
// On a worker error the pages fetched so far are returned with the error.
func (bf *BatchFetcher[T]) FetchAllPages(ctx context.Context) (map[int][]T, error) {
	start := time.Now()

	firstCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	first, totalPages, err := bf.fetcher.FetchPage(firstCtx, 1)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	results := map[int][]T{1: first}
	if totalPages <= 1 {
		bf.logger.Debug().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return results, nil
	}

	bf.logger.Debug().
		Int("total_pages", totalPages).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	pageQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult[T], bf.config.BufferSize)

	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
				stop()
			}
			continue
		}
		results[result.PageNumber] = result.Items
	}

	if firstErr == nil && ctx.Err() != nil && len(results) < totalPages {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		bf.logger.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Page fetch failed, returning partial results")
		return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", len(results), totalPages, firstErr)
	}

	bf.logger.Debug().
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
	return results, nil
}

func (bf *BatchFetcher[T]) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup) {
	defer wg.Done()

	for pageNum := range pageQueue {
		if ctx.Err() != nil {
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		items, _, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			err = fmt.Errorf("page %d: %w", pageNum, err)
		}
		results <- PageResult[T]{PageNumber: pageNum, Items: items, Error: err}
		if err != nil {
			return
		}
	}
}

// Collect flattens pages in page order.
func Collect[T any](pages map[int][]T) []T {
	nums := make([]int, 0, len(pages))
	n := 0
	for p, items := range pages {
		nums = append(nums, p)
		n += len(items)
	}
	sort.Ints(nums)

	out := make([]T, 0, n)
	for _, p := range nums {
		out = append(out, pages[p]...)
	}
	return out
}

// TotalPages returns the page count for total items at pageSize per page.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
