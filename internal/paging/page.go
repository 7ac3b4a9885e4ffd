// Package paging loads pages of articles from a remote listing into an observable,
// append-only collection with a single current network state.
package paging

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
)

// Fetcher retrieves one page of articles. page is 1-based.
type Fetcher interface {
	FetchArticles(ctx context.Context, sourceID string, page, pageSize int) (domain.ArticlesPage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, sourceID string, page, pageSize int) (domain.ArticlesPage, error)

func (f FetcherFunc) FetchArticles(ctx context.Context, sourceID string, page, pageSize int) (domain.ArticlesPage, error) {
	return f(ctx, sourceID, page, pageSize)
}

// PageFor maps an absolute offset to the 1-based page that owns it.
// Offsets that are not multiples of pageSize round down.
func PageFor(startOffset, pageSize int) int {
	if pageSize <= 0 {
		panic(fmt.Sprintf("paging: page size must be positive, got %d", pageSize))
	}
	if startOffset < 0 {
		panic(fmt.Sprintf("paging: start offset must not be negative, got %d", startOffset))
	}
	return startOffset/pageSize + 1
}

// PageStart is the absolute offset of the first item of page.
func PageStart(page, pageSize int) int {
	return (page - 1) * pageSize
}

// window cuts the part of a fetched page that serves [start, start+size).
// total < 0 means the total is unknown and no truncation against it is applied.
func window(items []domain.Article, start, size, total int) []domain.Article {
	page := PageFor(start, size)
	skip := start - PageStart(page, size)
	if skip >= len(items) {
		return nil
	}
	out := items[skip:]
	if len(out) > size {
		out = out[:size]
	}
	if total >= 0 {
		remaining := total - start
		if remaining <= 0 {
			return nil
		}
		if len(out) > remaining {
			out = out[:remaining]
		}
	}
	return append([]domain.Article(nil), out...)
}

func mustSource(sourceID string) {
	if sourceID == "" {
		panic("paging: source id must not be empty")
	}
}
