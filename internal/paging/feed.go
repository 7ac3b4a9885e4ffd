package paging

import (
	"context"
	"fmt"
)

// Feed loads pages strictly forward and appends each page to the collection.
// Only the most recent failed page is retained for Retry.
type Feed struct {
	core

	inflight   map[int]struct{}
	loadedPage int // highest page applied
	retryPage  int // 0 when nothing is retained
}

var _ Loader = (*Feed)(nil)

// NewFeed builds a page-advance loader. It panics on an empty source id, a
// non-positive page size or a nil fetcher.
func NewFeed(f Fetcher, opts Options) *Feed {
	feed := &Feed{inflight: make(map[int]struct{})}
	feed.init(f, opts)
	return feed
}

// Advance loads the page after the highest page loaded so far (page 1 first).
// It reports false when nothing was dispatched: the loader is closed, the page is
// already in flight, or the declared total has been reached.
func (f *Feed) Advance() bool {
	f.mu.Lock()
	if f.hasTotal && len(f.articles) >= f.total {
		f.mu.Unlock()
		return false
	}
	next := f.loadedPage + 1
	f.mu.Unlock()
	return f.LoadPage(next)
}

// LoadPage fetches page and appends its articles. Starting a load drops any
// retained failed page. It panics when page < 1.
func (f *Feed) LoadPage(page int) bool {
	if page < 1 {
		panic(fmt.Sprintf("paging: page must be >= 1, got %d", page))
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	if _, busy := f.inflight[page]; busy {
		f.mu.Unlock()
		return false
	}
	f.retryPage = 0
	f.setStateLocked(Running)

	// Past the declared end: nothing to fetch.
	if f.hasTotal && PageStart(page, f.pageSize) >= f.total {
		f.setStateLocked(Success)
		f.mu.Unlock()
		return true
	}
	f.inflight[page] = struct{}{}
	f.mu.Unlock()

	if !f.group.Go(func(ctx context.Context) { f.fetch(ctx, page) }) {
		f.mu.Lock()
		delete(f.inflight, page)
		f.mu.Unlock()
		return false
	}
	return true
}

// Retry re-issues the last failed page, once. It reports whether a request was issued.
func (f *Feed) Retry() bool {
	f.mu.Lock()
	page := f.retryPage
	f.retryPage = 0
	f.mu.Unlock()

	if page == 0 {
		return false
	}
	return f.LoadPage(page)
}

// FailedPage returns the page retained for Retry, or 0.
func (f *Feed) FailedPage() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retryPage
}

func (f *Feed) fetch(ctx context.Context, page int) {
	res, err := f.fetcher.FetchArticles(ctx, f.sourceID, page, f.pageSize)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, page)
	if f.staleLocked(ctx) {
		return
	}

	start := PageStart(page, f.pageSize)
	if err != nil {
		f.retryPage = page
		f.lastErr = &FetchError{Page: page, Start: start, Size: f.pageSize, Err: err}
		f.setStateLocked(Error)
		f.log.WarnObj("page fetch failed", "paging_error", map[string]any{
			"source_id": f.sourceID,
			"page":      page,
			"error":     err.Error(),
		})
		return
	}

	f.total, f.hasTotal = res.TotalResults, true
	if page > f.loadedPage {
		f.loadedPage = page
	}
	items := window(res.Articles, start, f.pageSize, res.TotalResults)

	if page == 1 && len(items) == 0 && res.TotalResults == 0 {
		f.setStateLocked(Empty)
	} else {
		f.setStateLocked(Success)
	}
	f.appendLocked(items)

	f.log.DebugObj("page loaded", "paging_page", map[string]any{
		"source_id": f.sourceID,
		"page":      page,
		"items":     len(items),
		"loaded":    len(f.articles),
		"total":     res.TotalResults,
	})
}
