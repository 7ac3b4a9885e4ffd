package paging

import (
	"context"
	"sort"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
)

// InitialResult is delivered to the callback of the first range request.
type InitialResult struct {
	Articles []domain.Article
	Position int
	Total    int
}

type rangeKey struct {
	start   int
	size    int
	initial bool
}

type rangeRequest struct {
	key       rangeKey
	onInitial func(InitialResult)
	onRange   func([]domain.Article)
	onError   func(error)
}

// RangeSource serves arbitrary [start, start+size) windows for a virtualized list.
// Every failed window keeps its own retry slot.
type RangeSource struct {
	core

	started  bool
	inflight map[rangeKey]struct{}
	failed   map[rangeKey]rangeRequest
	pending  map[int][]domain.Article // results that arrived past the collection end
}

var _ Loader = (*RangeSource)(nil)

// NewRangeSource builds a range-based loader. Options.PageSize is the default window
// size used by callers; each request carries its own size.
func NewRangeSource(f Fetcher, opts Options) *RangeSource {
	r := &RangeSource{
		inflight: make(map[rangeKey]struct{}),
		failed:   make(map[rangeKey]rangeRequest),
		pending:  make(map[int][]domain.Article),
	}
	r.init(f, opts)
	return r
}

// PageSize returns the default window size.
func (r *RangeSource) PageSize() int { return r.pageSize }

// Started reports whether LoadInitial has been dispatched.
func (r *RangeSource) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// LoadInitial requests the first window. On success cb receives the articles, the
// requested position and the declared total. cb may be nil.
func (r *RangeSource) LoadInitial(start, size int, cb func(InitialResult)) bool {
	return r.LoadInitialFunc(start, size, cb, nil)
}

// LoadInitialFunc is LoadInitial with a failure callback. onErr receives the
// *FetchError of this window only, after the ERROR state change; it may be nil.
func (r *RangeSource) LoadInitialFunc(start, size int, cb func(InitialResult), onErr func(error)) bool {
	return r.load(rangeRequest{key: rangeKey{start: start, size: size, initial: true}, onInitial: cb, onError: onErr})
}

// LoadRange requests a later window. cb receives exactly the articles that belong to
// the window, truncated at the declared total. cb may be nil.
func (r *RangeSource) LoadRange(start, size int, cb func([]domain.Article)) bool {
	return r.LoadRangeFunc(start, size, cb, nil)
}

// LoadRangeFunc is LoadRange with a failure callback, as in LoadInitialFunc.
func (r *RangeSource) LoadRangeFunc(start, size int, cb func([]domain.Article), onErr func(error)) bool {
	return r.load(rangeRequest{key: rangeKey{start: start, size: size}, onRange: cb, onError: onErr})
}

// Retry re-issues every retained failed window once. Each slot is cleared before
// its request is re-issued.
func (r *RangeSource) Retry() bool {
	r.mu.Lock()
	reqs := make([]rangeRequest, 0, len(r.failed))
	for k, req := range r.failed {
		reqs = append(reqs, req)
		delete(r.failed, k)
	}
	r.mu.Unlock()

	sort.Slice(reqs, func(i, j int) bool { return reqs[i].key.start < reqs[j].key.start })
	issued := false
	for _, req := range reqs {
		if r.load(req) {
			issued = true
		}
	}
	return issued
}

// FailedRanges returns the number of retained failed windows.
func (r *RangeSource) FailedRanges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

func (r *RangeSource) load(req rangeRequest) bool {
	page := PageFor(req.key.start, req.key.size)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	if _, busy := r.inflight[req.key]; busy {
		r.mu.Unlock()
		return false
	}
	delete(r.failed, req.key)
	if req.key.initial {
		r.started = true
	}
	r.setStateLocked(Running)

	// Past the declared end: complete with nothing.
	if !req.key.initial && r.hasTotal && req.key.start >= r.total {
		r.setStateLocked(Success)
		r.deliverLocked(req, nil, r.total)
		r.mu.Unlock()
		return true
	}
	r.inflight[req.key] = struct{}{}
	r.mu.Unlock()

	if !r.group.Go(func(ctx context.Context) { r.fetch(ctx, req, page) }) {
		r.mu.Lock()
		delete(r.inflight, req.key)
		r.mu.Unlock()
		return false
	}
	return true
}

func (r *RangeSource) fetch(ctx context.Context, req rangeRequest, page int) {
	res, err := r.fetcher.FetchArticles(ctx, r.sourceID, page, req.key.size)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, req.key)
	if r.staleLocked(ctx) {
		return
	}

	if err != nil {
		r.failed[req.key] = req
		fe := &FetchError{Page: page, Start: req.key.start, Size: req.key.size, Err: err}
		r.lastErr = fe
		r.setStateLocked(Error)
		if req.onError != nil {
			r.post(func() { req.onError(fe) })
		}
		r.log.WarnObj("range fetch failed", "paging_error", map[string]any{
			"source_id": r.sourceID,
			"start":     req.key.start,
			"size":      req.key.size,
			"page":      page,
			"error":     err.Error(),
		})
		return
	}

	if req.key.initial {
		r.total, r.hasTotal = res.TotalResults, true
	}
	total := -1
	if r.hasTotal {
		total = r.total
	}
	items := window(res.Articles, req.key.start, req.key.size, total)

	if req.key.initial && len(items) == 0 && res.TotalResults == 0 {
		r.setStateLocked(Empty)
	} else {
		r.setStateLocked(Success)
	}
	r.placeLocked(req.key.start, items)
	r.deliverLocked(req, items, r.total)
}

func (r *RangeSource) deliverLocked(req rangeRequest, items []domain.Article, total int) {
	switch {
	case req.onInitial != nil:
		res := InitialResult{Articles: items, Position: req.key.start, Total: total}
		r.post(func() { req.onInitial(res) })
	case req.onRange != nil:
		r.post(func() { req.onRange(items) })
	}
}

// placeLocked writes items at absolute position start without overwriting occupied
// positions. Items past the current end wait in pending until the gap is filled.
func (r *RangeSource) placeLocked(start int, items []domain.Article) {
	if len(items) == 0 {
		return
	}
	if start > len(r.articles) {
		if prev, ok := r.pending[start]; !ok || len(items) > len(prev) {
			r.pending[start] = items
		}
		return
	}

	var added []domain.Article
	added = append(added, tail(items, start, len(r.articles))...)
	next := len(r.articles) + len(added)

	for progressed := true; progressed; {
		progressed = false
		for at, chunk := range r.pending {
			if at > next {
				continue
			}
			delete(r.pending, at)
			more := tail(chunk, at, next)
			added = append(added, more...)
			next += len(more)
			progressed = true
		}
	}
	r.appendLocked(added)
}

// tail returns the part of chunk (placed at position at) lying at or after position from.
func tail(chunk []domain.Article, at, from int) []domain.Article {
	skip := from - at
	if skip < 0 {
		skip = 0
	}
	if skip >= len(chunk) {
		return nil
	}
	return chunk[skip:]
}
