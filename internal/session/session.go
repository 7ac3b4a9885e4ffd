// Package session owns one paging loader per reader session and swaps it whenever
// a new source is selected.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/internal/paging"
)

var (
	ErrNoSource        = errors.New("session: no source selected")
	ErrWrongStrategy   = errors.New("session: operation not supported by paging strategy")
	ErrInvalidRange    = errors.New("session: invalid range")
	ErrInvalidSource   = errors.New("session: source id is required")
	ErrClosed          = errors.New("session: closed")
	ErrNotFound        = errors.New("session: not found")
	ErrUnknownStrategy = errors.New("session: unknown paging strategy")
)

// Strategy selects the paging access pattern of a session.
type Strategy string

const (
	StrategyPage  Strategy = "page"
	StrategyRange Strategy = "range"
)

// ParseStrategy maps a config value to a Strategy. Empty means StrategyPage.
func ParseStrategy(v string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(v))) {
	case "", StrategyPage:
		return StrategyPage, nil
	case StrategyRange:
		return StrategyRange, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, v)
	}
}

// ListenerFactory builds listeners for the loader of a freshly selected source.
type ListenerFactory func(sessionID string, src domain.Source) []paging.Listener

// Options configures a Session. Fetcher and ID are required.
type Options struct {
	ID        string
	Fetcher   paging.Fetcher
	Strategy  Strategy
	PageSize  int
	Log       logger.Logger
	Parent    context.Context
	Listeners ListenerFactory
	// OnRetry is called every time Retry re-issues at least one request.
	OnRetry func()
}

// Session coordinates the loader of one reader. Selecting a source ends the
// previous loader and starts a fresh one.
type Session struct {
	id        string
	fetcher   paging.Fetcher
	strategy  Strategy
	pageSize  int
	log       logger.Logger
	parent    context.Context
	listeners ListenerFactory
	onRetry   func()

	mu       sync.Mutex
	closed   bool
	source   *domain.Source
	feed     *paging.Feed
	ranged   *paging.RangeSource
	detached []func()
	extra    []paging.Listener
	retired  map[paging.Loader]struct{} // closed loaders whose fetches may still be running
	settling conc.WaitGroup
}

// New returns a session with no source selected.
func New(opts Options) (*Session, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("session: fetcher is required")
	}
	if strings.TrimSpace(opts.ID) == "" {
		return nil, errors.New("session: id is required")
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyPage
	}
	if strategy != StrategyPage && strategy != StrategyRange {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	parent := opts.Parent
	if parent == nil {
		parent = context.Background()
	}
	return &Session{
		id:        opts.ID,
		fetcher:   opts.Fetcher,
		strategy:  strategy,
		pageSize:  opts.PageSize,
		log:       logger.Ensure(opts.Log),
		parent:    parent,
		listeners: opts.Listeners,
		onRetry:   opts.OnRetry,
		retired:   make(map[paging.Loader]struct{}),
	}, nil
}

func (s *Session) ID() string         { return s.id }
func (s *Session) Strategy() Strategy { return s.strategy }
func (s *Session) PageSize() int      { return s.pageSize }

// Source returns the selected source.
func (s *Session) Source() (domain.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return domain.Source{}, false
	}
	return *s.source, true
}

// Subscribe attaches l to the current loader and to every loader installed later.
func (s *Session) Subscribe(l paging.Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = append(s.extra, l)
	if loader := s.loaderLocked(); loader != nil {
		s.detached = append(s.detached, loader.Subscribe(l))
	}
}

// SelectSource ends the current loader and starts a new one for src: empty
// collection, state IDLE, page counter reset. The first load is dispatched at once.
func (s *Session) SelectSource(src domain.Source) error {
	if strings.TrimSpace(src.ID) == "" {
		return ErrInvalidSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.teardownLocked()

	opts := paging.Options{SourceID: src.ID, PageSize: s.pageSize, Log: s.log, Parent: s.parent}
	var loader paging.Loader
	switch s.strategy {
	case StrategyRange:
		s.ranged = paging.NewRangeSource(s.fetcher, opts)
		loader = s.ranged
	default:
		s.feed = paging.NewFeed(s.fetcher, opts)
		loader = s.feed
	}
	source := src
	s.source = &source

	var attach []paging.Listener
	if s.listeners != nil {
		attach = append(attach, s.listeners(s.id, src)...)
	}
	attach = append(attach, s.extra...)
	for _, l := range attach {
		if l != nil {
			s.detached = append(s.detached, loader.Subscribe(l))
		}
	}

	s.log.InfoObj("source selected", "session", map[string]any{
		"session_id": s.id,
		"source_id":  src.ID,
		"strategy":   string(s.strategy),
	})

	if s.ranged != nil {
		s.ranged.LoadInitial(0, s.pageSize, nil)
	} else {
		s.feed.Advance()
	}
	return nil
}

// Advance loads the next page. Only valid for StrategyPage.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	feed, err := s.feedLocked()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return feed.Advance(), nil
}

// RequestRange loads [start, start+size). The first request of a loader becomes its
// initial load. cb receives the window's articles and may be nil. Only valid for
// StrategyRange.
func (s *Session) RequestRange(start, size int, cb func([]domain.Article)) (bool, error) {
	return s.RequestRangeFunc(start, size, cb, nil)
}

// RequestRangeFunc is RequestRange with onErr called if this request's fetch fails.
// Failures of other windows are not reported to it.
func (s *Session) RequestRangeFunc(start, size int, cb func([]domain.Article), onErr func(error)) (bool, error) {
	if start < 0 || size <= 0 {
		return false, fmt.Errorf("%w: start=%d size=%d", ErrInvalidRange, start, size)
	}
	s.mu.Lock()
	ranged, err := s.rangedLocked()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	if !ranged.Started() {
		var onInitial func(paging.InitialResult)
		if cb != nil {
			onInitial = func(res paging.InitialResult) { cb(res.Articles) }
		}
		return ranged.LoadInitialFunc(start, size, onInitial, onErr), nil
	}
	return ranged.LoadRangeFunc(start, size, cb, onErr), nil
}

// Retry re-issues the retained failed request(s) of the current loader.
func (s *Session) Retry() (bool, error) {
	s.mu.Lock()
	loader := s.loaderLocked()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false, ErrClosed
	}
	if loader == nil {
		return false, ErrNoSource
	}

	issued := loader.Retry()
	if issued && s.onRetry != nil {
		s.onRetry()
	}
	return issued, nil
}

func (s *Session) Articles() []domain.Article {
	if loader := s.Loader(); loader != nil {
		return loader.Articles()
	}
	return nil
}

// State returns IDLE until a source is selected.
func (s *Session) State() paging.NetworkState {
	if loader := s.Loader(); loader != nil {
		return loader.State()
	}
	return paging.Idle
}

func (s *Session) LastError() error {
	if loader := s.Loader(); loader != nil {
		return loader.LastError()
	}
	return nil
}

// Total returns the declared total of the current loader, if known.
func (s *Session) Total() (int, bool) {
	if loader := s.Loader(); loader != nil {
		return loader.Total()
	}
	return 0, false
}

// Loader returns the current loader, or nil before the first SelectSource.
func (s *Session) Loader() paging.Loader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaderLocked()
}

// Wait blocks until the current loader has no fetch in flight.
func (s *Session) Wait() {
	if loader := s.Loader(); loader != nil {
		loader.Wait()
	}
}

// Flush waits until notifications already posted by the current loader are delivered.
func (s *Session) Flush() {
	if loader := s.Loader(); loader != nil {
		loader.Flush()
	}
}

// Close ends the session. In-flight fetches are cancelled and their results dropped.
// Close does not wait for them; Manager.CloseAll does.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.teardownLocked()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) teardownLocked() {
	for _, detach := range s.detached {
		detach()
	}
	s.detached = nil
	if loader := s.loaderLocked(); loader != nil {
		loader.Close()
		s.retired[loader] = struct{}{}
		s.settling.Go(func() {
			loader.Wait()
			s.mu.Lock()
			delete(s.retired, loader)
			s.mu.Unlock()
		})
	}
	s.feed, s.ranged = nil, nil
}

// retiredLen reports how many closed loaders still have fetches running.
func (s *Session) retiredLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.retired)
}

// waitClosed blocks until every loader retired by this session has finished its
// fetches. Only called after Close, so no loader is retired concurrently.
func (s *Session) waitClosed() {
	s.settling.Wait()
}

func (s *Session) loaderLocked() paging.Loader {
	switch {
	case s.feed != nil:
		return s.feed
	case s.ranged != nil:
		return s.ranged
	}
	return nil
}

func (s *Session) feedLocked() (*paging.Feed, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.strategy != StrategyPage {
		return nil, ErrWrongStrategy
	}
	if s.feed == nil {
		return nil, ErrNoSource
	}
	return s.feed, nil
}

func (s *Session) rangedLocked() (*paging.RangeSource, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.strategy != StrategyRange {
		return nil, ErrWrongStrategy
	}
	if s.ranged == nil {
		return nil, ErrNoSource
	}
	return s.ranged, nil
}
