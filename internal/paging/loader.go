package paging

import (
	"context"
	"sync"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
)

// Loader is the surface shared by both paging strategies.
type Loader interface {
	State() NetworkState
	Articles() []domain.Article
	Len() int
	Total() (int, bool)
	LastError() error
	Retry() bool
	Subscribe(l Listener) (unsubscribe func())
	Close()
	Wait()
	Flush()
	// Done is closed once the loader is closed or its parent context ends.
	Done() <-chan struct{}
}

// Options configures a loader. SourceID and PageSize are required.
type Options struct {
	SourceID string
	PageSize int
	Log      logger.Logger
	// Parent bounds the lifetime of every fetch; cancelling it has the same effect on
	// in-flight requests as Close.
	Parent context.Context
}

// core holds the state and plumbing common to Feed and RangeSource.
// mu guards every field below it. Notifications are posted while holding mu, with the
// listener set captured at that moment, so each listener sees changes in mutation order.
type core struct {
	fetcher   Fetcher
	sourceID  string
	pageSize  int
	log       logger.Logger
	group     *Group
	disp      *Dispatcher
	listeners listenerSet

	mu       sync.Mutex
	closed   bool
	state    NetworkState
	articles []domain.Article
	total    int
	hasTotal bool
	lastErr  error
}

func (c *core) init(f Fetcher, opts Options) {
	if f == nil {
		panic("paging: fetcher must not be nil")
	}
	mustSource(opts.SourceID)
	if opts.PageSize <= 0 {
		panic("paging: page size must be positive")
	}
	c.fetcher = f
	c.sourceID = opts.SourceID
	c.pageSize = opts.PageSize
	c.log = logger.Ensure(opts.Log)
	c.group = NewGroup(opts.Parent)
	c.disp = NewDispatcher()
	c.state = Idle
}

// State returns the current network state.
func (c *core) State() NetworkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Articles returns a copy of the loaded collection.
func (c *core) Articles() []domain.Article {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Article(nil), c.articles...)
}

// Len returns the number of loaded articles.
func (c *core) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.articles)
}

// Total returns the declared total reported by the endpoint, if any was seen.
func (c *core) Total() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, c.hasTotal
}

// LastError returns the most recent fetch failure, or nil.
func (c *core) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers l. The current state and collection are replayed to it first.
func (c *core) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.listeners.add(l)
	state := c.state
	snapshot := append([]domain.Article(nil), c.articles...)
	c.disp.Post(func() {
		l.StateChanged(state)
		l.ArticlesChanged(Update{Added: snapshot, Len: len(snapshot), Reset: true})
	})
	c.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { c.listeners.remove(id) }) }
}

// Close cancels in-flight fetches and stops notifications. Completions that arrive
// afterwards are dropped. Close does not wait; use Wait for that.
func (c *core) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.group.Cancel()
	c.disp.Stop()
}

// Wait blocks until every in-flight fetch has finished and its result, if any, is applied.
func (c *core) Wait() {
	c.group.Wait()
}

func (c *core) Done() <-chan struct{} {
	return c.group.Done()
}

// Flush waits for already posted notifications to reach listeners.
func (c *core) Flush() {
	c.disp.Flush()
}

// staleLocked reports whether a completion must be discarded.
func (c *core) staleLocked(ctx context.Context) bool {
	return c.closed || ctx.Err() != nil
}

func (c *core) setStateLocked(s NetworkState) {
	c.state = s
	ls := c.listeners.snapshot()
	c.disp.Post(func() {
		for _, l := range ls {
			l.StateChanged(s)
		}
	})
}

// appendLocked appends items and notifies listeners.
func (c *core) appendLocked(items []domain.Article) {
	if len(items) == 0 {
		return
	}
	c.articles = append(c.articles, items...)
	u := Update{Added: append([]domain.Article(nil), items...), Len: len(c.articles)}
	ls := c.listeners.snapshot()
	c.disp.Post(func() {
		for _, l := range ls {
			l.ArticlesChanged(u)
		}
	})
}

// post delivers fn on the dispatcher goroutine.
func (c *core) post(fn func()) {
	c.disp.Post(fn)
}
