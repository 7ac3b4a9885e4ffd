// Package relay forwards newly loaded articles to downstream publishers.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/internal/paging"
	"github.com/samvad-hq/samvad-news-reader/pkg/publishers"
)

// EventPublisher delivers one event and reports how many sinks accepted it.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers relayed article keys. storage.Store satisfies it.
type Deduper interface {
	Seen(key string) (bool, error)
	Mark(key string) error
}

type Options struct {
	Log logger.Logger
	// PublishTimeout bounds one batch; zero means no bound.
	PublishTimeout time.Duration
	Parent         context.Context
}

// Relay publishes each article once, the first time any session loads it.
// Publishing runs on its own goroutines, never on a loader's dispatcher.
type Relay struct {
	pub     EventPublisher
	dedupe  Deduper
	log     logger.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}
}

func New(pub EventPublisher, dedupe Deduper, opts Options) *Relay {
	parent := opts.Parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Relay{
		pub:      pub,
		dedupe:   dedupe,
		log:      logger.Ensure(opts.Log),
		timeout:  opts.PublishTimeout,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
}

// Listeners matches session.ListenerFactory.
func (r *Relay) Listeners(sessionID string, src domain.Source) []paging.Listener {
	return []paging.Listener{r.Listener(sessionID, src)}
}

// Listener relays appended articles of one loader. Reset updates are replays of data
// the relay has already seen and are skipped.
func (r *Relay) Listener(sessionID string, src domain.Source) paging.Listener {
	return paging.ListenerFuncs{
		OnArticles: func(u paging.Update) {
			if u.Reset || len(u.Added) == 0 {
				return
			}
			r.Submit(sessionID, src, u.Added)
		},
	}
}

// Submit schedules articles for publishing. It reports false after Close.
func (r *Relay) Submit(sessionID string, src domain.Source, articles []domain.Article) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	batch := append([]domain.Article(nil), articles...)
	r.wg.Go(func() {
		if err := r.Process(r.ctx, sessionID, src, batch); err != nil {
			r.log.WarnObj("relay batch incomplete", "relay_error", map[string]any{
				"session_id": sessionID,
				"source_id":  src.ID,
				"error":      err.Error(),
			})
		}
	})
	return true
}

// Process publishes the articles not relayed before and marks those at least one sink accepted.
func (r *Relay) Process(ctx context.Context, sessionID string, src domain.Source, articles []domain.Article) error {
	if r.pub == nil {
		return nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	fresh := r.claim(src, articles)
	defer r.release(fresh)

	var errs []error
	published := 0
	for _, art := range fresh {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		evt := publishers.NewEvent(sessionID, src, art)
		n, err := r.pub.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("article %s: %w", art.URL, err))
		}
		if n == 0 {
			continue
		}
		published++
		if r.dedupe != nil {
			if err := r.dedupe.Mark(art.Key()); err != nil {
				errs = append(errs, fmt.Errorf("mark article %s: %w", art.URL, err))
			}
		}
	}

	r.log.DebugObj("relay batch published", "relay_result", map[string]any{
		"session_id": sessionID,
		"source_id":  src.ID,
		"received":   len(articles),
		"fresh":      len(fresh),
		"published":  published,
	})
	return errors.Join(errs...)
}

// claim filters out articles already relayed or being relayed by another batch.
// Articles whose lookup fails are kept.
func (r *Relay) claim(src domain.Source, articles []domain.Article) []domain.Article {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		key := art.Key()
		if _, busy := r.inflight[key]; busy {
			continue
		}
		if r.dedupe != nil {
			seen, err := r.dedupe.Seen(key)
			if err != nil {
				r.log.WarnObj("relay dedupe lookup failed", "relay_dedupe_error", map[string]any{
					"source_id": src.ID,
					"url":       art.URL,
					"error":     err.Error(),
				})
			} else if seen {
				continue
			}
		}
		r.inflight[key] = struct{}{}
		out = append(out, art)
	}
	return out
}

func (r *Relay) release(articles []domain.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, art := range articles {
		delete(r.inflight, art.Key())
	}
}

// Wait blocks until every submitted batch has finished.
func (r *Relay) Wait() {
	r.wg.Wait()
}

// Close stops accepting batches and waits for running ones; pending publishes see a
// cancelled context once ctx is done.
func (r *Relay) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
