// Package api exposes reader sessions over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/internal/preview"
	"github.com/samvad-hq/samvad-news-reader/internal/session"
	"github.com/samvad-hq/samvad-news-reader/pkg/newsapi"
)

// SourceLister lists sources of the remote API.
type SourceLister interface {
	FetchSources(ctx context.Context, country newsapi.Country, category newsapi.Category) (domain.SourcesPage, error)
}

// Previewer builds an article preview.
type Previewer interface {
	Fetch(ctx context.Context, rawURL string) (preview.Preview, error)
}

type Options struct {
	Sessions *session.Manager
	Sources  SourceLister
	Preview  Previewer
	Metrics  http.Handler
	Log      logger.Logger
	// Timeout bounds every request except range waits, which are bounded by RangeWait.
	Timeout   time.Duration
	RangeWait time.Duration
}

// NewRouter builds the chi router with middleware and routes.
func NewRouter(opts Options) http.Handler {
	h := &handlers{
		sessions:  opts.Sessions,
		sources:   opts.Sources,
		preview:   opts.Preview,
		log:       logger.Ensure(opts.Log),
		rangeWait: opts.RangeWait,
	}
	if h.rangeWait <= 0 {
		h.rangeWait = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		requestLogger(h.log),
	)

	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.Timeout > 0 {
			r.Use(middleware.Timeout(opts.Timeout))
		}
		r.Get("/sources", h.listSources)
		r.Get("/preview", h.previewArticle)

		r.Post("/sessions", h.createSession)
		r.Get("/sessions", h.listSessions)
		r.Get("/sessions/{id}", h.getSession)
		r.Post("/sessions/{id}/source", h.selectSource)
		r.Post("/sessions/{id}/next", h.advance)
		r.Post("/sessions/{id}/retry", h.retry)
		r.Delete("/sessions/{id}", h.deleteSession)
	})
	r.Get("/sessions/{id}/range", h.requestRange)

	return r
}

// requestLogger logs one line per request in the structured style of the rest of the app.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.DebugObj("http request", "http", map[string]any{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}
