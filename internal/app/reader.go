package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/samvad-hq/samvad-news-reader/internal/api"
	"github.com/samvad-hq/samvad-news-reader/internal/config"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/internal/metrics"
	"github.com/samvad-hq/samvad-news-reader/internal/preview"
	"github.com/samvad-hq/samvad-news-reader/internal/relay"
	"github.com/samvad-hq/samvad-news-reader/internal/session"
	"github.com/samvad-hq/samvad-news-reader/internal/storage"
	"github.com/samvad-hq/samvad-news-reader/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-reader/pkg/newsapi"
	"github.com/samvad-hq/samvad-news-reader/pkg/publishers"
)

// Reader is the news reader runtime. It owns the session manager, the HTTP API
// and, when publishers are configured, the relay with its dedupe store.
type Reader struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metrics.Metrics
	news     *newsapi.Client
	sessions *session.Manager
	store    storage.Store
	fanout   *publishers.Fanout
	relay    *relay.Relay
	handler  http.Handler
}

// NewNewsClient builds the remote API client from config.
func NewNewsClient(cfg *config.Config) *newsapi.Client {
	return newsapi.New(newsapi.Options{
		BaseURL: cfg.NewsAPIBaseURL,
		APIKey:  cfg.NewsAPIKey,
		Timeout: cfg.NewsAPITimeout,
	})
}

// NewReader wires the runtime from config. ctx bounds publisher construction and
// is the parent of every session.
func NewReader(ctx context.Context, cfg *config.Config, log logger.Logger) (*Reader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	strategy, err := session.ParseStrategy(cfg.PagingStrategy)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		news:    NewNewsClient(cfg),
		store:   storage.Disabled(),
	}

	var listeners session.ListenerFactory
	if cfg.PublishersFile != "" {
		if err := r.initRelay(ctx); err != nil {
			return nil, err
		}
		listeners = r.relay.Listeners
	} else {
		log.InfoObj("relay disabled", "publishers_file", "")
	}

	r.sessions = session.NewManager(session.ManagerOptions{
		Fetcher:   r.metrics.InstrumentFetcher(r.news),
		Strategy:  strategy,
		PageSize:  cfg.PageSize,
		Log:       log,
		Parent:    ctx,
		Listeners: listeners,
		Observer:  r.metrics,
	})

	r.handler = api.NewRouter(api.Options{
		Sessions:  r.sessions,
		Sources:   r.metrics.InstrumentSources(r.news),
		Preview:   preview.NewFetcher(httpclient.NewRestyClient(cfg.PreviewTimeout), log),
		Metrics:   r.metrics.Handler(),
		Log:       log,
		Timeout:   cfg.HTTPTimeout,
		RangeWait: cfg.RangeWait,
	})

	log.InfoObj("reader initialized", "reader_config", map[string]any{
		"newsapi_base_url": cfg.NewsAPIBaseURL,
		"page_size":        cfg.PageSize,
		"paging_strategy":  string(strategy),
		"publishers":       r.fanout.Size(),
	})
	return r, nil
}

func (r *Reader) initRelay(ctx context.Context) error {
	publisherReg, err := publishers.LoadConfig(r.cfg.PublishersFile)
	if err != nil {
		return fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	if len(enabled) == 0 {
		return fmt.Errorf("no enabled publishers in %s", r.cfg.PublishersFile)
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, r.log)
	if err != nil {
		return fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	r.log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.Open(r.cfg.StorageType, r.cfg.BBoltPath, storage.Options{
		TTL:             r.cfg.StorageTTL,
		CleanupInterval: r.cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = publishers.CloseAll(pubClients)
		return fmt.Errorf("init storage: %w", err)
	}
	r.log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     r.cfg.StorageType,
		"path":                     r.cfg.BBoltPath,
		"ttl_seconds":              int(r.cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(r.cfg.StorageCleanupInterval.Seconds()),
	})

	r.store = store
	r.fanout = publishers.NewFanout(pubClients)
	r.relay = relay.New(r.fanout, store, relay.Options{
		Log:            r.log,
		PublishTimeout: r.cfg.HTTPTimeout,
	})
	return nil
}

func (r *Reader) Handler() http.Handler { return r.handler }

func (r *Reader) Sessions() *session.Manager { return r.sessions }

// Run serves the API on cfg.HTTPAddr until ctx is cancelled, then shuts down.
func (r *Reader) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.HTTPAddr)
	if err != nil {
		_ = r.Close(context.Background())
		return fmt.Errorf("listen %s: %w", r.cfg.HTTPAddr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (r *Reader) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           r.handler,
		ReadHeaderTimeout: r.cfg.HTTPTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	r.log.InfoObj("reader listening", "http", map[string]any{"addr": ln.Addr().String()})

	var runErr error
	select {
	case <-ctx.Done():
		r.log.InfoObj("reader shutting down", "reason", ctx.Err().Error())
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.log.ErrorObj("http shutdown failed", "error", err.Error())
	}
	return errors.Join(runErr, r.Close(shutdownCtx))
}

// Close ends every session, drains the relay and releases sinks and storage.
func (r *Reader) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if r.sessions != nil {
		r.sessions.CloseAll()
	}

	var errs []error
	if r.relay != nil {
		if err := r.relay.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain relay: %w", err))
		}
	}
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err.Error())
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
