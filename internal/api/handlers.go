package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/internal/paging"
	"github.com/samvad-hq/samvad-news-reader/internal/session"
	"github.com/samvad-hq/samvad-news-reader/pkg/newsapi"
)

var (
	errBusy          = errors.New("range already in flight")
	errSourceChanged = errors.New("source changed before the range settled")
)

type handlers struct {
	sessions  *session.Manager
	sources   SourceLister
	preview   Previewer
	log       logger.Logger
	rangeWait time.Duration
}

type createSessionRequest struct {
	Source   domain.Source `json:"source"`
	Strategy string        `json:"strategy"`
}

type selectSourceRequest struct {
	Source domain.Source `json:"source"`
}

type sessionSummary struct {
	ID       string              `json:"id"`
	Strategy session.Strategy    `json:"strategy"`
	State    paging.NetworkState `json:"state"`
}

type sessionView struct {
	sessionSummary
	Source   *domain.Source   `json:"source,omitempty"`
	Articles []domain.Article `json:"articles"`
	Count    int              `json:"count"`
	Total    *int             `json:"total,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type rangeView struct {
	Start    int                 `json:"start"`
	Size     int                 `json:"size"`
	Articles []domain.Article    `json:"articles"`
	State    paging.NetworkState `json:"state"`
}

func summarize(s *session.Session) sessionSummary {
	return sessionSummary{ID: s.ID(), Strategy: s.Strategy(), State: s.State()}
}

func view(s *session.Session) sessionView {
	arts := s.Articles()
	if arts == nil {
		arts = []domain.Article{}
	}
	v := sessionView{sessionSummary: summarize(s), Articles: arts, Count: len(arts)}
	if src, ok := s.Source(); ok {
		v.Source = &src
	}
	if total, ok := s.Total(); ok {
		v.Total = &total
	}
	if err := s.LastError(); err != nil && v.State == paging.Error {
		v.Error = err.Error()
	}
	return v
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
}

func (h *handlers) listSources(w http.ResponseWriter, r *http.Request) {
	country, err := newsapi.ParseCountry(r.URL.Query().Get("country"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := newsapi.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, err := h.sources.FetchSources(r.Context(), country, category)
	if err != nil {
		h.log.WarnObj("source listing failed", "api_error", map[string]any{"error": err.Error()})
		fail(w, err)
		return
	}
	sources := page.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources, "count": len(sources)})
}

func (h *handlers) previewArticle(w http.ResponseWriter, r *http.Request) {
	if h.preview == nil {
		writeError(w, http.StatusNotFound, errors.New("preview disabled"))
		return
	}
	p, err := h.preview.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	strategy := session.Strategy("")
	if req.Strategy != "" {
		parsed, err := session.ParseStrategy(req.Strategy)
		if err != nil {
			fail(w, err)
			return
		}
		strategy = parsed
	}
	s, err := h.sessions.Create(req.Source, strategy)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summarize(s))
}

func (h *handlers) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ids": h.sessions.IDs()})
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return nil, false
	}
	return s, true
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}

func (h *handlers) selectSource(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req selectSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.SelectSource(req.Source); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(s))
}

// advance dispatches the next page. With ?wait=true it responds once the page settled.
func (h *handlers) advance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	dispatched, err := s.Advance()
	if err != nil {
		fail(w, err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait && dispatched {
		if !waitCtx(r.Context(), s.Wait) {
			writeError(w, http.StatusGatewayTimeout, r.Context().Err())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dispatched": dispatched,
		"state":      s.State(),
		"count":      len(s.Articles()),
	})
}

func (h *handlers) retry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	retried, err := s.Retry()
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"retried": retried, "state": s.State()})
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestRange loads [start, start+size) and waits for its articles, its own failure,
// a source change, or the request deadline.
func (h *handlers) requestRange(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	start, err := queryInt(r, "start", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	size, err := queryInt(r, "size", s.PageSize())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.rangeWait)
	defer cancel()

	before := s.Loader()
	got := make(chan []domain.Article, 1)
	failed := make(chan error, 1)
	dispatched, err := s.RequestRangeFunc(start, size,
		func(items []domain.Article) {
			select {
			case got <- items:
			default:
			}
		},
		func(err error) {
			select {
			case failed <- err:
			default:
			}
		})
	if err != nil {
		fail(w, err)
		return
	}
	if !dispatched {
		writeError(w, http.StatusConflict, errBusy)
		return
	}
	// A source selected between the lookup and the dispatch retired before.
	if before == nil || s.Loader() != before {
		writeError(w, http.StatusConflict, errSourceChanged)
		return
	}

	writeRange := func(items []domain.Article) {
		if items == nil {
			items = []domain.Article{}
		}
		writeJSON(w, http.StatusOK, rangeView{Start: start, Size: size, Articles: items, State: s.State()})
	}
	select {
	case items := <-got:
		writeRange(items)
	case err := <-failed:
		fail(w, err)
	case <-before.Done():
		select {
		case items := <-got:
			writeRange(items)
		default:
			writeError(w, http.StatusConflict, errSourceChanged)
		}
	case <-ctx.Done():
		writeError(w, http.StatusGatewayTimeout, ctx.Err())
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// waitCtx runs wait in the background and reports whether it returned before ctx ended.
func waitCtx(ctx context.Context, wait func()) bool {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
