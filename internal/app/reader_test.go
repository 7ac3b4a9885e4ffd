package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-reader/internal/config"
	"github.com/samvad-hq/samvad-news-reader/internal/domain"
)

const upstreamTotal = 3

func newsUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/everything":
			source := r.URL.Query().Get("sources")
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
			out := domain.ArticlesPage{Status: "ok", TotalResults: upstreamTotal}
			for i := (page - 1) * size; i < page*size && i < upstreamTotal; i++ {
				out.Articles = append(out.Articles, domain.Article{
					Title: fmt.Sprintf("%s story %d", source, i),
					URL:   fmt.Sprintf("https://news.example/%d", i),
				})
			}
			_ = json.NewEncoder(w).Encode(out)
		case "/sources":
			_ = json.NewEncoder(w).Encode(domain.SourcesPage{
				Status:  "ok",
				Sources: []domain.Source{{ID: "bbc-news", Name: "BBC News"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type sink struct {
	mu   sync.Mutex
	keys []string
}

func (s *sink) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.keys = append(s.keys, r.Header.Get("X-Article-Key"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		AppName:                "samvad-news-reader",
		HTTPAddr:               "127.0.0.1:0",
		HTTPTimeout:            5 * time.Second,
		RangeWait:              5 * time.Second,
		PreviewTimeout:         5 * time.Second,
		ShutdownTimeout:        5 * time.Second,
		NewsAPIBaseURL:         baseURL,
		NewsAPIKey:             "test-key",
		NewsAPITimeout:         5 * time.Second,
		PageSize:               20,
		PagingStrategy:         config.StrategyPage,
		StorageType:            "memory",
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func createSession(t *testing.T, base, sourceID string) string {
	t.Helper()
	resp, err := http.Post(base+"/sessions", "application/json",
		strings.NewReader(fmt.Sprintf(`{"source":{"id":%q,"name":"BBC News"}}`, sourceID)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.ID
}

func TestReaderRelaysLoadedArticlesOnce(t *testing.T) {
	upstream := newsUpstream(t)
	out := &sink{}
	sinkSrv := httptest.NewServer(out.handler())
	defer sinkSrv.Close()

	pubFile := filepath.Join(t.TempDir(), "publishers.yaml")
	require.NoError(t, os.WriteFile(pubFile, []byte(fmt.Sprintf(`publishers:
  - id: webhook
    type: http
    http:
      url: %s
`, sinkSrv.URL)), 0o600))

	cfg := testConfig(upstream.URL)
	cfg.PublishersFile = pubFile

	r, err := NewReader(context.Background(), cfg, nil)
	require.NoError(t, err)
	api := httptest.NewServer(r.Handler())
	defer api.Close()

	first := createSession(t, api.URL, "bbc-news")
	s, err := r.Sessions().Get(first)
	require.NoError(t, err)
	s.Wait()
	s.Flush()
	r.relay.Wait()
	require.Len(t, s.Articles(), upstreamTotal)
	require.Equal(t, upstreamTotal, out.count())

	second := createSession(t, api.URL, "bbc-news")
	s2, err := r.Sessions().Get(second)
	require.NoError(t, err)
	s2.Wait()
	s2.Flush()
	r.relay.Wait()
	require.Equal(t, upstreamTotal, out.count())

	require.NoError(t, r.Close(context.Background()))
	require.Equal(t, 0, r.Sessions().Len())
}

func TestReaderWithoutPublishersServesSources(t *testing.T) {
	upstream := newsUpstream(t)
	r, err := NewReader(context.Background(), testConfig(upstream.URL), nil)
	require.NoError(t, err)
	require.Nil(t, r.relay)

	api := httptest.NewServer(r.Handler())
	defer api.Close()

	resp, err := http.Get(api.URL + "/sources?country=gb")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(api.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	require.NoError(t, r.Close(context.Background()))
}

func TestNewReaderRejectsBadPublishersFile(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.PublishersFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewReader(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	upstream := newsUpstream(t)
	r, err := NewReader(context.Background(), testConfig(upstream.URL), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
