package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-news-reader/pkg/httpclient"
)

const sampleArticles = `{
  "status": "ok",
  "totalResults": 25,
  "articles": [
    {"source": {"id": "abc-news", "name": "ABC News"}, "author": "A", "title": "One",
     "description": "d1", "url": "https://abcnews.go.com/1", "publishedAt": "2019-07-01T10:00:00Z"},
    {"source": {"id": "abc-news", "name": "ABC News"}, "author": "B", "title": "Two",
     "description": "d2", "url": "https://abcnews.go.com/2", "publishedAt": "2019-07-01T11:00:00Z"}
  ]
}`

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

type mockHTTPClient struct {
	t      *testing.T
	expect httpclient.Request
	status int
	body   string
	err    error
}

func (m mockHTTPClient) Get(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	if m.expect.URL != "" && req.URL != m.expect.URL {
		m.t.Fatalf("expected url %q, got %q", m.expect.URL, req.URL)
	}
	for key, want := range m.expect.Query {
		if got := req.Query[key]; got != want {
			m.t.Fatalf("expected query %s=%q, got %q", key, want, got)
		}
	}
	for key, want := range m.expect.Headers {
		if got := req.Headers[key]; got != want {
			m.t.Fatalf("expected header %s=%q, got %q", key, want, got)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return mockResponse{body: []byte(m.body), statusCode: status}, nil
}

func TestFetchArticlesBuildsRequestAndDecodes(t *testing.T) {
	client := New(Options{
		BaseURL: "https://news.example/v2/",
		APIKey:  "key",
		HTTP: mockHTTPClient{
			t: t,
			expect: httpclient.Request{
				URL:     "https://news.example/v2/everything",
				Query:   map[string]string{"sources": "abc-news", "page": "2", "pageSize": "20"},
				Headers: map[string]string{apiKeyHeader: "key"},
			},
			body: sampleArticles,
		},
	})

	page, err := client.FetchArticles(context.Background(), "abc-news", 2, 20)
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if page.TotalResults != 25 || len(page.Articles) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Articles[1].Title != "Two" || page.Articles[1].Source.ID != "abc-news" {
		t.Fatalf("unexpected article %+v", page.Articles[1])
	}
}

func TestFetchArticlesDecodesErrorEnvelope(t *testing.T) {
	client := New(Options{HTTP: mockHTTPClient{
		t:      t,
		status: http.StatusUnauthorized,
		body:   `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`,
	}})

	_, err := client.FetchArticles(context.Background(), "abc-news", 1, 20)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "apiKeyInvalid" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestFetchArticlesRejectsMalformedBody(t *testing.T) {
	client := New(Options{HTTP: mockHTTPClient{t: t, body: `{"status":`}})
	if _, err := client.FetchArticles(context.Background(), "abc-news", 1, 20); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFetchArticlesRejectsNonOKStatus(t *testing.T) {
	client := New(Options{HTTP: mockHTTPClient{t: t, body: `{"status":"error"}`}})
	_, err := client.FetchArticles(context.Background(), "abc-news", 1, 20)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "error" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestResponseSnippetCutsOnRuneBoundary(t *testing.T) {
	body := []byte(strings.Repeat("a", 511) + strings.Repeat("খবর", 10))
	got := responseSnippet(body)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet is not valid utf-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > 512+len("...") {
		t.Fatalf("unexpected snippet length %d", len(got))
	}
	if short := responseSnippet([]byte("  খবর  ")); short != "খবর" {
		t.Fatalf("unexpected short snippet %q", short)
	}
}

func TestFetchArticlesTransportError(t *testing.T) {
	client := New(Options{HTTP: mockHTTPClient{t: t, err: errors.New("connection refused")}})
	_, err := client.FetchArticles(context.Background(), "abc-news", 1, 20)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestFetchSourcesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/sources" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("country"); got != "us" {
			t.Errorf("expected country=us, got %q", got)
		}
		if r.URL.Query().Has("category") {
			t.Errorf("category should be omitted when empty")
		}
		_, _ = w.Write([]byte(`{"status":"ok","sources":[{"id":"abc-news","name":"ABC News","category":"general","country":"us","language":"en"}]}`))
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL + "/v2"})
	page, err := client.FetchSources(context.Background(), "us", CategoryAll)
	if err != nil {
		t.Fatalf("FetchSources: %v", err)
	}
	if len(page.Sources) != 1 || page.Sources[0].ID != "abc-news" {
		t.Fatalf("unexpected sources %+v", page.Sources)
	}
}

func TestParseEnums(t *testing.T) {
	if c, err := ParseCountry(" US "); err != nil || c != "us" {
		t.Fatalf("ParseCountry: %q %v", c, err)
	}
	if c, err := ParseCountry("all"); err != nil || c != CountryAll {
		t.Fatalf("ParseCountry all: %q %v", c, err)
	}
	if _, err := ParseCountry("xx"); err == nil {
		t.Fatalf("expected error for unknown country")
	}
	if c, err := ParseCategory("Sports"); err != nil || c != CategorySports {
		t.Fatalf("ParseCategory: %q %v", c, err)
	}
	if _, err := ParseCategory("gossip"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}
