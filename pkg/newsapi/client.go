package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/pkg/httpclient"
)

const (
	DefaultBaseURL = "https://newsapi.org/v2"

	everythingPath = "/everything"
	sourcesPath    = "/sources"
	apiKeyHeader   = "X-Api-Key"
	statusOK       = "ok"
)

// APIError is returned for non-2xx responses and for bodies whose status is not "ok".
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("newsapi: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("newsapi: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to a NewsAPI compatible endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    httpclient.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTP overrides the transport, mainly for tests.
	HTTP httpclient.Client
}

// New builds a client; zero values fall back to the public endpoint and a 15s timeout.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	transport := opts.HTTP
	if transport == nil {
		transport = httpclient.NewRestyClient(opts.Timeout)
	}
	return &Client{
		baseURL: base,
		apiKey:  strings.TrimSpace(opts.APIKey),
		http:    transport,
	}
}

// FetchArticles fetches one page of articles for the given source.
func (c *Client) FetchArticles(ctx context.Context, sourceID string, page, pageSize int) (domain.ArticlesPage, error) {
	var out domain.ArticlesPage
	err := c.get(ctx, everythingPath, map[string]string{
		"sources":  sourceID,
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
	}, &out)
	if err != nil {
		return domain.ArticlesPage{}, fmt.Errorf("fetch articles for %s page %d: %w", sourceID, page, err)
	}
	if out.Status != statusOK {
		return domain.ArticlesPage{}, &APIError{StatusCode: http.StatusOK, Code: out.Status, Message: "unexpected response status"}
	}
	return out, nil
}

// FetchSources lists sources, optionally filtered by country and category.
func (c *Client) FetchSources(ctx context.Context, country Country, category Category) (domain.SourcesPage, error) {
	var out domain.SourcesPage
	err := c.get(ctx, sourcesPath, map[string]string{
		"country":  string(country),
		"category": string(category),
	}, &out)
	if err != nil {
		return domain.SourcesPage{}, fmt.Errorf("fetch sources: %w", err)
	}
	if out.Status != statusOK {
		return domain.SourcesPage{}, &APIError{StatusCode: http.StatusOK, Code: out.Status, Message: "unexpected response status"}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, dst any) error {
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers[apiKeyHeader] = c.apiKey
	}

	resp, err := c.http.Get(ctx, httpclient.Request{
		URL:     c.baseURL + path,
		Query:   query,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("http get %s: %w", path, err)
	}

	body := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return decodeAPIError(resp.StatusCode(), body)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeAPIError extracts the {status,code,message} error envelope when present.
func decodeAPIError(status int, body []byte) error {
	var envelope struct {
		Status  string `json:"status"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return &APIError{StatusCode: status, Code: envelope.Code, Message: envelope.Message}
	}
	return &APIError{StatusCode: status, Message: responseSnippet(body)}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		n := maxLen
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// AsAPIError returns the *APIError wrapped by err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
