// Package preview fetches an article page and turns it into a short readable preview.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/pkg/httpclient"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

var ErrInvalidURL = errors.New("preview: url must be absolute http(s)")

// Preview is the metadata and markdown body extracted from an article page.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

// StatusError reports a non-200 article response.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("preview: status %d body: %s", e.StatusCode, e.Snippet)
}

type Fetcher struct {
	client    httpclient.Client
	converter *md.Converter
	log       logger.Logger
}

func NewFetcher(client httpclient.Client, log logger.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		converter: md.NewConverter("", true, nil),
		log:       logger.Ensure(log),
	}
}

// Fetch downloads rawURL and extracts its preview. Bodies beyond 1 MiB are cut.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Preview{}, ErrInvalidURL
	}

	resp, err := f.client.Get(ctx, httpclient.Request{
		URL:     u.String(),
		Headers: map[string]string{"Accept": "text/html,application/xhtml+xml"},
	})
	if err != nil {
		return Preview{}, fmt.Errorf("preview: http fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return Preview{}, &StatusError{StatusCode: resp.StatusCode(), Snippet: snippet}
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	p, err := f.parse(body, u.String())
	if err != nil {
		return Preview{}, err
	}
	f.log.DebugObj("preview extracted", "preview", map[string]any{
		"url":            p.URL,
		"title":          p.Title,
		"markdown_bytes": len(p.Markdown),
	})
	return p, nil
}

func (f *Fetcher) parse(body []byte, pageURL string) (Preview, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Preview{}, fmt.Errorf("preview: parse html: %w", err)
	}

	meta := func(sel string) string {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	p := Preview{
		URL: pageURL,
		Title: firstNonEmpty(
			meta(`meta[property="og:title"]`),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			meta(`meta[property="og:description"]`),
			meta(`meta[name="description"]`),
		),
		ImageURL: resolveURL(meta(`meta[property="og:image"]`), pageURL),
	}

	content := doc.Find("article").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find("script, style, noscript, nav, footer").Remove()
	if html, err := content.Html(); err == nil && strings.TrimSpace(html) != "" {
		markdown, err := f.converter.ConvertString(html)
		if err != nil {
			return Preview{}, fmt.Errorf("preview: convert markdown: %w", err)
		}
		p.Markdown = strings.TrimSpace(markdown)
	}
	return p, nil
}

// resolveURL makes ref absolute against base. Unparseable refs are returned unchanged.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
