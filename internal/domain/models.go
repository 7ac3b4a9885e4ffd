package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
)

// ArticleSource is the source attribution embedded in an article.
type ArticleSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Article is a single news item as returned by the listing endpoint.
type Article struct {
	Source      ArticleSource `json:"source"`
	Author      string        `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
	Content     string        `json:"content"`
}

// Key returns a stable identifier derived from the article URL.
func (a Article) Key() string {
	sum := sha1.Sum([]byte(a.URL))
	return hex.EncodeToString(sum[:])
}

// Source identifies a news source; ID is the query key for article fetches.
type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Country     string `json:"country"`
}

// ArticlesPage is one page of the article listing.
type ArticlesPage struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// SourcesPage is the source listing.
type SourcesPage struct {
	Status  string   `json:"status"`
	Sources []Source `json:"sources"`
}
