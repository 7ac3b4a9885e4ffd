package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
)

// Event is the payload sent downstream for every newly loaded article.
type Event struct {
	SessionID  string         `json:"session_id"`
	SourceID   string         `json:"source_id"`
	SourceName string         `json:"source_name"`
	Article    domain.Article `json:"article"`
	LoadedAt   time.Time      `json:"loaded_at"`
}

// NewEvent stamps an article loaded by a session for src.
func NewEvent(sessionID string, src domain.Source, article domain.Article) Event {
	return Event{
		SessionID:  sessionID,
		SourceID:   src.ID,
		SourceName: src.Name,
		Article:    article,
		LoadedAt:   time.Now().UTC(),
	}
}

// Key identifies the article of the event; sinks use it for deduplication and partitioning.
func (e Event) Key() string {
	return e.Article.Key()
}
