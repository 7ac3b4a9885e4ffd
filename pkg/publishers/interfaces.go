package publishers

import "context"

// Publisher sends events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Closer is implemented by publishers that hold connections.
type Closer interface {
	Close() error
}
