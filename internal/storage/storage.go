// Package storage remembers which article keys were already relayed, with expiry.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store is a set of relayed article keys. Entries expire after the configured TTL.
type Store interface {
	Seen(key string) (bool, error)
	Mark(key string) error
	Close() error
}

type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	// Now overrides the clock; tests use it to expire entries.
	Now func() time.Time
}

const (
	defaultTTL             = 3 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// Open builds the store named by typ: "bbolt", "memory", or "none".
func Open(typ, path string, opts Options) (Store, error) {
	opts = withDefaults(opts)

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func withDefaults(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

// Disabled returns a store that remembers nothing.
func Disabled() Store { return noopStore{} }

type noopStore struct{}

func (noopStore) Seen(string) (bool, error) { return false, nil }
func (noopStore) Mark(string) error         { return nil }
func (noopStore) Close() error              { return nil }
