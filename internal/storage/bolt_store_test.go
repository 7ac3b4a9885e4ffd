package storage

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestBoltStoreMarksAndExpiresKeys(t *testing.T) {
	clock := newClock()
	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "relay.db"), withDefaults(Options{
		TTL:             time.Hour,
		CleanupInterval: 10 * time.Minute,
		Now:             clock.Now,
	}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	seen, err := store.Seen("k1")
	if err != nil || seen {
		t.Fatalf("expected unseen key, seen=%v err=%v", seen, err)
	}
	if err := store.Mark("k1"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, err = store.Seen("k1"); err != nil || !seen {
		t.Fatalf("expected key marked, seen=%v err=%v", seen, err)
	}

	clock.Advance(2 * time.Hour)
	if seen, err = store.Seen("k1"); err != nil || seen {
		t.Fatalf("expected key to expire, seen=%v err=%v", seen, err)
	}
	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected expired key removed, %d left", n)
	}
}

func TestBoltStoreSweepsExpiredKeys(t *testing.T) {
	clock := newClock()
	store, err := openBolt(filepath.Join(t.TempDir(), "relay.db"), withDefaults(Options{
		TTL:             time.Hour,
		CleanupInterval: 30 * time.Minute,
		Now:             clock.Now,
	}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	for _, k := range []string{"a", "b", "c"} {
		if err := store.Mark(k); err != nil {
			t.Fatalf("Mark %s: %v", k, err)
		}
	}
	clock.Advance(90 * time.Minute)
	if err := store.Mark("fresh"); err != nil {
		t.Fatalf("Mark fresh: %v", err)
	}

	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected sweep to leave 1 key, got %d", n)
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	store, err := Open("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Mark("persisted"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = Open("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if seen, err := store.Seen("persisted"); err != nil || !seen {
		t.Fatalf("expected key after reopen, seen=%v err=%v", seen, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	if _, err := Open("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := Open("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}

	store, err := Open("none", "", Options{})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if err := store.Mark("x"); err != nil {
		t.Fatalf("noop Mark: %v", err)
	}
	if seen, _ := store.Seen("x"); seen {
		t.Fatalf("noop store never reports keys as seen")
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	clock := newClock()
	store, err := Open("memory", "", Options{TTL: time.Minute, Now: clock.Now})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if err := store.Mark("k"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, _ := store.Seen("k"); !seen {
		t.Fatalf("expected key seen")
	}
	clock.Advance(2 * time.Minute)
	if seen, _ := store.Seen("k"); seen {
		t.Fatalf("expected key expired")
	}
}
