package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
	"github.com/samvad-hq/samvad-news-reader/internal/paging"
)

// Observer receives session lifecycle events. metrics.Metrics satisfies it.
type Observer interface {
	SessionOpened()
	SessionClosed()
	Retried()
}

type nopObserver struct{}

func (nopObserver) SessionOpened() {}
func (nopObserver) SessionClosed() {}
func (nopObserver) Retried()       {}

// ManagerOptions configures every session created by a Manager.
type ManagerOptions struct {
	Fetcher   paging.Fetcher
	Strategy  Strategy
	PageSize  int
	Log       logger.Logger
	Parent    context.Context
	Listeners ListenerFactory
	Observer  Observer
}

// Manager is the registry of live sessions keyed by id.
type Manager struct {
	opts     ManagerOptions
	log      logger.Logger
	observer Observer

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts ManagerOptions) *Manager {
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Manager{
		opts:     opts,
		log:      logger.Ensure(opts.Log),
		observer: observer,
		sessions: make(map[string]*Session),
	}
}

// DefaultStrategy returns the strategy used when Create is given none.
func (m *Manager) DefaultStrategy() Strategy {
	if m.opts.Strategy == "" {
		return StrategyPage
	}
	return m.opts.Strategy
}

// Create registers a new session, selects src and starts its first load.
// An empty strategy uses the manager default.
func (m *Manager) Create(src domain.Source, strategy Strategy) (*Session, error) {
	if strategy == "" {
		strategy = m.DefaultStrategy()
	}
	s, err := New(Options{
		ID:        uuid.NewString(),
		Fetcher:   m.opts.Fetcher,
		Strategy:  strategy,
		PageSize:  m.opts.PageSize,
		Log:       m.log,
		Parent:    m.opts.Parent,
		Listeners: m.opts.Listeners,
		OnRetry:   m.observer.Retried,
	})
	if err != nil {
		return nil, err
	}
	if err := s.SelectSource(src); err != nil {
		s.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.observer.SessionOpened()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	m.observer.SessionClosed()
	return nil
}

// IDs lists live session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session and waits for their in-flight fetches to settle.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		m.observer.SessionClosed()
	}
	for _, s := range sessions {
		s.waitClosed()
	}
	if len(sessions) > 0 {
		m.log.InfoObj("sessions closed", "session_manager", map[string]any{"count": len(sessions)})
	}
}
