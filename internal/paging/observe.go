package paging

import (
	"sync"

	"github.com/samvad-hq/samvad-news-reader/internal/domain"
)

// Update describes a change of the loaded collection.
type Update struct {
	// Added holds the articles appended by this change. For a Reset update it holds
	// the whole collection.
	Added []domain.Article
	// Len is the collection length after the change.
	Len int
	// Reset marks a full replacement (subscription replay or new session).
	Reset bool
}

// Listener observes a loader. Callbacks run on the loader's dispatcher goroutine,
// one at a time and in mutation order.
type Listener interface {
	StateChanged(state NetworkState)
	ArticlesChanged(u Update)
}

// ListenerFuncs adapts plain functions to Listener; nil fields are skipped.
type ListenerFuncs struct {
	OnState    func(NetworkState)
	OnArticles func(Update)
}

func (l ListenerFuncs) StateChanged(s NetworkState) {
	if l.OnState != nil {
		l.OnState(s)
	}
}

func (l ListenerFuncs) ArticlesChanged(u Update) {
	if l.OnArticles != nil {
		l.OnArticles(u)
	}
}

type listenerSet struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]Listener
	order  []int
}

func (s *listenerSet) add(l Listener) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID == nil {
		s.byID = make(map[int]Listener)
	}
	s.nextID++
	s.byID[s.nextID] = l
	s.order = append(s.order, s.nextID)
	return s.nextID
}

func (s *listenerSet) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
