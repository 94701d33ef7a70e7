// Package migrate implements the library migration engine: concurrently
// searching providers for equivalent content, classifying the results per
// item, and applying the user's decision as one atomic transaction.
package migrate

import (
	"context"
	"errors"
	"sync"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/store"
)

var (
	ErrSearchRunning = errors.New("a migration search is already running")
	ErrNoItems       = errors.New("no items to migrate")
)

// Backupper takes a full-data snapshot before a migration is applied. A
// snapshot failure is a hard stop: the applier never opens its transaction.
type Backupper interface {
	Snapshot(ctx context.Context, label string) (string, error)
}

// ChapterFilter applies the user's content filter policy to a chapter list.
type ChapterFilter interface {
	Filter(chapters []*models.Chapter, providerID string) []*models.Chapter
}

// Session holds the transient per-item migration states for one migration
// run. States live only in memory and are discarded with the session.
type Session struct {
	st     *store.Store
	filter ChapterFilter
	backup Backupper

	mu        sync.Mutex
	states    map[string]models.MigrationState
	order     []string // entry ids in submission order
	searching bool
	cancel    context.CancelFunc
}

// NewSession creates a migration session over the given store.
func NewSession(st *store.Store, filter ChapterFilter, backup Backupper) *Session {
	return &Session{
		st:     st,
		filter: filter,
		backup: backup,
		states: make(map[string]models.MigrationState),
	}
}

// States returns a snapshot of the per-item states, plus the item order.
func (s *Session) States() (map[string]models.MigrationState, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[string]models.MigrationState, len(s.states))
	for id, st := range s.states {
		states[id] = st
	}
	order := make([]string, len(s.order))
	copy(order, s.order)
	return states, order
}

// RemoveItem drops one item from the working set. It has no effect on any
// other item's state.
func (s *Session) RemoveItem(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(entryID)
}

// FilterNonMatches drops every item whose search found nothing.
func (s *Session) FilterNonMatches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, state := range s.states {
		if state.Kind == models.MigrationNoMatches {
			s.dropLocked(id)
		}
	}
}

// Reset discards every item and its state. Called after a migration has
// been applied; a session's states never outlive the run they belong to.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]models.MigrationState)
	s.order = nil
}

func (s *Session) dropLocked(entryID string) {
	if _, ok := s.states[entryID]; !ok {
		return
	}
	delete(s.states, entryID)
	for i, id := range s.order {
		if id == entryID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Cancel stops an in-flight search. In-flight provider calls are abandoned
// and still-pending items keep their idle state; chapter lists already
// persisted by completed items stay persisted.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) setState(entryID string, state models.MigrationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The item may have been removed while its search was running.
	if _, ok := s.states[entryID]; ok {
		s.states[entryID] = state
	}
}

func (s *Session) currentState(entryID string) (models.MigrationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[entryID]
	return state, ok
}
