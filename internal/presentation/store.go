// internal/presentation/store.go
package presentation

import (
	"sync"

	"github.com/google/uuid"
)

// Store keeps the running presentations of this process in memory.
type Store struct {
	mu            sync.Mutex
	presentations map[uuid.UUID]*Presentation
}

func NewStore() *Store {
	return &Store{
		presentations: make(map[uuid.UUID]*Presentation),
	}
}

func (s *Store) Add(p *Presentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presentations[p.ID] = p
}

func (s *Store) Get(id uuid.UUID) (*Presentation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.presentations[id]
	return p, exists
}

// Remove drops a presentation and closes it. It reports whether it was present.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	p, exists := s.presentations[id]
	delete(s.presentations, id)
	s.mu.Unlock()

	if exists {
		p.Close()
	}
	return exists
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.presentations)
}

// CloseAll closes and forgets every presentation. Used on shutdown.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.presentations
	s.presentations = make(map[uuid.UUID]*Presentation)
	s.mu.Unlock()

	for _, p := range all {
		p.Close()
	}
}
