// internal/room/store.go
package room

import (
	"sync"

	"github.com/google/uuid"
)

// Store manages the rooms of running presentations in memory.
type Store struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[uuid.UUID]*Room),
	}
}

// GetOrCreate returns the room for id, creating it on first use.
func (s *Store) GetOrCreate(id uuid.UUID) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r
	}
	r := New(id)
	s.rooms[id] = r
	return r
}

func (s *Store) Get(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Delete forgets a room. Live connections are closed.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	r, ok := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()

	if ok {
		r.CloseAll()
	}
}
