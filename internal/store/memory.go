package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BTreeMap/Simsar/internal/models"
)

// InMemoryStore keeps encoded snapshots in a map. It is safe for concurrent use.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]byte)}
}

// Create implements Store.
func (s *InMemoryStore) Create(ctx context.Context, snap *models.SessionSnapshot) error {
	if err := validateID(snap.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[snap.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, snap.ID)
	}
	stamp(snap)
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.sessions[snap.ID] = data
	return nil
}

// Get implements Store.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	s.mu.Lock()
	data, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeSnapshot(data)
}

// Update implements Store.
func (s *InMemoryStore) Update(ctx context.Context, snap *models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[snap.ID]
	if !ok {
		return wrapNotFound(snap.ID)
	}
	stored, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	if stored.Version != snap.Version {
		return fmt.Errorf("%w: %s has version %d, got %d", ErrVersionConflict, snap.ID, stored.Version, snap.Version)
	}
	next := *snap
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if data, err = encodeSnapshot(&next); err != nil {
		return err
	}
	s.sessions[snap.ID] = data
	*snap = next
	return nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }
