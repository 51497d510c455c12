package storage

import (
	"sync"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// ImageStore holds the per-record resolved-image state for records that are
// currently visible. State is in-memory only and is destroyed when a record
// leaves the visible set.
type ImageStore struct {
	states map[string]*models.ImageState
	mu     sync.RWMutex
}

func New() *ImageStore {
	return &ImageStore{
		states: make(map[string]*models.ImageState),
	}
}

func (s *ImageStore) Get(recordID string) (*models.ImageState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, exists := s.states[recordID]
	return state, exists
}

func (s *ImageStore) Set(recordID string, state *models.ImageState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[recordID] = state
}

func (s *ImageStore) GetAll() map[string]*models.ImageState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*models.ImageState, len(s.states))
	for k, v := range s.states {
		result[k] = v
	}
	return result
}

func (s *ImageStore) Delete(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, recordID)
}
