package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Outcome // keyed by message_id|version
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]*domain.Outcome),
	}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

func outcomeKey(messageID string, version int) string {
	return fmt.Sprintf("%s|%d", messageID, version)
}

// Insert adds a finalized outcome. Returns ErrDuplicateKey if
// (message_id, version) exists.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.Outcome) error {
	if o == nil || o.MessageID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := outcomeKey(o.MessageID, o.Version)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	outCopy := *o
	s.data[key] = &outCopy
	return nil
}

// GetByID retrieves the outcome for a message at a given version.
func (s *OutcomeStore) GetByID(_ context.Context, messageID string, version int) (*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[outcomeKey(messageID, version)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	outCopy := *o
	return &outCopy, nil
}

// Exists reports whether any outcome version exists for the message.
func (s *OutcomeStore) Exists(_ context.Context, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.data {
		if o.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

// ListVersion retrieves all outcomes written at the given version.
func (s *OutcomeStore) ListVersion(_ context.Context, version int) ([]*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var outcomes []*domain.Outcome
	for _, o := range s.data {
		if o.Version == version {
			outCopy := *o
			outcomes = append(outcomes, &outCopy)
		}
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].MessageID < outcomes[j].MessageID
	})
	return outcomes, nil
}
