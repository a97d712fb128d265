// Package memory provides in-memory store implementations for tests and
// dry runs. Semantics mirror the PostgreSQL stores, including claim CAS.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// RawMessageStore is an in-memory implementation of storage.RawMessageStore.
// Unlike the PostgreSQL store it also accepts writes, so tests can seed it.
type RawMessageStore struct {
	mu       sync.RWMutex
	data     map[string]*domain.RawMessage
	resolved map[string]bool // message IDs with a resolution row
}

// NewRawMessageStore creates a new in-memory raw message store.
func NewRawMessageStore() *RawMessageStore {
	return &RawMessageStore{
		data:     make(map[string]*domain.RawMessage),
		resolved: make(map[string]bool),
	}
}

// Seed adds a message, replacing any existing row. Test helper.
func (s *RawMessageStore) Seed(m *domain.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgCopy := *m
	s.data[m.MessageID] = &msgCopy
}

// MarkResolved excludes a message from ListUnresolved. The resolver runner
// calls this through the store pair; tests may call it directly.
func (s *RawMessageStore) MarkResolved(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved[messageID] = true
}

// GetByID retrieves a message by snowflake ID. Returns ErrNotFound if not exists.
func (s *RawMessageStore) GetByID(_ context.Context, messageID string) (*domain.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[messageID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	msgCopy := *m
	return &msgCopy, nil
}

// ListUnresolved retrieves up to limit messages without a resolution,
// newest first.
func (s *RawMessageStore) ListUnresolved(_ context.Context, limit int) ([]*domain.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawMessage
	for id, m := range s.data {
		if !s.resolved[id] {
			msgCopy := *m
			result = append(result, &msgCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PostedAt.After(result[j].PostedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Compile-time interface check.
var _ storage.RawMessageStore = (*RawMessageStore)(nil)
