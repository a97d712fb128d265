package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// MonitorStateStore is an in-memory implementation of storage.MonitorStateStore.
type MonitorStateStore struct {
	mu   sync.Mutex
	data map[string]*domain.MonitorState
}

// NewMonitorStateStore creates a new in-memory monitor state store.
func NewMonitorStateStore() *MonitorStateStore {
	return &MonitorStateStore{
		data: make(map[string]*domain.MonitorState),
	}
}

// Compile-time interface check.
var _ storage.MonitorStateStore = (*MonitorStateStore)(nil)

// Insert creates the monitoring checkpoint for a newly accepted call.
func (s *MonitorStateStore) Insert(_ context.Context, m *domain.MonitorState) error {
	if m == nil || m.MessageID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MessageID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[m.MessageID] = copyMonitorState(m)
	return nil
}

// GetByID retrieves a checkpoint. Returns ErrNotFound if not exists.
func (s *MonitorStateStore) GetByID(_ context.Context, messageID string) (*domain.MonitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[messageID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyMonitorState(m), nil
}

// ListDue retrieves up to limit rows whose lease is free or expired as of
// now, least recently sampled first.
func (s *MonitorStateStore) ListDue(_ context.Context, now time.Time, limit int) ([]*domain.MonitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.MonitorState
	for _, m := range s.data {
		if !m.Claim.Held(now) {
			result = append(result, copyMonitorState(m))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeenAt.Before(result[j].LastSeenAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Update persists the checkpoint after applying samples. Lease untouched.
func (s *MonitorStateStore) Update(_ context.Context, m *domain.MonitorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[m.MessageID]
	if !exists {
		return storage.ErrNotFound
	}

	updated := copyMonitorState(m)
	updated.Claim = existing.Claim
	s.data[m.MessageID] = updated
	return nil
}

// Delete removes the checkpoint after outcome finalization.
func (s *MonitorStateStore) Delete(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, messageID)
	return nil
}

// TryClaim atomically stamps the lease iff it is unheld or expired.
func (s *MonitorStateStore) TryClaim(_ context.Context, messageID, workerID string, now, expires time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[messageID]
	if !exists {
		return false, nil
	}
	if m.Claim.Held(now) {
		return false, nil
	}

	m.Claim.ClaimedBy = &workerID
	expiresCopy := expires
	m.Claim.ClaimExpires = &expiresCopy
	return true, nil
}

// Release clears the lease regardless of holder.
func (s *MonitorStateStore) Release(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, exists := s.data[messageID]; exists {
		m.Claim = domain.Lease{}
	}
	return nil
}

func copyMonitorState(m *domain.MonitorState) *domain.MonitorState {
	stateCopy := *m
	if m.AboveSince != nil {
		t := *m.AboveSince
		stateCopy.AboveSince = &t
	}
	if m.ExecCheckedAt != nil {
		t := *m.ExecCheckedAt
		stateCopy.ExecCheckedAt = &t
	}
	return &stateCopy
}
