package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// AcceptanceStore is an in-memory implementation of storage.AcceptanceStore.
// TryClaim performs the compare-and-set under the store mutex, matching the
// linearizability of the single-UPDATE PostgreSQL implementation.
type AcceptanceStore struct {
	mu   sync.Mutex
	data map[string]*domain.AcceptanceStatus
}

// NewAcceptanceStore creates a new in-memory acceptance store.
func NewAcceptanceStore() *AcceptanceStore {
	return &AcceptanceStore{
		data: make(map[string]*domain.AcceptanceStatus),
	}
}

// Compile-time interface check.
var _ storage.AcceptanceStore = (*AcceptanceStore)(nil)

// Insert creates a PENDING row for a freshly resolved call.
func (s *AcceptanceStore) Insert(_ context.Context, a *domain.AcceptanceStatus) error {
	if a == nil || a.MessageID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.MessageID]; exists {
		return storage.ErrDuplicateKey
	}

	accCopy := copyAcceptance(a)
	if accCopy.Evidence == nil {
		accCopy.Evidence = map[string]any{}
	}
	s.data[a.MessageID] = accCopy
	return nil
}

// GetByID retrieves a status row. Returns ErrNotFound if not exists.
func (s *AcceptanceStore) GetByID(_ context.Context, messageID string) (*domain.AcceptanceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[messageID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAcceptance(a), nil
}

// ListPending retrieves up to limit PENDING rows whose lease is free or
// expired as of now, oldest first.
func (s *AcceptanceStore) ListPending(_ context.Context, now time.Time, limit int) ([]*domain.AcceptanceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.AcceptanceStatus
	for _, a := range s.data {
		if a.Status == domain.StatusPending && !a.Claim.Held(now) {
			result = append(result, copyAcceptance(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FirstSeen.Before(result[j].FirstSeen)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Finalize transitions PENDING to a terminal status exactly once.
func (s *AcceptanceStore) Finalize(_ context.Context, messageID string, status domain.AcceptanceState, reason *domain.ReasonCode, evidence map[string]any) error {
	if !status.Terminal() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[messageID]
	if !exists {
		return storage.ErrNotFound
	}
	if a.Status.Terminal() {
		return storage.ErrTerminal
	}

	a.Status = status
	if reason != nil {
		rc := *reason
		a.Reason = &rc
	}
	mergeEvidence(a, evidence)
	a.LastCheckedAt = time.Now().UTC()
	return nil
}

// Touch bumps last_checked_at and merges evidence after a non-terminal pass.
func (s *AcceptanceStore) Touch(_ context.Context, messageID string, checkedAt time.Time, evidence map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[messageID]
	if !exists {
		return storage.ErrNotFound
	}

	a.LastCheckedAt = checkedAt
	mergeEvidence(a, evidence)
	return nil
}

// TryClaim atomically stamps the lease iff it is unheld or expired.
func (s *AcceptanceStore) TryClaim(_ context.Context, messageID, workerID string, now, expires time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[messageID]
	if !exists {
		return false, nil
	}
	if a.Claim.Held(now) {
		return false, nil
	}

	a.Claim.ClaimedBy = &workerID
	expiresCopy := expires
	a.Claim.ClaimExpires = &expiresCopy
	return true, nil
}

// Release clears the lease regardless of holder.
func (s *AcceptanceStore) Release(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, exists := s.data[messageID]; exists {
		a.Claim = domain.Lease{}
	}
	return nil
}

func copyAcceptance(a *domain.AcceptanceStatus) *domain.AcceptanceStatus {
	accCopy := *a
	if a.Reason != nil {
		rc := *a.Reason
		accCopy.Reason = &rc
	}
	if a.Evidence != nil {
		ev := make(map[string]any, len(a.Evidence))
		for k, v := range a.Evidence {
			ev[k] = v
		}
		accCopy.Evidence = ev
	}
	return &accCopy
}

func mergeEvidence(a *domain.AcceptanceStatus, evidence map[string]any) {
	if a.Evidence == nil {
		a.Evidence = map[string]any{}
	}
	for k, v := range evidence {
		a.Evidence[k] = v
	}
}
