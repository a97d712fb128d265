package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
type PriceSampleStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PriceSample // keyed by message_id
}

// NewPriceSampleStore creates a new in-memory price sample store.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{
		data: make(map[string][]*domain.PriceSample),
	}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// InsertBulk appends samples. Append-only.
func (s *PriceSampleStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range samples {
		if p == nil || p.MessageID == "" {
			return storage.ErrInvalidInput
		}
		sampleCopy := *p
		s.data[p.MessageID] = append(s.data[p.MessageID], &sampleCopy)
	}
	return nil
}

// GetByMessageID retrieves all samples for a message, ordered by observed_at ASC.
func (s *PriceSampleStore) GetByMessageID(_ context.Context, messageID string) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.data[messageID]
	result := make([]*domain.PriceSample, 0, len(samples))
	for _, p := range samples {
		sampleCopy := *p
		result = append(result, &sampleCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt.Before(result[j].ObservedAt)
	})
	return result, nil
}

// FeatureSnapshotStore is an in-memory implementation of storage.FeatureSnapshotStore.
type FeatureSnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.FeatureSnapshot
}

// NewFeatureSnapshotStore creates a new in-memory feature snapshot store.
func NewFeatureSnapshotStore() *FeatureSnapshotStore {
	return &FeatureSnapshotStore{
		data: make(map[string][]*domain.FeatureSnapshot),
	}
}

// Compile-time interface check.
var _ storage.FeatureSnapshotStore = (*FeatureSnapshotStore)(nil)

// Insert appends a snapshot. Append-only.
func (s *FeatureSnapshotStore) Insert(_ context.Context, f *domain.FeatureSnapshot) error {
	if f == nil || f.MessageID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *f
	s.data[f.MessageID] = append(s.data[f.MessageID], &snapCopy)
	return nil
}

// GetByMessageID retrieves all snapshots for a message, ordered by captured_at ASC.
func (s *FeatureSnapshotStore) GetByMessageID(_ context.Context, messageID string) ([]*domain.FeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.data[messageID]
	result := make([]*domain.FeatureSnapshot, 0, len(snaps))
	for _, f := range snaps {
		snapCopy := *f
		result = append(result, &snapCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt.Before(result[j].CapturedAt)
	})
	return result, nil
}
