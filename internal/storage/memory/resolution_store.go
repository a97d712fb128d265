package memory

import (
	"context"
	"sync"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// ResolutionStore is an in-memory implementation of storage.ResolutionStore.
type ResolutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MintResolution

	// raw, when set, is told about inserts so ListUnresolved stays accurate.
	raw *RawMessageStore
}

// NewResolutionStore creates a new in-memory resolution store.
// rawStore may be nil.
func NewResolutionStore(rawStore *RawMessageStore) *ResolutionStore {
	return &ResolutionStore{
		data: make(map[string]*domain.MintResolution),
		raw:  rawStore,
	}
}

// Compile-time interface check.
var _ storage.ResolutionStore = (*ResolutionStore)(nil)

// Insert adds a resolution. Returns ErrDuplicateKey if the message already
// has one: resolutions are write-once.
func (s *ResolutionStore) Insert(_ context.Context, r *domain.MintResolution) error {
	if r == nil || r.MessageID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.MessageID]; exists {
		return storage.ErrDuplicateKey
	}

	resCopy := *r
	s.data[r.MessageID] = &resCopy
	if s.raw != nil {
		s.raw.MarkResolved(r.MessageID)
	}
	return nil
}

// GetByID retrieves a resolution by message ID. Returns ErrNotFound if not exists.
func (s *ResolutionStore) GetByID(_ context.Context, messageID string) (*domain.MintResolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[messageID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	resCopy := *r
	return &resCopy, nil
}
