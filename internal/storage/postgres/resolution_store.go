package postgres

import (
	"context"
	"fmt"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// ResolutionStore implements storage.ResolutionStore using PostgreSQL.
type ResolutionStore struct {
	pool *Pool
}

// NewResolutionStore creates a new ResolutionStore.
func NewResolutionStore(pool *Pool) *ResolutionStore {
	return &ResolutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResolutionStore = (*ResolutionStore)(nil)

// Insert adds a resolution. Returns ErrDuplicateKey if the message already
// has one: resolutions are write-once.
func (s *ResolutionStore) Insert(ctx context.Context, r *domain.MintResolution) error {
	query := `
		INSERT INTO mint_resolutions (
			message_id, resolved, mint, source_url, source_type, confidence, error, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.MessageID,
		r.Resolved,
		r.Mint,
		r.SourceURL,
		string(r.SourceType),
		r.Confidence,
		r.Error,
		r.ResolvedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isIntegrityError(err) {
			return fmt.Errorf("insert resolution for missing message %s: %w", r.MessageID, storage.ErrInvalidInput)
		}
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

// GetByID retrieves a resolution by message ID. Returns ErrNotFound if not exists.
func (s *ResolutionStore) GetByID(ctx context.Context, messageID string) (*domain.MintResolution, error) {
	query := `
		SELECT message_id, resolved, mint, source_url, source_type, confidence, error, resolved_at
		FROM mint_resolutions
		WHERE message_id = $1
	`

	var r domain.MintResolution
	var sourceType string
	err := s.pool.QueryRow(ctx, query, messageID).Scan(
		&r.MessageID,
		&r.Resolved,
		&r.Mint,
		&r.SourceURL,
		&sourceType,
		&r.Confidence,
		&r.Error,
		&r.ResolvedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get resolution by id: %w", err)
	}

	r.SourceType = domain.SourceType(sourceType)
	r.ResolvedAt = r.ResolvedAt.UTC()
	return &r, nil
}
