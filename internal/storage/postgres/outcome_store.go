package postgres

import (
	"context"
	"fmt"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
// Outcome rows are append-only: a re-labeling run writes a new version.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert adds a finalized outcome. Returns ErrDuplicateKey if
// (message_id, version) exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.Outcome) error {
	query := `
		INSERT INTO outcomes_24h (
			message_id, outcomes_version, entry_price_usd, max_24h_price_usd,
			touch_10x, sustained_10x, win, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		o.MessageID,
		o.Version,
		o.EntryPrice,
		o.MaxPrice24h,
		o.Touch10x,
		o.Sustained10x,
		o.Win,
		o.ComputedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// GetByID retrieves the outcome for a message at a given version.
func (s *OutcomeStore) GetByID(ctx context.Context, messageID string, version int) (*domain.Outcome, error) {
	query := `
		SELECT message_id, outcomes_version, entry_price_usd, max_24h_price_usd,
		       touch_10x, sustained_10x, win, computed_at
		FROM outcomes_24h
		WHERE message_id = $1 AND outcomes_version = $2
	`

	var o domain.Outcome
	err := s.pool.QueryRow(ctx, query, messageID, version).Scan(
		&o.MessageID,
		&o.Version,
		&o.EntryPrice,
		&o.MaxPrice24h,
		&o.Touch10x,
		&o.Sustained10x,
		&o.Win,
		&o.ComputedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get outcome by id: %w", err)
	}

	o.ComputedAt = o.ComputedAt.UTC()
	return &o, nil
}

// Exists reports whether any outcome version exists for the message.
func (s *OutcomeStore) Exists(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM outcomes_24h WHERE message_id = $1)`, messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check outcome exists: %w", err)
	}
	return exists, nil
}

// ListVersion retrieves all outcomes written at the given version.
func (s *OutcomeStore) ListVersion(ctx context.Context, version int) ([]*domain.Outcome, error) {
	query := `
		SELECT message_id, outcomes_version, entry_price_usd, max_24h_price_usd,
		       touch_10x, sustained_10x, win, computed_at
		FROM outcomes_24h
		WHERE outcomes_version = $1
		ORDER BY message_id
	`

	rows, err := s.pool.Query(ctx, query, version)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		if err := rows.Scan(
			&o.MessageID,
			&o.Version,
			&o.EntryPrice,
			&o.MaxPrice24h,
			&o.Touch10x,
			&o.Sustained10x,
			&o.Win,
			&o.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.ComputedAt = o.ComputedAt.UTC()
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}
