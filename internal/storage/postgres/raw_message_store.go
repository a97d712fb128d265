package postgres

import (
	"context"
	"fmt"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// RawMessageStore implements storage.RawMessageStore using PostgreSQL.
// The scraper owns writes to raw_messages; this store is read-only.
type RawMessageStore struct {
	pool *Pool
}

// NewRawMessageStore creates a new RawMessageStore.
func NewRawMessageStore(pool *Pool) *RawMessageStore {
	return &RawMessageStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawMessageStore = (*RawMessageStore)(nil)

// GetByID retrieves a message by snowflake ID. Returns ErrNotFound if not exists.
func (s *RawMessageStore) GetByID(ctx context.Context, messageID string) (*domain.RawMessage, error) {
	query := `
		SELECT message_id, posted_at, payload
		FROM raw_messages
		WHERE message_id = $1
	`

	var m domain.RawMessage
	err := s.pool.QueryRow(ctx, query, messageID).Scan(&m.MessageID, &m.PostedAt, &m.Payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get raw message by id: %w", err)
	}
	m.PostedAt = m.PostedAt.UTC()
	return &m, nil
}

// ListUnresolved retrieves up to limit messages without a resolution row,
// newest first.
func (s *RawMessageStore) ListUnresolved(ctx context.Context, limit int) ([]*domain.RawMessage, error) {
	query := `
		SELECT rm.message_id, rm.posted_at, rm.payload
		FROM raw_messages rm
		LEFT JOIN mint_resolutions mr ON rm.message_id = mr.message_id
		WHERE mr.message_id IS NULL
		ORDER BY rm.posted_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unresolved messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.RawMessage
	for rows.Next() {
		var m domain.RawMessage
		if err := rows.Scan(&m.MessageID, &m.PostedAt, &m.Payload); err != nil {
			return nil, fmt.Errorf("scan raw message row: %w", err)
		}
		m.PostedAt = m.PostedAt.UTC()
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw message rows: %w", err)
	}

	return messages, nil
}
