package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// MonitorStateStore implements storage.MonitorStateStore using PostgreSQL.
type MonitorStateStore struct {
	pool *Pool
}

// NewMonitorStateStore creates a new MonitorStateStore.
func NewMonitorStateStore(pool *Pool) *MonitorStateStore {
	return &MonitorStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MonitorStateStore = (*MonitorStateStore)(nil)

const monitorColumns = `
	message_id, mint, entry_price_usd, started_at, max_price_usd,
	above_since, time_above_mult_s, exec_checked_at, exec_passed, sustained,
	last_seen_at, claimed_by, claim_expires
`

// Insert creates the monitoring checkpoint for a newly accepted call.
func (s *MonitorStateStore) Insert(ctx context.Context, m *domain.MonitorState) error {
	query := `
		INSERT INTO monitor_state (
			message_id, mint, entry_price_usd, started_at, max_price_usd,
			above_since, time_above_mult_s, exec_checked_at, exec_passed, sustained, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		m.MessageID,
		m.Mint,
		m.EntryPrice,
		m.StartedAt,
		m.MaxPrice,
		m.AboveSince,
		m.AccumAboveSec,
		m.ExecCheckedAt,
		m.ExecPassed,
		m.Sustained,
		m.LastSeenAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isIntegrityError(err) {
			return fmt.Errorf("insert monitor state for missing acceptance %s: %w", m.MessageID, storage.ErrInvalidInput)
		}
		return fmt.Errorf("insert monitor state: %w", err)
	}
	return nil
}

// GetByID retrieves a checkpoint. Returns ErrNotFound if not exists.
func (s *MonitorStateStore) GetByID(ctx context.Context, messageID string) (*domain.MonitorState, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitor_state WHERE message_id = $1`

	m, err := scanMonitorState(s.pool.QueryRow(ctx, query, messageID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get monitor state by id: %w", err)
	}
	return m, nil
}

// ListDue retrieves up to limit rows whose lease is free or expired as of
// now, least recently sampled first. Finalized rows are deleted, so every
// remaining row is still inside its window.
func (s *MonitorStateStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.MonitorState, error) {
	query := `
		SELECT ` + monitorColumns + `
		FROM monitor_state
		WHERE claimed_by IS NULL OR claim_expires IS NULL OR claim_expires <= $1
		ORDER BY last_seen_at ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due monitor states: %w", err)
	}
	defer rows.Close()

	var result []*domain.MonitorState
	for rows.Next() {
		m, err := scanMonitorState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor state row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitor state rows: %w", err)
	}

	return result, nil
}

// Update persists the checkpoint after applying samples. Lease untouched.
func (s *MonitorStateStore) Update(ctx context.Context, m *domain.MonitorState) error {
	query := `
		UPDATE monitor_state
		SET max_price_usd = $2, above_since = $3, time_above_mult_s = $4,
		    exec_checked_at = $5, exec_passed = $6, sustained = $7, last_seen_at = $8
		WHERE message_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		m.MessageID,
		m.MaxPrice,
		m.AboveSince,
		m.AccumAboveSec,
		m.ExecCheckedAt,
		m.ExecPassed,
		m.Sustained,
		m.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("update monitor state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the checkpoint after outcome finalization.
func (s *MonitorStateStore) Delete(ctx context.Context, messageID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM monitor_state WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("delete monitor state: %w", err)
	}
	return nil
}

// TryClaim atomically stamps the lease iff it is unheld or expired.
func (s *MonitorStateStore) TryClaim(ctx context.Context, messageID, workerID string, now, expires time.Time) (bool, error) {
	query := `
		UPDATE monitor_state
		SET claimed_by = $2, claim_expires = $3
		WHERE message_id = $1
		  AND (claimed_by IS NULL OR claim_expires IS NULL OR claim_expires <= $4)
	`

	tag, err := s.pool.Exec(ctx, query, messageID, workerID, expires, now)
	if err != nil {
		return false, fmt.Errorf("claim monitor state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release clears the lease regardless of holder.
func (s *MonitorStateStore) Release(ctx context.Context, messageID string) error {
	query := `
		UPDATE monitor_state
		SET claimed_by = NULL, claim_expires = NULL
		WHERE message_id = $1
	`

	if _, err := s.pool.Exec(ctx, query, messageID); err != nil {
		return fmt.Errorf("release monitor state claim: %w", err)
	}
	return nil
}

// scanMonitorState scans a single row into a MonitorState.
func scanMonitorState(row pgx.Row) (*domain.MonitorState, error) {
	var m domain.MonitorState

	err := row.Scan(
		&m.MessageID,
		&m.Mint,
		&m.EntryPrice,
		&m.StartedAt,
		&m.MaxPrice,
		&m.AboveSince,
		&m.AccumAboveSec,
		&m.ExecCheckedAt,
		&m.ExecPassed,
		&m.Sustained,
		&m.LastSeenAt,
		&m.Claim.ClaimedBy,
		&m.Claim.ClaimExpires,
	)
	if err != nil {
		return nil, err
	}

	m.StartedAt = m.StartedAt.UTC()
	m.LastSeenAt = m.LastSeenAt.UTC()
	if m.AboveSince != nil {
		t := m.AboveSince.UTC()
		m.AboveSince = &t
	}
	if m.ExecCheckedAt != nil {
		t := m.ExecCheckedAt.UTC()
		m.ExecCheckedAt = &t
	}
	return &m, nil
}
