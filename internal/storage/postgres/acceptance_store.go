package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// AcceptanceStore implements storage.AcceptanceStore using PostgreSQL.
type AcceptanceStore struct {
	pool *Pool
}

// NewAcceptanceStore creates a new AcceptanceStore.
func NewAcceptanceStore(pool *Pool) *AcceptanceStore {
	return &AcceptanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AcceptanceStore = (*AcceptanceStore)(nil)

const acceptanceColumns = `
	message_id, mint, first_seen, status, reason, evidence,
	deadline, last_checked_at, claimed_by, claim_expires
`

// Insert creates a PENDING row for a freshly resolved call.
func (s *AcceptanceStore) Insert(ctx context.Context, a *domain.AcceptanceStatus) error {
	query := `
		INSERT INTO acceptance_status (
			message_id, mint, first_seen, status, reason, evidence, deadline, last_checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	evidence := a.Evidence
	if evidence == nil {
		evidence = map[string]any{}
	}

	_, err := s.pool.Exec(ctx, query,
		a.MessageID,
		a.Mint,
		a.FirstSeen,
		string(a.Status),
		reasonValue(a.Reason),
		evidence,
		a.Deadline,
		a.LastCheckedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isIntegrityError(err) {
			return fmt.Errorf("insert acceptance for missing message %s: %w", a.MessageID, storage.ErrInvalidInput)
		}
		return fmt.Errorf("insert acceptance: %w", err)
	}
	return nil
}

// GetByID retrieves a status row. Returns ErrNotFound if not exists.
func (s *AcceptanceStore) GetByID(ctx context.Context, messageID string) (*domain.AcceptanceStatus, error) {
	query := `SELECT ` + acceptanceColumns + ` FROM acceptance_status WHERE message_id = $1`

	a, err := scanAcceptance(s.pool.QueryRow(ctx, query, messageID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get acceptance by id: %w", err)
	}
	return a, nil
}

// ListPending retrieves up to limit PENDING rows whose lease is free or
// expired as of now, oldest first.
func (s *AcceptanceStore) ListPending(ctx context.Context, now time.Time, limit int) ([]*domain.AcceptanceStatus, error) {
	query := `
		SELECT ` + acceptanceColumns + `
		FROM acceptance_status
		WHERE status = 'PENDING'
		  AND (claimed_by IS NULL OR claim_expires IS NULL OR claim_expires <= $1)
		ORDER BY first_seen ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending acceptances: %w", err)
	}
	defer rows.Close()

	return scanAcceptances(rows)
}

// Finalize transitions PENDING to a terminal status exactly once.
func (s *AcceptanceStore) Finalize(ctx context.Context, messageID string, status domain.AcceptanceState, reason *domain.ReasonCode, evidence map[string]any) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize to non-terminal status %s: %w", status, storage.ErrInvalidInput)
	}

	if evidence == nil {
		evidence = map[string]any{}
	}

	query := `
		UPDATE acceptance_status
		SET status = $2, reason = $3, evidence = evidence || $4, last_checked_at = now()
		WHERE message_id = $1 AND status = 'PENDING'
	`

	tag, err := s.pool.Exec(ctx, query, messageID, string(status), reasonValue(reason), evidence)
	if err != nil {
		return fmt.Errorf("finalize acceptance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already-terminal.
		if _, err := s.GetByID(ctx, messageID); err != nil {
			return err
		}
		return storage.ErrTerminal
	}
	return nil
}

// Touch bumps last_checked_at and merges evidence after a non-terminal pass.
func (s *AcceptanceStore) Touch(ctx context.Context, messageID string, checkedAt time.Time, evidence map[string]any) error {
	if evidence == nil {
		evidence = map[string]any{}
	}

	query := `
		UPDATE acceptance_status
		SET last_checked_at = $2, evidence = evidence || $3
		WHERE message_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, messageID, checkedAt, evidence)
	if err != nil {
		return fmt.Errorf("touch acceptance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TryClaim atomically stamps the lease iff it is unheld or expired as of
// now. A single compare-and-set UPDATE: visible immediately to all workers.
func (s *AcceptanceStore) TryClaim(ctx context.Context, messageID, workerID string, now, expires time.Time) (bool, error) {
	query := `
		UPDATE acceptance_status
		SET claimed_by = $2, claim_expires = $3
		WHERE message_id = $1
		  AND (claimed_by IS NULL OR claim_expires IS NULL OR claim_expires <= $4)
	`

	tag, err := s.pool.Exec(ctx, query, messageID, workerID, expires, now)
	if err != nil {
		return false, fmt.Errorf("claim acceptance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release clears the lease regardless of holder.
func (s *AcceptanceStore) Release(ctx context.Context, messageID string) error {
	query := `
		UPDATE acceptance_status
		SET claimed_by = NULL, claim_expires = NULL
		WHERE message_id = $1
	`

	if _, err := s.pool.Exec(ctx, query, messageID); err != nil {
		return fmt.Errorf("release acceptance claim: %w", err)
	}
	return nil
}

// reasonValue unwraps an optional reason code for binding.
func reasonValue(r *domain.ReasonCode) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// scanAcceptance scans a single row into an AcceptanceStatus.
func scanAcceptance(row pgx.Row) (*domain.AcceptanceStatus, error) {
	var a domain.AcceptanceStatus
	var status string
	var reason *string

	err := row.Scan(
		&a.MessageID,
		&a.Mint,
		&a.FirstSeen,
		&status,
		&reason,
		&a.Evidence,
		&a.Deadline,
		&a.LastCheckedAt,
		&a.Claim.ClaimedBy,
		&a.Claim.ClaimExpires,
	)
	if err != nil {
		return nil, err
	}

	a.Status = domain.AcceptanceState(status)
	if reason != nil {
		rc := domain.ReasonCode(*reason)
		a.Reason = &rc
	}
	a.FirstSeen = a.FirstSeen.UTC()
	a.Deadline = a.Deadline.UTC()
	a.LastCheckedAt = a.LastCheckedAt.UTC()
	return &a, nil
}

// scanAcceptances scans multiple rows into a slice of AcceptanceStatus.
func scanAcceptances(rows pgx.Rows) ([]*domain.AcceptanceStatus, error) {
	var result []*domain.AcceptanceStatus

	for rows.Next() {
		a, err := scanAcceptance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan acceptance row: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate acceptance rows: %w", err)
	}

	return result, nil
}
