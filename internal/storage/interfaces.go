package storage

import (
	"context"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
)

// RawMessageStore provides read access to raw_messages. The ingestion
// collaborator owns writes; the engine never mutates these rows.
type RawMessageStore interface {
	// GetByID retrieves a message by snowflake ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, messageID string) (*domain.RawMessage, error)

	// ListUnresolved retrieves up to limit messages that have no
	// mint_resolutions row yet, newest first.
	ListUnresolved(ctx context.Context, limit int) ([]*domain.RawMessage, error)
}

// ResolutionStore provides access to mint_resolutions storage.
type ResolutionStore interface {
	// Insert adds a resolution. Returns ErrDuplicateKey if the message
	// already has one: resolutions are write-once.
	Insert(ctx context.Context, r *domain.MintResolution) error

	// GetByID retrieves a resolution by message ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, messageID string) (*domain.MintResolution, error)
}

// AcceptanceStore provides access to acceptance_status storage.
type AcceptanceStore interface {
	// Insert creates a PENDING row for a freshly resolved call.
	// Returns ErrDuplicateKey if the message already has one.
	Insert(ctx context.Context, a *domain.AcceptanceStatus) error

	// GetByID retrieves a status row. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, messageID string) (*domain.AcceptanceStatus, error)

	// ListPending retrieves up to limit PENDING rows whose lease is free or
	// expired as of now, oldest first.
	ListPending(ctx context.Context, now time.Time, limit int) ([]*domain.AcceptanceStatus, error)

	// Finalize transitions PENDING to a terminal status exactly once.
	// Returns ErrTerminal if the row is already terminal, ErrNotFound if missing.
	Finalize(ctx context.Context, messageID string, status domain.AcceptanceState, reason *domain.ReasonCode, evidence map[string]any) error

	// Touch bumps last_checked_at and merges evidence after a non-terminal
	// evaluation pass.
	Touch(ctx context.Context, messageID string, checkedAt time.Time, evidence map[string]any) error

	// TryClaim atomically stamps the lease iff it is unheld or expired as
	// of now. Returns true on success. This is the single linearization
	// point for validator workers.
	TryClaim(ctx context.Context, messageID, workerID string, now, expires time.Time) (bool, error)

	// Release clears the lease regardless of holder.
	Release(ctx context.Context, messageID string) error
}

// MonitorStateStore provides access to monitor_state storage.
type MonitorStateStore interface {
	// Insert creates the monitoring checkpoint for a newly accepted call.
	// Returns ErrDuplicateKey if monitoring already started.
	Insert(ctx context.Context, m *domain.MonitorState) error

	// GetByID retrieves a checkpoint. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, messageID string) (*domain.MonitorState, error)

	// ListDue retrieves up to limit rows with no finalized outcome whose
	// lease is free or expired as of now, oldest last_seen first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.MonitorState, error)

	// Update persists the checkpoint after applying samples. Domain fields
	// only; the lease is untouched.
	Update(ctx context.Context, m *domain.MonitorState) error

	// Delete removes the checkpoint after outcome finalization.
	Delete(ctx context.Context, messageID string) error

	// TryClaim atomically stamps the lease iff it is unheld or expired.
	TryClaim(ctx context.Context, messageID, workerID string, now, expires time.Time) (bool, error)

	// Release clears the lease regardless of holder.
	Release(ctx context.Context, messageID string) error
}

// OutcomeStore provides access to outcomes_24h storage.
type OutcomeStore interface {
	// Insert adds a finalized outcome. Returns ErrDuplicateKey if
	// (message_id, version) exists: history is never overwritten.
	Insert(ctx context.Context, o *domain.Outcome) error

	// GetByID retrieves the outcome for a message at a given version.
	// Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, messageID string, version int) (*domain.Outcome, error)

	// Exists reports whether any outcome version exists for the message.
	Exists(ctx context.Context, messageID string) (bool, error)

	// ListVersion retrieves all outcomes written at the given version,
	// ordered by message ID.
	ListVersion(ctx context.Context, version int) ([]*domain.Outcome, error)
}

// PriceSampleStore archives every price sample the monitor consumed.
type PriceSampleStore interface {
	// InsertBulk appends samples. Append-only.
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetByMessageID retrieves all samples for a message, ordered by
	// observed_at ASC.
	GetByMessageID(ctx context.Context, messageID string) ([]*domain.PriceSample, error)
}

// FeatureSnapshotStore provides access to feature_snapshots storage.
type FeatureSnapshotStore interface {
	// Insert appends a snapshot. Append-only.
	Insert(ctx context.Context, f *domain.FeatureSnapshot) error

	// GetByMessageID retrieves all snapshots for a message, ordered by
	// captured_at ASC.
	GetByMessageID(ctx context.Context, messageID string) ([]*domain.FeatureSnapshot, error)
}
