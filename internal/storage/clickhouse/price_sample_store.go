package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
// Every sample the monitor consumes is archived here so outcomes can be
// recomputed offline against a new label version.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// InsertBulk appends samples. Append-only; MergeTree does not enforce
// uniqueness and the monitor never replays a sample it already persisted.
func (s *PriceSampleStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (
			message_id, mint, observed_at_ms, price_usd, multiple
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		err = batch.Append(
			p.MessageID, p.Mint, uint64(p.ObservedAt.UnixMilli()),
			p.PriceUSD, p.Multiple,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMessageID retrieves all samples for a message, ordered by observed_at ASC.
func (s *PriceSampleStore) GetByMessageID(ctx context.Context, messageID string) ([]*domain.PriceSample, error) {
	query := `
		SELECT message_id, mint, observed_at_ms, price_usd, multiple
		FROM price_samples
		WHERE message_id = ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("query samples by message id: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// scanPriceSamples scans multiple rows.
func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		var observedMs uint64

		if err := rows.Scan(&p.MessageID, &p.Mint, &observedMs, &p.PriceUSD, &p.Multiple); err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		p.ObservedAt = time.UnixMilli(int64(observedMs)).UTC()
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
