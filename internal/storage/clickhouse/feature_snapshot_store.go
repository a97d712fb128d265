package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// FeatureSnapshotStore implements storage.FeatureSnapshotStore using ClickHouse.
type FeatureSnapshotStore struct {
	conn *Conn
}

// NewFeatureSnapshotStore creates a new FeatureSnapshotStore.
func NewFeatureSnapshotStore(conn *Conn) *FeatureSnapshotStore {
	return &FeatureSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureSnapshotStore = (*FeatureSnapshotStore)(nil)

// Insert appends a snapshot. Append-only.
func (s *FeatureSnapshotStore) Insert(ctx context.Context, f *domain.FeatureSnapshot) error {
	query := `
		INSERT INTO feature_snapshots (
			message_id, mint, captured_at_ms, feature_version,
			liquidity_usd, volume_24h_usd, price_change_5m, price_change_1h,
			buys_24h, sells_24h, price_usd
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		f.MessageID, f.Mint, uint64(f.CapturedAt.UnixMilli()), f.FeatureVersion,
		f.LiquidityUSD, f.Volume24hUSD, f.PriceChange5m, f.PriceChange1h,
		f.Buys24h, f.Sells24h, f.PriceUSD,
	)
	if err != nil {
		return fmt.Errorf("insert feature snapshot: %w", err)
	}
	return nil
}

// GetByMessageID retrieves all snapshots for a message, ordered by captured_at ASC.
func (s *FeatureSnapshotStore) GetByMessageID(ctx context.Context, messageID string) ([]*domain.FeatureSnapshot, error) {
	query := `
		SELECT message_id, mint, captured_at_ms, feature_version,
		       liquidity_usd, volume_24h_usd, price_change_5m, price_change_1h,
		       buys_24h, sells_24h, price_usd
		FROM feature_snapshots
		WHERE message_id = ?
		ORDER BY captured_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by message id: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.FeatureSnapshot
	for rows.Next() {
		var f domain.FeatureSnapshot
		var capturedMs uint64

		err := rows.Scan(
			&f.MessageID, &f.Mint, &capturedMs, &f.FeatureVersion,
			&f.LiquidityUSD, &f.Volume24hUSD, &f.PriceChange5m, &f.PriceChange1h,
			&f.Buys24h, &f.Sells24h, &f.PriceUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature snapshot row: %w", err)
		}

		f.CapturedAt = time.UnixMilli(int64(capturedMs)).UTC()
		snaps = append(snaps, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature snapshot rows: %w", err)
	}

	return snaps, nil
}
