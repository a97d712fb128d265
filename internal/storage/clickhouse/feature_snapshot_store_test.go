package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
)

func TestFeatureSnapshotStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureSnapshotStore(conn)
	ctx := context.Background()

	captured := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := &domain.FeatureSnapshot{
		MessageID:      "msg-1",
		Mint:           testMint,
		CapturedAt:     captured,
		FeatureVersion: "v1",
		LiquidityUSD:   54000,
		Volume24hUSD:   210000,
		PriceChange5m:  0.04,
		PriceChange1h:  -0.12,
		Buys24h:        830,
		Sells24h:       615,
		PriceUSD:       0.00042,
	}
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.GetByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, testMint, got[0].Mint)
	assert.Equal(t, captured, got[0].CapturedAt)
	assert.Equal(t, "v1", got[0].FeatureVersion)
	assert.InDelta(t, 54000.0, got[0].LiquidityUSD, 1e-9)
	assert.InDelta(t, -0.12, got[0].PriceChange1h, 1e-12)
	assert.Equal(t, int32(830), got[0].Buys24h)
	assert.Equal(t, int32(615), got[0].Sells24h)
}

func TestFeatureSnapshotStore_AppendOnly(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureSnapshotStore(conn)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, version := range []string{"v1", "v2"} {
		snap := &domain.FeatureSnapshot{
			MessageID:      "msg-1",
			Mint:           testMint,
			CapturedAt:     base.Add(time.Duration(i) * time.Minute),
			FeatureVersion: version,
			PriceUSD:       0.001,
		}
		require.NoError(t, store.Insert(ctx, snap))
	}

	got, err := store.GetByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by captured_at ASC.
	assert.Equal(t, "v1", got[0].FeatureVersion)
	assert.Equal(t, "v2", got[1].FeatureVersion)
	assert.True(t, got[0].CapturedAt.Before(got[1].CapturedAt))
}

func TestFeatureSnapshotStore_GetUnknownMessage(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureSnapshotStore(conn)

	got, err := store.GetByMessageID(context.Background(), "msg-missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
