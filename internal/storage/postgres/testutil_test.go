package postgres

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies all SQL files from internal/storage/migrations/postgres.
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	projectRoot := findProjectRoot(t)
	migrationsDir := filepath.Join(projectRoot, "internal", "storage", "migrations", "postgres")

	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "failed to read migrations directory")

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, file))
		require.NoError(t, err, "failed to read migration file: %s", file)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to execute migration: %s", file)
	}
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// seedMessage inserts a raw_messages row so FK references resolve.
func seedMessage(t *testing.T, ctx context.Context, pool *Pool, messageID string) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"content": "test call"})
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO raw_messages (message_id, posted_at, payload) VALUES ($1, $2, $3)`,
		messageID, time.Now().UTC(), payload,
	)
	require.NoError(t, err, "failed to seed raw message")
}

// seedAcceptance inserts message and PENDING acceptance rows.
func seedAcceptance(t *testing.T, ctx context.Context, pool *Pool, messageID, mint string) {
	t.Helper()

	seedMessage(t, ctx, pool, messageID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	store := NewAcceptanceStore(pool)
	err := store.Insert(ctx, &domain.AcceptanceStatus{
		MessageID:     messageID,
		Mint:          mint,
		FirstSeen:     now,
		Status:        domain.StatusPending,
		Deadline:      now.Add(30 * time.Minute),
		LastCheckedAt: now,
	})
	require.NoError(t, err, "failed to seed acceptance")
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
