// Package main re-labels finalized outcomes from the archived price
// sample trail. Labels are written at a new outcomes version; live rows
// and prior versions are never modified.
//
// Usage:
//
//	outcomes -config engine.yaml -from-version 1 -to-version 2
//
// Tunables for the new labels come from the config's outcome section.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoctorKnockers/ag-trading-bot/internal/config"
	"github.com/DoctorKnockers/ag-trading-bot/internal/jupiter"
	"github.com/DoctorKnockers/ag-trading-bot/internal/monitor"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage/clickhouse"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage/migrations"
	pgstore "github.com/DoctorKnockers/ag-trading-bot/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	fromVersion := flag.Int("from-version", 1, "Outcomes version to re-label")
	toVersion := flag.Int("to-version", 0, "Outcomes version to write (required)")
	flag.Parse()

	logger := log.New(os.Stdout, "[outcomes] ", log.LstdFlags)

	if *toVersion == 0 {
		logger.Fatal("--to-version is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		logger.Fatal("postgres.dsn (or POSTGRES_DSN) is required")
	}
	if cfg.ClickHouse.DSN == "" {
		logger.Fatal("clickhouse.dsn (or CLICKHOUSE_DSN) is required: re-labeling reads the sample archive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		logger.Fatalf("Connect to clickhouse: %v", err)
	}
	defer chConn.Close()

	relabeler := monitor.NewRelabeler(monitor.RelabelerOptions{
		Outcomes: pgstore.NewOutcomeStore(pool),
		Samples:  clickhouse.NewPriceSampleStore(chConn),
		Tunables: monitor.Tunables{
			Multiple:     cfg.Outcome.Multiple,
			Dwell:        cfg.Dwell(),
			Window:       cfg.Window(),
			MaxSlippage:  cfg.Outcome.MaxSlippage,
			TestLamports: uint64(cfg.Checks.TestAmountSOL * jupiter.LamportsPerSOL),
		},
		Logger: logger,
	})

	written, err := relabeler.Run(ctx, *fromVersion, *toVersion)
	if err != nil {
		logger.Fatalf("Re-label failed after %d rows: %v", written, err)
	}
	logger.Printf("Re-labeled %d outcomes at version %d", written, *toVersion)
}
