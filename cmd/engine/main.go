// Package main runs the acceptance and outcome engine:
// - Resolver (continuous): turns raw call messages into verified mints
// - Validator (continuous): runs acceptance checks on resolved calls
// - Monitor (continuous): samples accepted calls and labels outcomes
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/claims"
	"github.com/DoctorKnockers/ag-trading-bot/internal/config"
	"github.com/DoctorKnockers/ag-trading-bot/internal/jupiter"
	"github.com/DoctorKnockers/ag-trading-bot/internal/market"
	"github.com/DoctorKnockers/ag-trading-bot/internal/monitor"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/resolver"
	"github.com/DoctorKnockers/ag-trading-bot/internal/solana"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
	chstore "github.com/DoctorKnockers/ag-trading-bot/internal/storage/clickhouse"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage/memory"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage/migrations"
	pgstore "github.com/DoctorKnockers/ag-trading-bot/internal/storage/postgres"
	"github.com/DoctorKnockers/ag-trading-bot/internal/validator"
)

// engineStores holds all storage implementations.
type engineStores struct {
	rawMessages storage.RawMessageStore
	resolutions storage.ResolutionStore
	acceptance  storage.AcceptanceStore
	monitors    storage.MonitorStateStore
	outcomes    storage.OutcomeStore
	samples     storage.PriceSampleStore
	features    storage.FeatureSnapshotStore

	// pool is nil for in-memory runs; kept for connection stats.
	pool *pgstore.Pool
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	if cfg.Solana.RPCEndpoint == "" {
		logger.Fatal("solana.rpc_endpoint (or SOLANA_RPC_ENDPOINT) is required")
	}
	if !*useMemory && cfg.Postgres.DSN == "" {
		logger.Fatal("postgres.dsn (or POSTGRES_DSN) is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint)

	jupiterBase := cfg.Jupiter.BaseURL
	if jupiterBase == "" {
		jupiterBase = jupiter.DefaultBaseURL
	}
	router := jupiter.NewClient(jupiterBase)

	marketBase := cfg.Market.BaseURL
	if marketBase == "" {
		marketBase = market.DefaultBaseURL
	}
	dexClient := market.NewClient(marketBase)

	prices, closePrices, err := buildPriceSource(ctx, cfg, dexClient, logger)
	if err != nil {
		logger.Fatalf("Failed to connect price stream: %v", err)
	}
	defer closePrices()

	res := resolver.New(resolver.Options{
		Resolutions: stores.resolutions,
		RPC:         rpc,
		Pairs:       dexClient,
		Logger:      logger,
	})
	resolverRunner := resolver.NewRunner(resolver.RunnerOptions{
		Resolver:        res,
		RawMessages:     stores.rawMessages,
		Acceptance:      stores.acceptance,
		PoolWaitTimeout: cfg.PoolWait(),
		PollInterval:    cfg.PollInterval(),
		BatchSize:       cfg.Engine.BatchSize,
		Logger:          logger,
	})

	val := validator.New(validator.Options{
		Acceptance:         stores.acceptance,
		Monitors:           stores.monitors,
		Features:           stores.features,
		RPC:                rpc,
		Router:             router,
		Prices:             dexClient,
		TestAmountSOL:      cfg.Checks.TestAmountSOL,
		MaxEffectiveFee:    cfg.Checks.MaxEffectiveFee,
		ConcentrationCheck: cfg.Checks.ConcentrationCheck,
		TopHolders:         cfg.Checks.TopHolders,
		MaxTopShare:        cfg.Checks.MaxTopShare,
		Logger:             logger,
	})
	validatorRunner := validator.NewRunner(validator.RunnerOptions{
		Validator:    val,
		Acceptance:   stores.acceptance,
		Claims:       claims.NewCoordinator(stores.acceptance, claims.WithLeaseDuration(cfg.Lease())),
		PollInterval: cfg.PollInterval(),
		BatchSize:    cfg.Engine.BatchSize,
		Logger:       logger,
	})

	tracker := monitor.NewTracker(monitor.TrackerOptions{
		Monitors: stores.monitors,
		Outcomes: stores.outcomes,
		Samples:  stores.samples,
		Router:   router,
		Tunables: monitor.Tunables{
			Multiple:     cfg.Outcome.Multiple,
			Dwell:        cfg.Dwell(),
			Window:       cfg.Window(),
			MaxSlippage:  cfg.Outcome.MaxSlippage,
			TestLamports: uint64(cfg.Checks.TestAmountSOL * jupiter.LamportsPerSOL),
		},
		Logger: logger,
	})
	monitorRunner := monitor.NewRunner(monitor.RunnerOptions{
		Tracker:        tracker,
		Monitors:       stores.monitors,
		Outcomes:       stores.outcomes,
		Prices:         prices,
		Claims:         claims.NewCoordinator(stores.monitors, claims.WithLeaseDuration(cfg.Lease())),
		SampleInterval: cfg.SampleInterval(),
		BatchSize:      cfg.Engine.BatchSize,
		Logger:         logger,
	})

	started := time.Now().UTC()
	go startHTTPServer(cfg.Metrics.Addr, started, logger)
	go reportHealth(ctx, stores.pool)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	var wg sync.WaitGroup
	for name, run := range map[string]func(context.Context) error{
		"resolver":  resolverRunner.Run,
		"validator": validatorRunner.Run,
		"monitor":   monitorRunner.Run,
	} {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("%s runner exited: %v", name, err)
				cancel()
			}
		}(name, run)
	}

	wg.Wait()
	logger.Println("Shutdown complete")
}

// reportHealth keeps the uptime counter and pool gauges current.
func reportHealth(ctx context.Context, pool *pgstore.Pool) {
	const interval = 15 * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.DefaultMetrics.UptimeSeconds.Add(interval.Seconds())
			if pool != nil {
				stat := pool.Stat()
				observability.DefaultMetrics.DBConnections.WithLabelValues("postgres", "total").Set(float64(stat.TotalConns()))
				observability.DefaultMetrics.DBConnections.WithLabelValues("postgres", "idle").Set(float64(stat.IdleConns()))
				observability.DefaultMetrics.DBConnections.WithLabelValues("postgres", "acquired").Set(float64(stat.AcquiredConns()))
			}
		}
	}
}

// createStores creates all required stores, running migrations first.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*engineStores, func(), error) {
	if useMemory {
		raw := memory.NewRawMessageStore()
		stores := &engineStores{
			rawMessages: raw,
			resolutions: memory.NewResolutionStore(raw),
			acceptance:  memory.NewAcceptanceStore(),
			monitors:    memory.NewMonitorStateStore(),
			outcomes:    memory.NewOutcomeStore(),
			samples:     memory.NewPriceSampleStore(),
			features:    memory.NewFeatureSnapshotStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &engineStores{
		rawMessages: pgstore.NewRawMessageStore(pool),
		resolutions: pgstore.NewResolutionStore(pool),
		acceptance:  pgstore.NewAcceptanceStore(pool),
		monitors:    pgstore.NewMonitorStateStore(pool),
		outcomes:    pgstore.NewOutcomeStore(pool),
		pool:        pool,
	}

	// The sample archive is optional. Without ClickHouse the engine still
	// labels correctly; it just keeps no audit trail.
	var chConn *chstore.Conn
	if cfg.ClickHouse.DSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.samples = chstore.NewPriceSampleStore(chConn)
		stores.features = chstore.NewFeatureSnapshotStore(chConn)
	}

	cleanup := func() {
		if chConn != nil {
			chConn.Close()
		}
		pool.Close()
	}
	return stores, cleanup, nil
}

// buildPriceSource wires the monitor's price feed. With a stream endpoint
// configured, streamed prices are preferred and the REST client covers
// mints the stream has no fresh price for yet.
func buildPriceSource(ctx context.Context, cfg *config.Config, rest market.PriceSource, logger *log.Logger) (market.PriceSource, func(), error) {
	if cfg.Market.WSEndpoint == "" {
		return rest, func() {}, nil
	}

	ws, err := monitor.NewWSPriceSource(ctx, cfg.Market.WSEndpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	logger.Printf("Streaming prices from %s", cfg.Market.WSEndpoint)

	src := &streamFirstSource{ws: ws, rest: rest, subscribed: make(map[string]bool)}
	return src, func() { ws.Close() }, nil
}

// streamFirstSource subscribes mints on first request and serves streamed
// prices when fresh, falling back to REST otherwise.
type streamFirstSource struct {
	ws   *monitor.WSPriceSource
	rest market.PriceSource

	mu         sync.Mutex
	subscribed map[string]bool
}

func (s *streamFirstSource) TokenStats(ctx context.Context, mint string) (*market.TokenStats, error) {
	s.mu.Lock()
	if !s.subscribed[mint] {
		if err := s.ws.Subscribe(mint); err == nil {
			s.subscribed[mint] = true
		}
	}
	s.mu.Unlock()

	if stats, err := s.ws.TokenStats(ctx, mint); err == nil {
		return stats, nil
	}
	return s.rest.TokenStats(ctx, mint)
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func startHTTPServer(addr string, started time.Time, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":  "running",
			"started": started,
			"uptime":  time.Since(started).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}
