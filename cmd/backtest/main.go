package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"exit-policy-lab/internal/backtest"
	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
	chstore "exit-policy-lab/internal/storage/clickhouse"
	"exit-policy-lab/internal/storage/memory"
	"exit-policy-lab/internal/storage/migrations"
	pgstore "exit-policy-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	callID := flag.String("call-id", "", "Call ID to backtest (required)")
	policyKind := flag.String("policy", "", "Policy: FIXED_STOP, TIME_STOP, TRAILING_STOP, LADDER (or use --policy-file)")
	policyFile := flag.String("policy-file", "", "Path to JSON policy config (supports COMBO and LADDER levels)")
	costName := flag.String("cost", "standard", "Cost model: zero, standard, stressed")
	intervalSeconds := flag.Int64("interval-seconds", 60, "Candle interval in seconds")
	asOfMs := flag.Int64("as-of-ms", 0, "Hide candles closing after this time, ms (0 = all data)")

	// Policy parameters
	stopPct := flag.Float64("stop-pct", 0.20, "Stop-loss percentage for FIXED_STOP/LADDER")
	takeProfitPct := flag.Float64("take-profit-pct", 0, "Take-profit percentage (0 = unset)")
	maxHoldMs := flag.Int64("max-hold-ms", 3600000, "Max hold duration for TIME_STOP (ms)")
	activationPct := flag.Float64("activation-pct", 0.20, "Activation percentage for TRAILING_STOP")
	trailPct := flag.Float64("trail-pct", 0.10, "Trail percentage for TRAILING_STOP")
	hardStopPct := flag.Float64("hard-stop-pct", 0, "Hard stop percentage for TRAILING_STOP (0 = unset)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (calls, trade results)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (candles)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply migrations before running")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist trade result to storage")
	metricsAddr := flag.String("metrics-addr", "", "Expose Prometheus metrics on this address (optional)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
	if *callID == "" {
		logger.Fatal("--call-id is required")
	}

	cfg, err := resolvePolicyConfig(*policyKind, *policyFile, flagParams{
		stopPct:       *stopPct,
		takeProfitPct: *takeProfitPct,
		maxHoldMs:     *maxHoldMs,
		activationPct: *activationPct,
		trailPct:      *trailPct,
		hardStopPct:   *hardStopPct,
	})
	if err != nil {
		logger.Fatalf("resolve policy config: %v", err)
	}

	cost, ok := domain.CostModelByID(*costName)
	if !ok {
		logger.Fatalf("Invalid cost model: %s. Must be zero, standard, or stressed", *costName)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")

	// Create stores
	var callStore storage.CallStore = memory.NewCallStore()
	var candleStore storage.CandleStore = memory.NewCandleStore()
	var tradeStore storage.TradeResultStore = memory.NewTradeResultStore()

	if !*useMemory {
		// Require DSNs when not using memory
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (calls and trade results)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (candles)")
		}

		// PostgreSQL for calls and trade results
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		// ClickHouse for candles
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("postgres migrations: %v", err)
			}
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatalf("clickhouse migrations: %v", err)
			}
		}

		callStore = pgstore.NewCallStore(pool).WithMetrics(metrics)
		tradeStore = pgstore.NewTradeResultStore(pool).WithMetrics(metrics)
		candleStore = chstore.NewCandleStore(conn).WithMetrics(metrics)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	opts := backtest.RunnerOptions{
		CallStore:       callStore,
		CandleStore:     candleStore,
		Metrics:         metrics,
		IntervalSeconds: *intervalSeconds,
		AsOfMs:          *asOfMs,
	}
	if *persistResult {
		opts.TradeResultStore = tradeStore
	}
	runner := backtest.NewRunner(opts)

	result, err := runner.RunPair(ctx, backtest.Pair{CallID: *callID, Config: cfg}, cost)
	if err != nil {
		logger.Fatalf("simulation failed: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Fatalf("encode result: %v", err)
		}
		return
	}

	printResult(result)
}

// flagParams bundles the flat policy flags.
type flagParams struct {
	stopPct       float64
	takeProfitPct float64
	maxHoldMs     int64
	activationPct float64
	trailPct      float64
	hardStopPct   float64
}

// resolvePolicyConfig builds a PolicyConfig from --policy-file when given,
// otherwise from the flat flags. Validation happens in the engine.
func resolvePolicyConfig(kind, file string, p flagParams) (domain.PolicyConfig, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return domain.PolicyConfig{}, fmt.Errorf("read policy file: %w", err)
		}
		var cfg domain.PolicyConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return domain.PolicyConfig{}, fmt.Errorf("parse policy file: %w", err)
		}
		return cfg, nil
	}

	if kind == "" {
		return domain.PolicyConfig{}, fmt.Errorf("either --policy or --policy-file is required")
	}

	cfg := domain.PolicyConfig{Kind: strings.ToUpper(kind)}
	switch cfg.Kind {
	case domain.PolicyKindFixedStop:
		cfg.StopPct = &p.stopPct
		if p.takeProfitPct > 0 {
			cfg.TakeProfitPct = &p.takeProfitPct
		}
	case domain.PolicyKindTimeStop:
		cfg.MaxHoldMs = &p.maxHoldMs
		if p.takeProfitPct > 0 {
			cfg.TakeProfitPct = &p.takeProfitPct
		}
	case domain.PolicyKindTrailingStop:
		cfg.ActivationPct = &p.activationPct
		cfg.TrailPct = &p.trailPct
		if p.hardStopPct > 0 {
			cfg.HardStopPct = &p.hardStopPct
		}
	default:
		return domain.PolicyConfig{}, fmt.Errorf("policy %q needs --policy-file (LADDER/COMBO) or is unknown", kind)
	}
	return cfg, nil
}

func printResult(result *domain.TradeResult) {
	fmt.Printf("Trade:    %s\n", result.TradeID)
	fmt.Printf("Policy:   %s (cost %s)\n", result.PolicyID, result.CostID)
	fmt.Printf("Entry:    %.8f @ %d\n", result.EntryPrice, result.EntryTimestampMs)
	fmt.Printf("Exit:     %.8f @ %d (%s)\n", result.ExitPrice, result.ExitTimestampMs, result.ExitReason)
	fmt.Printf("Gross:    %.4f bps\n", result.GrossReturnBps)
	fmt.Printf("Net:      %.4f bps\n", result.RealizedReturnBps)
	fmt.Printf("MAE:      %.4f bps\n", result.MaxAdverseExcursionBps)
	fmt.Printf("Peak:     %.4f bps\n", result.PeakReturnBps)
	if result.TailCapture != nil {
		fmt.Printf("Capture:  %.4f\n", *result.TailCapture)
	}
	fmt.Printf("Exposed:  %d ms\n", result.TimeExposedMs)
	for _, pe := range result.PartialExits {
		fmt.Printf("Partial:  level %d, %.2f @ %.8f (%d)\n", pe.Level, pe.Fraction, pe.Price, pe.TimestampMs)
	}
}
