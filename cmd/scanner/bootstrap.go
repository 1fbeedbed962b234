package main

import (
	"context"
	"fmt"
	"os"

	"breakout-scanner/internal/broker/brokerobs"
	"breakout-scanner/internal/broker/kite"
	"breakout-scanner/internal/fetch"
	"breakout-scanner/internal/interfaces"
	"breakout-scanner/internal/logger"
	"breakout-scanner/internal/report"
	"breakout-scanner/internal/scan"
	"breakout-scanner/internal/store"
	"breakout-scanner/internal/trace"
	"breakout-scanner/internal/types"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeBroker builds the Kite provider with observability middleware.
// The access token is an opaque session capability taken from the
// environment; nothing downstream inspects it.
func initializeBroker(cfg *store.Config) interfaces.Broker {
	brk := kite.New(kite.Params{
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
		CacheDir:    cfg.CacheDir,
		HTTPTimeout: cfg.FetchConfig().CallTimeout,
	})
	return brokerobs.Wrap(brk)
}

// resolveUniverse returns the instruments to scan. DERIVATIVE mode takes
// the full derivative-eligible list; STATIC mode resolves the configured
// symbols against it so each carries its instrument token.
func resolveUniverse(ctx context.Context, cfg *store.Config, brk interfaces.Broker) ([]types.Instrument, error) {
	universe, err := brk.Universe(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Universe.Mode == "DERIVATIVE" {
		return universe, nil
	}

	bySymbol := make(map[string]types.Instrument, len(universe))
	for _, inst := range universe {
		bySymbol[inst.Symbol] = inst
	}
	selected := make([]types.Instrument, 0, len(cfg.Universe.Static))
	for _, sym := range cfg.Universe.Static {
		inst, ok := bySymbol[sym]
		if !ok {
			logger.Warn(ctx, "Symbol not in derivative universe, skipping", "symbol", sym)
			continue
		}
		selected = append(selected, inst)
	}
	return selected, nil
}

// run drives one full scan: universe, fetch+classify, report, summary.
func run(ctx context.Context, cfg *store.Config) error {
	runID := uuid.NewString()
	ctx, span := trace.StartSpan(ctx, "scanner.run")
	defer span.End()

	logger.Info(ctx, "Scan starting",
		"run_id", runID,
		"universe_mode", cfg.Universe.Mode,
		"lookback", cfg.Detection.Lookback,
		"workers", cfg.Scan.Workers,
	)

	brk := initializeBroker(cfg)
	universe, err := resolveUniverse(ctx, cfg, brk)
	if err != nil {
		return fmt.Errorf("universe resolution failed: %w", err)
	}
	if len(universe) == 0 {
		return fmt.Errorf("empty scan universe")
	}

	fetcher := fetch.New(brk, cfg.FetchConfig())
	scanner := scan.New(fetcher, scan.Config{
		Detection:   cfg.DetectionConfig(),
		HistoryDays: cfg.Fetch.HistoryDays,
		Workers:     cfg.Scan.Workers,
	})

	results, failures := scanner.Scan(ctx, universe)

	writer, err := report.NewWriter(cfg.Report.Dir, cfg.Report.Format)
	if err != nil {
		return err
	}
	path, err := writer.Write(results, failures)
	if err != nil {
		return fmt.Errorf("report writing failed: %w", err)
	}

	logSummary(ctx, runID, universe, results, failures, path)
	return ctx.Err()
}

func logSummary(ctx context.Context, runID string, universe []types.Instrument, results []types.BreakoutResult, failures map[string]string, reportPath string) {
	var full, partial int
	for _, r := range results {
		switch r.Classification {
		case types.Full:
			full++
		case types.Partial:
			partial++
		}
		if r.Classification != types.None {
			logger.Breakout(ctx, r.Symbol, string(r.Classification), r.PriceExcess, r.VolumeRatio,
				"reference_high", r.ReferenceHigh,
				"latest_close", r.LatestClose,
				"atr", r.ATR,
			)
		}
	}

	logger.Info(ctx, "Scan finished",
		"run_id", runID,
		"scanned", len(universe),
		"evaluated", len(results),
		"full_breakouts", full,
		"partial_breakouts", partial,
		"failures", len(failures),
	)
	if reportPath != "" {
		logger.Info(ctx, "Report written", "run_id", runID, "path", reportPath)
	} else {
		logger.Info(ctx, "No breakout candidates to report", "run_id", runID)
	}
}
