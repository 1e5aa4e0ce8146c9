package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/strategy-sandbox/internal/correlation"
	"github.com/ducminhle1904/strategy-sandbox/internal/logger"
	"github.com/ducminhle1904/strategy-sandbox/internal/monitoring"
	"github.com/ducminhle1904/strategy-sandbox/internal/montecarlo"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/strategy"
	"github.com/ducminhle1904/strategy-sandbox/internal/stress"
	"github.com/ducminhle1904/strategy-sandbox/internal/walkforward"
	"github.com/ducminhle1904/strategy-sandbox/pkg/config"
	"github.com/ducminhle1904/strategy-sandbox/pkg/data"
	"github.com/ducminhle1904/strategy-sandbox/pkg/reporting"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to JSON configuration file")
		symbolsFlag = flag.String("symbols", "", "Comma-separated symbols (overrides config, e.g. BTCUSDT,ETHUSDT)")
		interval    = flag.String("interval", "", "Bar timeframe: 1m,5m,15m,1h,4h,1d (overrides config)")
		dataRoot    = flag.String("data-root", "", "Root folder containing <SYMBOL>/<interval>/candles.csv")
		startStr    = flag.String("start", "", "Start date (RFC3339 or 2006-01-02)")
		endStr      = flag.String("end", "", "End date, exclusive")

		strategyName = flag.String("strategy", "sma_cross", "Strategy: buy_hold, sma_cross or rsi")
		fastFlag     = flag.Int("fast", 10, "Fast SMA window (sma_cross)")
		slowFlag     = flag.Int("slow", 30, "Slow SMA window (sma_cross)")
		rsiPeriod    = flag.Int("rsi-period", 14, "RSI lookback (rsi)")
		fraction     = flag.Float64("fraction", 0.1, "Equity fraction per entry")

		balance    = flag.Float64("balance", 0, "Initial balance (overrides config)")
		commission = flag.Float64("commission", -1, "Fee rate per fill, 0.001 = 0.1% (overrides config)")
		slippage   = flag.Float64("slippage", -1, "Slippage rate per fill (overrides config)")

		mcSims  = flag.Int("mc-sims", 0, "Monte Carlo simulations (overrides config)")
		seed    = flag.Int64("seed", 0, "Random seed (overrides config)")
		workers = flag.Int("workers", 0, "Worker pool size, 0 = all CPUs")

		wfEnable    = flag.Bool("wf-enable", false, "Run walk-forward validation")
		wfTrainDays = flag.Int("wf-train-days", 0, "Training window in days (overrides config)")
		wfTestDays  = flag.Int("wf-test-days", 0, "Test window in days (overrides config)")
		wfStepDays  = flag.Int("wf-step-days", 0, "Step between folds in days, 0 = test window")

		stressEnable = flag.Bool("stress", false, "Run stress scenarios")
		crashSize    = flag.Float64("crash-size", 0.30, "Market crash magnitude for stress scenarios")

		outputFormats = flag.String("output", "console", "Comma-separated outputs: console,json,csv,excel")
		outputDir     = flag.String("output-dir", "results", "Directory for report files")
		logDir        = flag.String("log-dir", "logs", "Directory for run logs")
		metricsPort   = flag.Int("metrics-port", 0, "Serve /metrics and /health on this port (0 = off)")
		envFile       = flag.String("env", ".env", "Environment file path")
	)
	flag.Parse()

	// Missing .env is fine; env vars may come from the shell.
	if err := godotenv.Load(*envFile); err != nil && *envFile != ".env" {
		log.Printf("⚠️  Could not load env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	applyFlagOverrides(cfg, overrides{
		symbols:     *symbolsFlag,
		interval:    *interval,
		dataRoot:    *dataRoot,
		start:       *startStr,
		end:         *endStr,
		balance:     *balance,
		commission:  *commission,
		slippage:    *slippage,
		mcSims:      *mcSims,
		seed:        *seed,
		workers:     *workers,
		wfTrainDays: *wfTrainDays,
		wfTestDays:  *wfTestDays,
		wfStepDays:  *wfStepDays,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var srv *monitoring.Server
	if *metricsPort > 0 {
		srv = monitoring.NewServer(*metricsPort)
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("⚠️  Metrics server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			srv.Shutdown(shutdownCtx)
		}()
	}

	strat, err := buildStrategy(*strategyName, *fastFlag, *slowFlag, *rsiPeriod, *fraction)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	runLog, err := logger.NewRunLogger(*logDir, strat.Name(), string(cfg.Timeframe))
	if err != nil {
		log.Fatalf("❌ Could not open run log: %v", err)
	}
	defer runLog.Close()

	report, err := run(ctx, cfg, strat, runOptions{
		walkForward: *wfEnable,
		stress:      *stressEnable,
		crashSize:   *crashSize,
	}, runLog, srv)
	if err != nil {
		runLog.Error("run failed: %v", err)
		log.Fatalf("❌ %v", err)
	}

	if err := writeOutputs(report, splitFormats(*outputFormats), *outputDir); err != nil {
		log.Fatalf("❌ Output error: %v", err)
	}
}

type runOptions struct {
	walkForward bool
	stress      bool
	crashSize   float64
}

func run(ctx context.Context, cfg *config.SandboxConfig, strat strategy.Strategy,
	opts runOptions, runLog *logger.RunLogger, srv *monitoring.Server) (*reporting.RunReport, error) {

	if srv != nil {
		srv.Health.RunStarted()
	}

	bars, err := loadData(ctx, cfg)
	if err != nil {
		monitoring.RecordError("DATA")
		return nil, err
	}
	runLog.Info("loaded %d symbols on %s", len(bars), cfg.Timeframe)

	report := &reporting.RunReport{
		GeneratedAt: time.Now(),
		Symbols:     cfg.Symbols,
		Timeframe:   cfg.Timeframe,
		Strategy:    strat.Name(),
	}
	engineCfg := cfg.EngineConfig()

	// Backtest.
	started := time.Now()
	backtest, err := simulator.NewEngine(engineCfg).Run(ctx, bars, strat)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		monitoring.RecordRun(strat.Name(), "failed", elapsed)
		if srv != nil {
			srv.Health.RunFinished(err)
		}
		return nil, err
	}
	monitoring.RecordRun(strat.Name(), "ok", elapsed)
	report.Backtest = backtest
	runLog.Result("backtest: equity %.2f -> %.2f, %d trades, %d rejections",
		backtest.StartEquity, backtest.EndEquity, backtest.Metrics.TotalTrades, backtest.Rejections)

	// Monte Carlo over the realized return path.
	mc, err := montecarlo.Run(ctx, backtest, cfg.MonteCarloConfig())
	if err != nil {
		runLog.Warn("monte carlo skipped: %v", err)
	} else {
		monitoring.RecordDraws(mc.NumSimulations-mc.Excluded, mc.Excluded)
		report.MonteCarlo = mc
	}

	// Correlation needs at least two symbols.
	if len(cfg.Symbols) >= 2 {
		corr, err := correlation.Analyze(ctx, bars, correlation.Config{Workers: cfg.Workers})
		if err != nil {
			runLog.Warn("correlation skipped: %v", err)
		} else {
			report.Correlation = corr
		}
	}

	if opts.walkForward {
		wf, err := walkforward.Run(ctx, bars, &walkforward.SMAGridOptimizer{
			Fraction: cfg.MaxPositionSize,
			Engine:   engineCfg,
		}, walkforward.Config{
			Split:   cfg.WalkForwardSplit(),
			Engine:  engineCfg,
			Workers: cfg.Workers,
		})
		if err != nil {
			runLog.Warn("walk-forward skipped: %v", err)
		} else {
			for _, w := range wf.Windows {
				if w.Failed {
					monitoring.RecordFold("failed")
				} else {
					monitoring.RecordFold("ok")
				}
			}
			report.WalkForward = wf
		}
	}

	if opts.stress {
		scenarios := defaultScenarios(bars, opts.crashSize, len(cfg.Symbols) >= 2)
		tester, err := stress.NewTester(stress.Config{Scenarios: scenarios, Engine: engineCfg})
		if err != nil {
			return nil, err
		}
		st, err := tester.Run(ctx, bars, strat)
		if err != nil {
			runLog.Warn("stress skipped: %v", err)
		} else {
			report.Stress = st
		}
	}

	if srv != nil {
		srv.Health.RunFinished(nil)
	}
	return report, nil
}

func loadData(ctx context.Context, cfg *config.SandboxConfig) (map[string][]types.Bar, error) {
	store := data.NewCachedStore(data.NewCSVStore(cfg.DataRoot))
	window, err := cfg.TimeRange()
	if err != nil {
		return nil, err
	}

	bars := make(map[string][]types.Bar, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		series, err := store.GetBars(ctx, symbol, cfg.Timeframe, window[0], window[1])
		if err != nil {
			return nil, err
		}
		monitoring.RecordBarsLoaded(store.Name(), len(series))
		bars[symbol] = series
	}
	return bars, nil
}

func buildStrategy(name string, fast, slow, rsiPeriod int, fraction float64) (strategy.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "buy_hold", "buy-and-hold", "buy_and_hold":
		return strategy.NewBuyAndHold(fraction), nil
	case "sma_cross", "sma-cross":
		return strategy.NewSMACross(fast, slow, fraction)
	case "rsi", "rsi_reversion":
		return strategy.NewRSIReversion(rsiPeriod, 30, 70, fraction)
	default:
		return nil, fmt.Errorf("unknown strategy %q (want buy_hold, sma_cross or rsi)", name)
	}
}

// defaultScenarios positions the crash mid-series so recovery bars exist.
func defaultScenarios(bars map[string][]types.Bar, crashSize float64, multiSymbol bool) []stress.Scenario {
	n := 0
	for _, series := range bars {
		if len(series) > n {
			n = len(series)
		}
	}
	mid := n / 2
	scenarios := []stress.Scenario{
		stress.MarketCrash(mid, crashSize),
		stress.FlashCrash(mid, crashSize*0.7, 0.5, 12),
		stress.VolatilitySpike(2.0),
	}
	if multiSymbol {
		scenarios = append(scenarios, stress.CorrelationBreakdown(1))
	}
	return scenarios
}

func splitFormats(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
