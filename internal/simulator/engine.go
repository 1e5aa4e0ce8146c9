package simulator

import (
	"context"
	"sort"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/internal/strategy"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Config holds everything a single run needs. The zero value is not
// runnable; use Validate before constructing an engine from user input.
type Config struct {
	InitialBalance float64
	Execution      ExecutionConfig
	Sizing         SizerConfig
	// Rebalance gates fraction-based buys to one per period per symbol.
	// Empty disables the gate.
	Rebalance RebalanceFrequency
	Metrics   metrics.Config
}

// Validate rejects parameter ranges that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.InitialBalance <= 0 {
		return simerrors.NewConfigError("simulator", "validate", "initial balance must be positive, got %v", c.InitialBalance)
	}
	if c.Execution.FeeRate < 0 {
		return simerrors.NewConfigError("simulator", "validate", "fee rate must not be negative, got %v", c.Execution.FeeRate)
	}
	if c.Execution.SlippageRate < 0 {
		return simerrors.NewConfigError("simulator", "validate", "slippage rate must not be negative, got %v", c.Execution.SlippageRate)
	}
	switch c.Execution.PriceRef {
	case "", SameBarClose, NextBarOpen:
	default:
		return simerrors.NewConfigError("simulator", "validate", "unknown price reference %q", c.Execution.PriceRef)
	}
	return nil
}

// Engine replays bars through a strategy against a fresh ledger. Engines are
// cheap; batch analyses create one per unit of work so no state is shared.
type Engine struct {
	cfg   Config
	exec  *executor
	sizer *sizer
}

// NewEngine creates an engine for the given config. The config should be
// validated first.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		exec:  newExecutor(cfg.Execution),
		sizer: newSizer(cfg.Sizing),
	}
}

// Run replays the aligned multi-symbol series through strat and returns the
// immutable result. data maps symbol to its bars; all series must share the
// same timestamps. A strategy error aborts the run: a silent partial result
// is worse than no result. The context is checked between bars so long runs
// can be cancelled cooperatively.
func (e *Engine) Run(ctx context.Context, data map[string][]types.Bar, strat strategy.Strategy) (*Result, error) {
	symbols, timeline, err := alignSeries(data)
	if err != nil {
		return nil, err
	}

	ledger := NewLedger(e.cfg.InitialBalance)
	history := make(map[string][]types.Bar, len(symbols))
	marks := make(map[string]float64, len(symbols))
	lastRebalance := make(map[string]time.Time, len(symbols))

	for i, ts := range timeline {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, sym := range symbols {
			history[sym] = data[sym][:i+1]
			marks[sym] = data[sym][i].Close
		}

		signals, err := strat.Next(ts, history)
		if err != nil {
			return nil, simerrors.NewDataError("simulator", "run",
				"strategy %s failed at bar %d: %v", strat.Name(), i, err)
		}
		for _, sig := range signals {
			e.apply(sig, data, symbols, i, ledger, lastRebalance)
		}

		ledger.recordEquity(ts, marks)
	}

	curve := ledger.equityCurve
	result := &Result{
		Strategy:    strat.Name(),
		TradeLog:    ledger.tradeLog,
		EquityCurve: curve,
		StartEquity: e.cfg.InitialBalance,
		RealizedPnL: ledger.RealizedPnL(),
		TotalFees:   ledger.TotalFees(),
	}
	if len(curve) > 0 {
		result.EndEquity = curve[len(curve)-1].Equity
	} else {
		result.EndEquity = e.cfg.InitialBalance
	}
	for _, exec := range result.TradeLog {
		if !exec.Filled() {
			result.Rejections++
		}
	}

	mcfg := e.cfg.Metrics
	if mcfg.PeriodsPerYear <= 0 {
		mcfg.PeriodsPerYear = barsPerYear(data, symbols)
	}
	result.Metrics = metrics.Compute(curve, result.ClosedTradePnLs(), mcfg)
	return result, nil
}

// apply sizes and executes one signal at bar index i, recording the outcome
// in the trade log. Signals that cannot reference a price (next-bar-open on
// the final bar) are dropped.
func (e *Engine) apply(sig types.Signal, data map[string][]types.Bar, symbols []string, i int, ledger *Ledger, lastRebalance map[string]time.Time) {
	if sig.Side == types.SideHold {
		return
	}
	bars, ok := data[sig.Symbol]
	if !ok {
		return
	}

	refPrice := bars[i].Close
	fillTime := bars[i].Timestamp
	if e.cfg.Execution.PriceRef == NextBarOpen {
		if i+1 >= len(bars) {
			return
		}
		refPrice = bars[i+1].Open
		fillTime = bars[i+1].Timestamp
	}

	// Rebalance gate: at most one fraction-sized buy per period per symbol.
	if sig.Side == types.SideBuy && sig.SizeFraction > 0 && e.cfg.Rebalance != "" {
		if last, ok := lastRebalance[sig.Symbol]; ok && e.cfg.Rebalance.SamePeriod(last, fillTime) {
			return
		}
	}

	marks := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		marks[sym] = data[sym][i].Close
	}
	equity := ledger.Equity(marks)

	qty := e.sizer.quantity(sig, equity, refPrice, bars[:i+1])
	if sig.Side == types.SideSell && sig.Quantity == 0 && sig.SizeFraction == 0 {
		qty = ledger.Position(sig.Symbol).Quantity
	}

	exec := e.exec.execute(sig, qty, refPrice, fillTime, ledger)
	ledger.record(exec)

	if exec.Filled() && sig.Side == types.SideBuy && sig.SizeFraction > 0 {
		lastRebalance[sig.Symbol] = fillTime
	}
}

// alignSeries validates that every symbol's bars are sorted, duplicate-free
// and share one timeline, and returns the sorted symbols and that timeline.
func alignSeries(data map[string][]types.Bar) ([]string, []time.Time, error) {
	if len(data) == 0 {
		return nil, nil, simerrors.NewDataError("simulator", "align", "no bar data supplied")
	}
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	ref := data[symbols[0]]
	if len(ref) == 0 {
		return nil, nil, simerrors.NewDataError("simulator", "align", "symbol %s has no bars", symbols[0])
	}
	timeline := make([]time.Time, len(ref))
	for i, b := range ref {
		if i > 0 && !ref[i-1].Timestamp.Before(b.Timestamp) {
			return nil, nil, simerrors.NewDataError("simulator", "align", "symbol %s bars not strictly ascending at index %d", symbols[0], i)
		}
		timeline[i] = b.Timestamp
	}

	for _, sym := range symbols[1:] {
		bars := data[sym]
		if len(bars) != len(ref) {
			return nil, nil, simerrors.NewDataError("simulator", "align", "symbol %s has %d bars, want %d", sym, len(bars), len(ref))
		}
		for i, b := range bars {
			if !b.Timestamp.Equal(timeline[i]) {
				return nil, nil, simerrors.NewDataError("simulator", "align", "symbol %s timestamp mismatch at index %d", sym, i)
			}
		}
	}
	return symbols, timeline, nil
}

func barsPerYear(data map[string][]types.Bar, symbols []string) float64 {
	if tf := data[symbols[0]][0].Timeframe; tf.Valid() {
		return tf.BarsPerYear()
	}
	return metrics.DefaultConfig().PeriodsPerYear
}
