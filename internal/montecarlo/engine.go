// Package montecarlo builds an outcome distribution for a backtest by
// resampling its per-bar return series with replacement (i.i.d. bootstrap).
// The bootstrap does not preserve serial autocorrelation present in the
// original series; that is a documented approximation of this design, not a
// bug to be corrected here.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/workerpool"
)

// Config controls the bootstrap.
type Config struct {
	// NumSims is the number of synthetic paths, at least 1. Default 1000.
	NumSims int
	// Percentiles to report, in percent. Default 5, 50, 95.
	Percentiles []float64
	// Seed makes the whole distribution reproducible: draw i uses its own
	// generator seeded Seed+i, so results do not depend on scheduling.
	Seed int64
	// Workers bounds the worker pool. Zero uses all CPUs.
	Workers int
}

// Validate rejects unusable configurations before any work starts.
func (c Config) Validate() error {
	if c.NumSims < 1 {
		return simerrors.NewConfigError("montecarlo", "validate", "num sims must be >= 1, got %d", c.NumSims)
	}
	for _, p := range c.Percentiles {
		if p < 0 || p > 100 {
			return simerrors.NewConfigError("montecarlo", "validate", "percentile out of range: %v", p)
		}
	}
	return nil
}

// percentiles returns the requested percentiles sorted ascending, so Rows
// come out in percentile order regardless of how the caller listed them.
func (c Config) percentiles() []float64 {
	if len(c.Percentiles) == 0 {
		return []float64{5, 50, 95}
	}
	pcts := make([]float64, len(c.Percentiles))
	copy(pcts, c.Percentiles)
	sort.Float64s(pcts)
	return pcts
}

// PercentileRow is the distribution summary at one percentile.
type PercentileRow struct {
	Percentile     float64 `json:"percentile"`
	TerminalEquity float64 `json:"terminal_equity"`
	MaxDrawdown    float64 `json:"max_drawdown"`
}

// Result is the aggregated outcome distribution.
type Result struct {
	NumSimulations int             `json:"num_simulations"`
	Excluded       int             `json:"excluded"`
	Seed           int64           `json:"seed"`
	Rows           []PercentileRow `json:"percentiles"`
}

// Row returns the summary at pct, if reported.
func (r *Result) Row(pct float64) (PercentileRow, bool) {
	for _, row := range r.Rows {
		if row.Percentile == pct {
			return row, true
		}
	}
	return PercentileRow{}, false
}

type draw struct {
	terminal float64
	maxDD    float64
	failed   bool
}

// Run bootstraps the baseline's per-bar returns into cfg.NumSims synthetic
// equity paths of the original length and reports the terminal equity and
// max drawdown distribution. Identical seed and inputs give bit-identical
// output. Cancellation is checked between draws.
func Run(ctx context.Context, baseline *simulator.Result, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	returns := baseline.Returns()
	if len(returns) == 0 {
		return nil, simerrors.NewDataError("montecarlo", "run", "baseline has no return samples")
	}
	startEquity := baseline.EquityCurve[0].Equity

	draws := make([]draw, cfg.NumSims)
	_, err := workerpool.Run(ctx, cfg.NumSims, cfg.Workers, func(i int) error {
		draws[i] = simulate(returns, startEquity, cfg.Seed+int64(i))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("montecarlo: %w", err)
	}

	terminals := make([]float64, 0, cfg.NumSims)
	drawdowns := make([]float64, 0, cfg.NumSims)
	excluded := 0
	for _, d := range draws {
		if d.failed {
			excluded++
			continue
		}
		terminals = append(terminals, d.terminal)
		drawdowns = append(drawdowns, d.maxDD)
	}
	if len(terminals) == 0 {
		return nil, simerrors.NewDataError("montecarlo", "run", "all %d draws failed", cfg.NumSims)
	}

	sort.Float64s(terminals)
	sort.Float64s(drawdowns)

	result := &Result{
		NumSimulations: cfg.NumSims,
		Excluded:       excluded,
		Seed:           cfg.Seed,
	}
	for _, pct := range cfg.percentiles() {
		result.Rows = append(result.Rows, PercentileRow{
			Percentile:     pct,
			TerminalEquity: metrics.Percentile(terminals, pct),
			MaxDrawdown:    metrics.Percentile(drawdowns, pct),
		})
	}
	return result, nil
}

// simulate builds one synthetic path by sampling returns with replacement.
func simulate(returns []float64, startEquity float64, seed int64) draw {
	rng := rand.New(rand.NewSource(seed))
	equity := startEquity
	peak := equity
	maxDD := 0.0
	for range returns {
		r := returns[rng.Intn(len(returns))]
		equity *= 1 + r
		if equity <= 0 || math.IsNaN(equity) || math.IsInf(equity, 0) {
			return draw{failed: true}
		}
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return draw{terminal: equity, maxDD: maxDD}
}
