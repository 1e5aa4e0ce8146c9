package stress

import (
	"context"
	"math"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/strategy"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Config holds the scenarios to apply and the engine settings used for the
// stressed re-runs. The same settings must be used for the baseline run so
// that deltas isolate the shock.
type Config struct {
	Scenarios []Scenario
	Engine    simulator.Config
}

// ScenarioReport compares one stressed run against the baseline.
type ScenarioReport struct {
	Name     string            `json:"name"`
	Result   *simulator.Result `json:"result"`
	Stressed metrics.Bundle    `json:"stressed"`
	Baseline metrics.Bundle    `json:"baseline"`

	// Deltas are stressed minus baseline; undefined when either side is.
	ReturnDelta   metrics.Value `json:"return_delta"`
	DrawdownDelta metrics.Value `json:"drawdown_delta"`
	SharpeDelta   metrics.Value `json:"sharpe_delta"`

	Failed bool   `json:"failed"`
	Reason string `json:"reason,omitempty"`
}

// Report holds the baseline result plus one entry per scenario, in the
// order the scenarios were configured.
type Report struct {
	Baseline  *simulator.Result `json:"baseline"`
	Scenarios []ScenarioReport  `json:"scenarios"`
}

// Tester applies shock scenarios to historical data and measures how the
// strategy's risk profile degrades.
type Tester struct {
	cfg    Config
	engine *simulator.Engine
}

func NewTester(cfg Config) (*Tester, error) {
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Scenarios) == 0 {
		return nil, simerrors.NewConfigError("stress", "NewTester", "at least one scenario required")
	}
	return &Tester{cfg: cfg, engine: simulator.NewEngine(cfg.Engine)}, nil
}

// Run executes the baseline followed by every scenario. Each scenario shocks
// a fresh copy of the data, so shocks never compound, and gets a fresh
// strategy via Reset.
func (t *Tester) Run(ctx context.Context, data map[string][]types.Bar, strat strategy.Strategy) (*Report, error) {
	if len(data) == 0 {
		return nil, simerrors.NewDataError("stress", "Run", "no market data supplied")
	}
	strat.Reset()
	baseline, err := t.engine.Run(ctx, data, strat)
	if err != nil {
		return nil, err
	}

	// Scenarios share the strategy instance, so they run sequentially with a
	// Reset between runs rather than on the worker pool.
	reports := make([]ScenarioReport, len(t.cfg.Scenarios))
	for i, sc := range t.cfg.Scenarios {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		reports[i] = t.runScenario(ctx, data, strat, sc, baseline)
	}
	return &Report{Baseline: baseline, Scenarios: reports}, nil
}

func (t *Tester) runScenario(ctx context.Context, data map[string][]types.Bar, strat strategy.Strategy, sc Scenario, baseline *simulator.Result) ScenarioReport {
	report := ScenarioReport{Name: sc.Name, Baseline: baseline.Metrics}

	returns := symbolReturns(data)
	sc.Transform(returns)
	shocked, err := rebuildPrices(data, returns)
	if err != nil {
		report.Failed = true
		report.Reason = err.Error()
		return report
	}

	strat.Reset()
	res, err := t.engine.Run(ctx, shocked, strat)
	if err != nil {
		report.Failed = true
		report.Reason = err.Error()
		return report
	}
	report.Result = res
	report.Stressed = res.Metrics
	report.ReturnDelta = delta(res.Metrics.TotalReturn, baseline.Metrics.TotalReturn)
	report.DrawdownDelta = delta(res.Metrics.MaxDrawdown, baseline.Metrics.MaxDrawdown)
	report.SharpeDelta = delta(res.Metrics.Sharpe, baseline.Metrics.Sharpe)
	return report
}

func delta(stressed, baseline metrics.Value) metrics.Value {
	s, ok := stressed.Float()
	if !ok {
		return metrics.Undef()
	}
	b, ok := baseline.Float()
	if !ok {
		return metrics.Undef()
	}
	return metrics.Def(s - b)
}

// rebuildPrices reconstructs bar series from shocked returns. The first
// close is anchored to the original; open, high and low scale by each bar's
// close ratio so intrabar shape is preserved.
func rebuildPrices(data map[string][]types.Bar, returns map[string][]float64) (map[string][]types.Bar, error) {
	out := make(map[string][]types.Bar, len(data))
	for sym, bars := range data {
		rets := returns[sym]
		if len(bars) == 0 {
			out[sym] = nil
			continue
		}
		if len(rets) != len(bars)-1 {
			return nil, simerrors.NewDataError("stress", "rebuildPrices", "return series length mismatch for "+sym)
		}
		rebuilt := make([]types.Bar, len(bars))
		rebuilt[0] = bars[0]
		prevClose := bars[0].Close
		for i := 1; i < len(bars); i++ {
			close := prevClose * (1 + rets[i-1])
			if close <= 0 || math.IsNaN(close) || math.IsInf(close, 0) {
				return nil, simerrors.NewDataError("stress", "rebuildPrices", "shock drove price non-positive for "+sym)
			}
			ratio := 1.0
			if bars[i].Close != 0 {
				ratio = close / bars[i].Close
			}
			b := bars[i]
			b.Open *= ratio
			b.High *= ratio
			b.Low *= ratio
			b.Close = close
			rebuilt[i] = b
			prevClose = close
		}
		out[sym] = rebuilt
	}
	return out, nil
}
