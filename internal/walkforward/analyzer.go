package walkforward

import (
	"context"
	"fmt"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/strategy"
	"github.com/ducminhle1904/strategy-sandbox/internal/workerpool"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Optimizer fits a strategy on the train segment of a fold. It is an
// external collaborator: the analyzer only requires that each call returns a
// fresh strategy instance so folds never share state.
type Optimizer interface {
	Optimize(ctx context.Context, train map[string][]types.Bar) (strategy.Strategy, error)
}

// Config drives one walk-forward analysis.
type Config struct {
	Split   SplitConfig
	Engine  simulator.Config
	Workers int
}

// WindowReport holds one fold's in-sample and out-of-sample results. Failed
// folds carry the reason and are excluded from aggregation instead of
// failing the whole analysis.
type WindowReport struct {
	Window      Window         `json:"window"`
	Strategy    string         `json:"strategy,omitempty"`
	InSample    metrics.Bundle `json:"in_sample"`
	OutOfSample metrics.Bundle `json:"out_of_sample"`
	Failed      bool           `json:"failed"`
	Reason      string         `json:"reason,omitempty"`
}

// Report aggregates the out-of-sample performance across folds.
type Report struct {
	Windows  []WindowReport `json:"windows"`
	Excluded int            `json:"excluded"`

	MeanOOSReturn metrics.Value `json:"mean_oos_return"`
	StdOOSReturn  metrics.Value `json:"std_oos_return"`
	MeanOOSSharpe metrics.Value `json:"mean_oos_sharpe"`
	MeanISSharpe  metrics.Value `json:"mean_is_sharpe"`
	// SharpeGap is in-sample minus out-of-sample mean Sharpe. A large
	// positive gap indicates overfitting.
	SharpeGap metrics.Value `json:"sharpe_gap"`
}

// Run fits on each train segment via the optimizer and evaluates the fitted
// strategy, unmodified, on the following test segment. Folds execute on a
// bounded worker pool; every fold owns its engine and ledger.
func Run(ctx context.Context, data map[string][]types.Bar, opt Optimizer, cfg Config) (*Report, error) {
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	timeline, err := alignTimeline(data)
	if err != nil {
		return nil, err
	}
	windows, err := Split(timeline, cfg.Split)
	if err != nil {
		return nil, err
	}

	reports := make([]WindowReport, len(windows))
	_, err = workerpool.Run(ctx, len(windows), cfg.Workers, func(i int) error {
		reports[i] = runWindow(ctx, data, windows[i], opt, cfg.Engine)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walkforward: %w", err)
	}

	return aggregate(reports), nil
}

func runWindow(ctx context.Context, data map[string][]types.Bar, w Window, opt Optimizer, engineCfg simulator.Config) WindowReport {
	report := WindowReport{Window: w}

	train := sliceData(data, w.TrainFrom, w.TrainTo)
	test := sliceData(data, w.TestFrom, w.TestTo)

	strat, err := opt.Optimize(ctx, train)
	if err != nil {
		report.Failed = true
		report.Reason = fmt.Sprintf("optimize: %v", err)
		return report
	}
	report.Strategy = strat.Name()

	inSample, err := simulator.NewEngine(engineCfg).Run(ctx, train, strat)
	if err != nil {
		report.Failed = true
		report.Reason = fmt.Sprintf("in-sample run: %v", err)
		return report
	}
	report.InSample = inSample.Metrics

	strat.Reset()
	outSample, err := simulator.NewEngine(engineCfg).Run(ctx, test, strat)
	if err != nil {
		report.Failed = true
		report.Reason = fmt.Sprintf("out-of-sample run: %v", err)
		return report
	}
	report.OutOfSample = outSample.Metrics
	return report
}

func aggregate(reports []WindowReport) *Report {
	out := &Report{Windows: reports}

	var oosReturns, oosSharpes, isSharpes []float64
	for _, r := range reports {
		if r.Failed {
			out.Excluded++
			continue
		}
		if v, ok := r.OutOfSample.TotalReturn.Float(); ok {
			oosReturns = append(oosReturns, v)
		}
		if v, ok := r.OutOfSample.Sharpe.Float(); ok {
			oosSharpes = append(oosSharpes, v)
		}
		if v, ok := r.InSample.Sharpe.Float(); ok {
			isSharpes = append(isSharpes, v)
		}
	}

	if len(oosReturns) > 0 {
		out.MeanOOSReturn = metrics.Def(metrics.Mean(oosReturns))
		out.StdOOSReturn = metrics.Def(metrics.StdDev(oosReturns))
	}
	if len(oosSharpes) > 0 {
		out.MeanOOSSharpe = metrics.Def(metrics.Mean(oosSharpes))
	}
	if len(isSharpes) > 0 {
		out.MeanISSharpe = metrics.Def(metrics.Mean(isSharpes))
	}
	if is, ok := out.MeanISSharpe.Float(); ok {
		if oos, ok := out.MeanOOSSharpe.Float(); ok {
			out.SharpeGap = metrics.Def(is - oos)
		}
	}
	return out
}

// sliceData shares the underlying bar arrays; folds treat them as read-only.
func sliceData(data map[string][]types.Bar, from, to int) map[string][]types.Bar {
	out := make(map[string][]types.Bar, len(data))
	for sym, bars := range data {
		out[sym] = bars[from:to]
	}
	return out
}

// alignTimeline validates that all symbols share one bar count and returns
// the shared timeline. Full timestamp alignment is enforced again by the
// engine on every fold run.
func alignTimeline(data map[string][]types.Bar) ([]time.Time, error) {
	if len(data) == 0 {
		return nil, simerrors.NewDataError("walkforward", "align", "no bar data supplied")
	}
	var ref []types.Bar
	for _, bars := range data {
		if ref == nil {
			ref = bars
			continue
		}
		if len(bars) != len(ref) {
			return nil, simerrors.NewDataError("walkforward", "align", "symbol series lengths differ: %d vs %d", len(bars), len(ref))
		}
	}
	timeline := make([]time.Time, len(ref))
	for i, b := range ref {
		timeline[i] = b.Timestamp
	}
	return timeline, nil
}
