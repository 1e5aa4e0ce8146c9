package walkforward

import (
	"context"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/strategy"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// SMAGridOptimizer sweeps SMA crossover windows on the train segment and
// returns a fresh strategy with the best-returning parameters. It is the
// built-in Optimizer; callers with their own fitting procedure implement
// Optimizer directly.
type SMAGridOptimizer struct {
	// Fasts and Slows are the candidate window lengths. Empty slices select
	// a small default grid.
	Fasts []int
	Slows []int
	// Fraction of equity per entry for the candidate strategies.
	Fraction float64
	// Engine is the configuration used for scoring runs.
	Engine simulator.Config
}

func (o *SMAGridOptimizer) fasts() []int {
	if len(o.Fasts) == 0 {
		return []int{5, 10, 15}
	}
	return o.Fasts
}

func (o *SMAGridOptimizer) slows() []int {
	if len(o.Slows) == 0 {
		return []int{20, 30, 50}
	}
	return o.Slows
}

// Optimize scores every (fast, slow) pair on the train data by total return
// and returns a fresh strategy with the winning parameters.
func (o *SMAGridOptimizer) Optimize(ctx context.Context, train map[string][]types.Bar) (strategy.Strategy, error) {
	bestReturn := 0.0
	bestFast, bestSlow := 0, 0

	for _, fast := range o.fasts() {
		for _, slow := range o.slows() {
			candidate, err := strategy.NewSMACross(fast, slow, o.Fraction)
			if err != nil {
				continue // fast >= slow pairs are skipped, not errors
			}
			result, err := simulator.NewEngine(o.Engine).Run(ctx, train, candidate)
			if err != nil {
				return nil, err
			}
			if ret, ok := result.Metrics.TotalReturn.Float(); ok {
				if bestFast == 0 || ret > bestReturn {
					bestReturn = ret
					bestFast, bestSlow = fast, slow
				}
			}
		}
	}

	if bestFast == 0 {
		return nil, simerrors.NewInsufficientData("walkforward", "optimize",
			"train segment too short for any candidate window")
	}
	return strategy.NewSMACross(bestFast, bestSlow, o.Fraction)
}
