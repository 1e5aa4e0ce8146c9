// Package stress re-runs the backtest pipeline on deterministically shocked
// price histories and reports each scenario's metrics against the baseline.
package stress

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Scenario is a named, deterministic transformation of the per-symbol return
// series. Transforms must be pure: the same input always yields the same
// output, and a zero-magnitude scenario must leave the returns unchanged.
type Scenario struct {
	Name string
	// Transform mutates the per-symbol return series in place. Returns are
	// ordered per symbol exactly as the bars that produced them.
	Transform func(returns map[string][]float64)
}

// MarketCrash injects a single negative shock of the given magnitude
// (e.g. 0.3 for -30%) at the bar index at, in every symbol.
func MarketCrash(at int, magnitude float64) Scenario {
	return Scenario{
		Name: fmt.Sprintf("market_crash_%.0f%%", magnitude*100),
		Transform: func(returns map[string][]float64) {
			for _, rets := range returns {
				if at >= 0 && at < len(rets) {
					rets[at] = (1+rets[at])*(1-magnitude) - 1
				}
			}
		},
	}
}

// FlashCrash injects a sharp drop at bar index at followed by a partial
// recovery spread evenly over recoveryBars. recovery is the fraction of the
// drop that is regained (e.g. 0.5 regains half).
func FlashCrash(at int, drop, recovery float64, recoveryBars int) Scenario {
	return Scenario{
		Name: fmt.Sprintf("flash_crash_%.0f%%", drop*100),
		Transform: func(returns map[string][]float64) {
			if recoveryBars < 1 {
				recoveryBars = 1
			}
			for _, rets := range returns {
				if at < 0 || at >= len(rets) {
					continue
				}
				rets[at] = (1+rets[at])*(1-drop) - 1
				if drop <= 0 || drop >= 1 || recovery <= 0 {
					continue
				}
				// Regain recovery*drop of the pre-crash price level,
				// compounded evenly over the recovery bars.
				regain := 1 + recovery*drop/(1-drop)
				perBar := math.Pow(regain, 1/float64(recoveryBars))
				for k := 1; k <= recoveryBars && at+k < len(rets); k++ {
					rets[at+k] = (1+rets[at+k])*perBar - 1
				}
			}
		},
	}
}

// VolatilitySpike inflates every symbol's return deviation from its mean by
// the multiplier, preserving the mean.
func VolatilitySpike(multiplier float64) Scenario {
	return Scenario{
		Name: fmt.Sprintf("volatility_spike_x%.1f", multiplier),
		Transform: func(returns map[string][]float64) {
			for _, rets := range returns {
				if len(rets) == 0 {
					continue
				}
				mean := 0.0
				for _, r := range rets {
					mean += r
				}
				mean /= float64(len(rets))
				for i := range rets {
					rets[i] = mean + (rets[i]-mean)*multiplier
				}
			}
		},
	}
}

// CorrelationBreakdown pushes cross-symbol co-movement toward the target.
// Each bar's returns decompose into the cross-sectional mean (the common
// component) and a per-symbol residual; blend=1 replaces every return with
// the common component (full correlation), blend=0 leaves returns untouched.
// target selects the blend: target 1 uses blend 1, target 0 inverts the
// blend so only residuals remain. This is deterministic by construction.
func CorrelationBreakdown(target float64) Scenario {
	if target < 0 {
		target = 0
	}
	if target > 1 {
		target = 1
	}
	return Scenario{
		Name: fmt.Sprintf("correlation_breakdown_to_%.1f", target),
		Transform: func(returns map[string][]float64) {
			if len(returns) < 2 {
				return
			}
			n := 0
			for _, rets := range returns {
				if len(rets) > n {
					n = len(rets)
				}
			}
			for t := 0; t < n; t++ {
				common := 0.0
				count := 0
				for _, rets := range returns {
					if t < len(rets) {
						common += rets[t]
						count++
					}
				}
				if count == 0 {
					continue
				}
				common /= float64(count)
				for _, rets := range returns {
					if t < len(rets) {
						residual := rets[t] - common
						// target 1: everything moves together.
						// target 0: only the idiosyncratic part survives.
						if target == 0 {
							rets[t] = residual
						} else {
							rets[t] = common + residual*(1-target)
						}
					}
				}
			}
		},
	}
}

// symbolReturns extracts close-to-close returns for each symbol.
func symbolReturns(data map[string][]types.Bar) map[string][]float64 {
	out := make(map[string][]float64, len(data))
	for sym, bars := range data {
		rets := make([]float64, 0, len(bars))
		for i := 1; i < len(bars); i++ {
			prev := bars[i-1].Close
			if prev == 0 {
				rets = append(rets, 0)
				continue
			}
			rets = append(rets, bars[i].Close/prev-1)
		}
		out[sym] = rets
	}
	return out
}
