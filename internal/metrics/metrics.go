// Package metrics derives risk and return statistics from an equity curve
// and a realized trade log. Ratios with degenerate denominators are reported
// as undefined Values, never coerced to zero and never raised as errors.
package metrics

import (
	"math"
	"sort"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Config controls annualization and tail-risk parameters.
type Config struct {
	// PeriodsPerYear is the number of bars in a year for the series
	// timeframe, e.g. types.Timeframe1h.BarsPerYear().
	PeriodsPerYear float64
	// RiskFreeRate is the annual risk-free rate used by Sharpe.
	RiskFreeRate float64
	// VaRConfidence is the confidence level for VaR/CVaR, e.g. 0.95.
	VaRConfidence float64
}

// DefaultConfig returns the config used when a caller passes the zero value.
func DefaultConfig() Config {
	return Config{
		PeriodsPerYear: types.Timeframe1h.BarsPerYear(),
		RiskFreeRate:   0.02,
		VaRConfidence:  0.95,
	}
}

// Bundle is the full set of performance statistics for one run.
type Bundle struct {
	TotalReturn      Value `json:"total_return"`
	AnnualizedReturn Value `json:"annualized_return"`
	Sharpe           Value `json:"sharpe"`
	Sortino          Value `json:"sortino"`
	Calmar           Value `json:"calmar"`
	MaxDrawdown      Value `json:"max_drawdown"`
	VaR              Value `json:"var"`
	CVaR             Value `json:"cvar"`
	WinRate          Value `json:"win_rate"`
	ProfitFactor     Value `json:"profit_factor"`
	AverageWin       Value `json:"average_win"`
	AverageLoss      Value `json:"average_loss"`
	TotalTrades      int   `json:"total_trades"`
	WinningTrades    int   `json:"winning_trades"`
	LosingTrades     int   `json:"losing_trades"`
}

// Compute summarizes an equity curve and the realized PnL of closed trades.
// tradePnLs carries one entry per closing fill, net of fees.
func Compute(curve []types.EquityPoint, tradePnLs []float64, cfg Config) Bundle {
	if cfg.PeriodsPerYear <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.VaRConfidence <= 0 || cfg.VaRConfidence >= 1 {
		cfg.VaRConfidence = 0.95
	}

	var b Bundle
	returns := periodReturns(curve)

	b.TotalReturn = totalReturn(curve)
	b.AnnualizedReturn = annualizedReturn(curve, cfg.PeriodsPerYear)
	b.MaxDrawdown = maxDrawdown(curve)
	b.Sharpe = sharpe(returns, cfg)
	b.Sortino = sortino(returns, cfg)
	b.Calmar = calmar(b.AnnualizedReturn, b.MaxDrawdown)
	b.VaR, b.CVaR = valueAtRisk(returns, cfg.VaRConfidence)

	b.TotalTrades = len(tradePnLs)
	grossProfit, grossLoss := 0.0, 0.0
	for _, pnl := range tradePnLs {
		if pnl > 0 {
			b.WinningTrades++
			grossProfit += pnl
		} else {
			b.LosingTrades++
			grossLoss += -pnl
		}
	}
	if b.TotalTrades > 0 {
		b.WinRate = Def(float64(b.WinningTrades) / float64(b.TotalTrades))
	}
	if grossLoss > 0 {
		b.ProfitFactor = Def(grossProfit / grossLoss)
	}
	if b.WinningTrades > 0 {
		b.AverageWin = Def(grossProfit / float64(b.WinningTrades))
	}
	if b.LosingTrades > 0 {
		b.AverageLoss = Def(-grossLoss / float64(b.LosingTrades))
	}
	return b
}

// periodReturns computes per-bar equity returns r_t = e_t/e_{t-1} - 1.
func periodReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		rets = append(rets, curve[i].Equity/prev-1)
	}
	return rets
}

func totalReturn(curve []types.EquityPoint) Value {
	if len(curve) < 2 || curve[0].Equity <= 0 {
		return Undef()
	}
	return Def(curve[len(curve)-1].Equity/curve[0].Equity - 1)
}

func annualizedReturn(curve []types.EquityPoint, periodsPerYear float64) Value {
	n := len(curve) - 1
	if n < 1 || curve[0].Equity <= 0 || curve[len(curve)-1].Equity <= 0 {
		return Undef()
	}
	growth := curve[len(curve)-1].Equity / curve[0].Equity
	return Def(math.Pow(growth, periodsPerYear/float64(n)) - 1)
}

// maxDrawdown is the largest peak-to-trough equity decline across the whole
// run, as a positive fraction of the peak.
func maxDrawdown(curve []types.EquityPoint) Value {
	if len(curve) == 0 {
		return Undef()
	}
	peak := curve[0].Equity
	maxDD := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return Def(maxDD)
}

func sharpe(returns []float64, cfg Config) Value {
	if len(returns) < 2 {
		return Undef()
	}
	sd := StdDev(returns)
	if sd == 0 {
		return Undef()
	}
	excess := Mean(returns) - cfg.RiskFreeRate/cfg.PeriodsPerYear
	return Def(excess / sd * math.Sqrt(cfg.PeriodsPerYear))
}

// sortino uses downside deviation below a zero target: the root mean square
// of negative returns over the full sample count.
func sortino(returns []float64, cfg Config) Value {
	if len(returns) < 2 {
		return Undef()
	}
	downside := 0.0
	hasDownside := false
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			hasDownside = true
		}
	}
	if !hasDownside {
		return Undef()
	}
	dd := math.Sqrt(downside / float64(len(returns)))
	excess := Mean(returns) - cfg.RiskFreeRate/cfg.PeriodsPerYear
	return Def(excess / dd * math.Sqrt(cfg.PeriodsPerYear))
}

func calmar(annualized, maxDD Value) Value {
	ar, ok := annualized.Float()
	if !ok {
		return Undef()
	}
	dd, ok := maxDD.Float()
	if !ok || dd == 0 {
		return Undef()
	}
	return Def(ar / dd)
}

// valueAtRisk returns VaR and CVaR at confidence c: VaR is the negative of
// the (1-c) return percentile, CVaR the negative mean of returns at or below
// that threshold.
func valueAtRisk(returns []float64, confidence float64) (Value, Value) {
	if len(returns) == 0 {
		return Undef(), Undef()
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	threshold := percentileSorted(sorted, (1-confidence)*100)
	varValue := Def(-threshold)

	tailSum, tailCount := 0.0, 0
	for _, r := range sorted {
		if r <= threshold {
			tailSum += r
			tailCount++
		}
	}
	if tailCount == 0 {
		return varValue, Undef()
	}
	return varValue, Def(-tailSum / float64(tailCount))
}
