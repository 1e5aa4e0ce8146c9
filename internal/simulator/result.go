package simulator

import (
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Result is the complete outcome of one backtest run. It is created once at
// the end of the run and never mutated afterwards.
type Result struct {
	Strategy    string              `json:"strategy"`
	TradeLog    []Execution         `json:"trade_log"`
	EquityCurve []types.EquityPoint `json:"equity_curve"`
	Metrics     metrics.Bundle      `json:"metrics"`

	StartEquity float64 `json:"start_equity"`
	EndEquity   float64 `json:"end_equity"`
	RealizedPnL float64 `json:"realized_pnl"`
	TotalFees   float64 `json:"total_fees"`
	Rejections  int     `json:"rejections"`
}

// Fills returns only the filled entries of the trade log.
func (r *Result) Fills() []Execution {
	var fills []Execution
	for _, e := range r.TradeLog {
		if e.Filled() {
			fills = append(fills, e)
		}
	}
	return fills
}

// ClosedTradePnLs returns the realized PnL of each closing fill, net of
// fees, in order. This is the trade-level series the metrics and Monte Carlo
// components consume.
func (r *Result) ClosedTradePnLs() []float64 {
	var pnls []float64
	for _, e := range r.TradeLog {
		if e.Filled() && e.Side == types.SideSell.String() {
			pnls = append(pnls, e.RealizedPnL)
		}
	}
	return pnls
}

// Returns computes the per-bar equity returns of the run.
func (r *Result) Returns() []float64 {
	if len(r.EquityCurve) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(r.EquityCurve)-1)
	for i := 1; i < len(r.EquityCurve); i++ {
		prev := r.EquityCurve[i-1].Equity
		if prev <= 0 {
			continue
		}
		rets = append(rets, r.EquityCurve[i].Equity/prev-1)
	}
	return rets
}
