// Package simulator replays historical bars through a trading strategy,
// applying fee and slippage frictions against a cash/position ledger, and
// produces an immutable result with the equity curve, trade log and
// performance metrics. One run is a single deterministic pass; batch-level
// analyses own independent ledgers and never share mutable state.
package simulator

import (
	"time"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// PriceRef selects the reference price a fill is derived from. The two modes
// must not be mixed within one run.
type PriceRef string

const (
	// SameBarClose fills at the close of the bar that produced the signal.
	SameBarClose PriceRef = "same_bar_close"
	// NextBarOpen fills at the open of the following bar. A signal on the
	// final bar cannot fill in this mode and is dropped.
	NextBarOpen PriceRef = "next_bar_open"
)

// ExecStatus tags an execution as filled or rejected.
type ExecStatus string

const (
	StatusFilled   ExecStatus = "FILLED"
	StatusRejected ExecStatus = "REJECTED"
)

// RejectReason explains a rejected execution. Rejections are ordinary trade
// log entries, not errors; the run continues.
type RejectReason string

const (
	ReasonInsufficientFunds    RejectReason = "InsufficientFunds"
	ReasonInsufficientPosition RejectReason = "InsufficientPosition"
	ReasonZeroQuantity         RejectReason = "ZeroQuantity"
)

// Execution is one trade log entry: either a fill with its frictions or a
// rejection with the reason. Immutable once created.
type Execution struct {
	Symbol       string       `json:"symbol"`
	Side         string       `json:"side"`
	Status       ExecStatus   `json:"status"`
	Quantity     float64      `json:"quantity"`
	FillPrice    float64      `json:"fill_price"`
	Fee          float64      `json:"fee"`
	SlippageCost float64      `json:"slippage_cost"`
	RealizedPnL  float64      `json:"realized_pnl"`
	Timestamp    time.Time    `json:"timestamp"`
	Reason       RejectReason `json:"reason,omitempty"`
}

// Filled reports whether the execution resulted in a fill.
func (e Execution) Filled() bool { return e.Status == StatusFilled }

// ExecutionConfig holds the friction parameters of the execution simulator.
type ExecutionConfig struct {
	// FeeRate is the fee charged on every fill as a fraction of notional.
	FeeRate float64
	// SlippageRate shifts the fill price adversely: buys fill at
	// ref*(1+rate), sells at ref*(1-rate).
	SlippageRate float64
	// PriceRef selects the reference price. Defaults to SameBarClose.
	PriceRef PriceRef
}

// executor turns signals into fills against a ledger. Fees and slippage are
// applied symmetrically on every fill, entries and exits alike.
type executor struct {
	cfg ExecutionConfig
}

func newExecutor(cfg ExecutionConfig) *executor {
	if cfg.PriceRef == "" {
		cfg.PriceRef = SameBarClose
	}
	return &executor{cfg: cfg}
}

// execute converts a sized signal into an execution and, on acceptance,
// updates the ledger atomically before returning.
func (x *executor) execute(sig types.Signal, quantity, refPrice float64, ts time.Time, ledger *Ledger) Execution {
	exec := Execution{
		Symbol:    sig.Symbol,
		Side:      sig.Side.String(),
		Status:    StatusRejected,
		Timestamp: ts,
	}
	if quantity <= 0 {
		exec.Reason = ReasonZeroQuantity
		return exec
	}

	switch sig.Side {
	case types.SideBuy:
		fillPrice := refPrice * (1 + x.cfg.SlippageRate)
		fee := quantity * fillPrice * x.cfg.FeeRate
		cost := quantity*fillPrice + fee
		if cost > ledger.Cash() {
			exec.Reason = ReasonInsufficientFunds
			return exec
		}
		ledger.buy(sig.Symbol, quantity, fillPrice, fee)
		exec.Status = StatusFilled
		exec.Quantity = quantity
		exec.FillPrice = fillPrice
		exec.Fee = fee
		exec.SlippageCost = quantity * (fillPrice - refPrice)

	case types.SideSell:
		held := ledger.Position(sig.Symbol).Quantity
		if held <= 0 {
			exec.Reason = ReasonInsufficientPosition
			return exec
		}
		// Oversized sells are capped to the held quantity; shorting is not
		// modeled.
		if quantity > held {
			quantity = held
		}
		fillPrice := refPrice * (1 - x.cfg.SlippageRate)
		fee := quantity * fillPrice * x.cfg.FeeRate
		pnl := ledger.sell(sig.Symbol, quantity, fillPrice, fee)
		exec.Status = StatusFilled
		exec.Quantity = quantity
		exec.FillPrice = fillPrice
		exec.Fee = fee
		exec.SlippageCost = quantity * (refPrice - fillPrice)
		exec.RealizedPnL = pnl

	default:
		exec.Reason = ReasonZeroQuantity
	}
	return exec
}
