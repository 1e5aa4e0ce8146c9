package simulator

import (
	"time"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Position is the current holding in one symbol, carried at average cost.
type Position struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}

// Ledger tracks cash, positions, realized PnL and the equity curve for one
// run. Positions are mutated only through fills; equity is recorded once per
// bar so that equity(t) == cash(t) + sum(qty_i * mark_i) at every point.
type Ledger struct {
	cash        float64
	positions   map[string]Position
	tradeLog    []Execution
	equityCurve []types.EquityPoint
	realizedPnL float64
	totalFees   float64
}

// NewLedger creates a ledger holding only cash.
func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		cash:      initialCash,
		positions: make(map[string]Position),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// RealizedPnL returns the cumulative realized profit net of sell fees.
func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL }

// TotalFees returns the cumulative fees paid on all fills.
func (l *Ledger) TotalFees() float64 { return l.totalFees }

// Position returns the holding for symbol, zero-valued when flat.
func (l *Ledger) Position(symbol string) Position {
	if p, ok := l.positions[symbol]; ok {
		return p
	}
	return Position{Symbol: symbol}
}

// Positions returns a copy of all open positions.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		if p.Quantity > 0 {
			out = append(out, p)
		}
	}
	return out
}

// buy applies a buy fill: cash decreases by notional plus fee, and the fee
// is folded into the average cost basis.
func (l *Ledger) buy(symbol string, qty, fillPrice, fee float64) {
	p := l.Position(symbol)
	totalCost := p.AverageCost*p.Quantity + fillPrice*qty + fee
	p.Quantity += qty
	p.AverageCost = totalCost / p.Quantity
	l.positions[symbol] = p

	l.cash -= fillPrice*qty + fee
	l.totalFees += fee
}

// sell applies a sell fill for qty (already capped to the held quantity) and
// returns the realized PnL net of the fee.
func (l *Ledger) sell(symbol string, qty, fillPrice, fee float64) float64 {
	p := l.Position(symbol)
	pnl := (fillPrice-p.AverageCost)*qty - fee
	p.Quantity -= qty
	if p.Quantity <= 0 {
		delete(l.positions, symbol)
	} else {
		l.positions[symbol] = p
	}

	l.cash += fillPrice*qty - fee
	l.realizedPnL += pnl
	l.totalFees += fee
	return pnl
}

// UnrealizedPnL marks open positions against the given prices.
func (l *Ledger) UnrealizedPnL(marks map[string]float64) float64 {
	total := 0.0
	for sym, p := range l.positions {
		total += (marks[sym] - p.AverageCost) * p.Quantity
	}
	return total
}

// Equity is cash plus mark-to-market value of all positions.
func (l *Ledger) Equity(marks map[string]float64) float64 {
	equity := l.cash
	for sym, p := range l.positions {
		equity += p.Quantity * marks[sym]
	}
	return equity
}

// recordEquity appends one equity curve point at ts.
func (l *Ledger) recordEquity(ts time.Time, marks map[string]float64) {
	l.equityCurve = append(l.equityCurve, types.EquityPoint{
		Timestamp: ts,
		Equity:    l.Equity(marks),
		Cash:      l.cash,
	})
}

// record appends an execution to the trade log.
func (l *Ledger) record(exec Execution) {
	l.tradeLog = append(l.tradeLog, exec)
}
