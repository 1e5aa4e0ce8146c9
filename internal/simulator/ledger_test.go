package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLedger_AverageCostAbsorbsFees: buy fees raise the cost basis.
func TestLedger_AverageCostAbsorbsFees(t *testing.T) {
	l := NewLedger(1000)

	l.buy("BTCUSDT", 1, 100, 1)
	p := l.Position("BTCUSDT")
	assert.InDelta(t, 101.0, p.AverageCost, 1e-9)
	assert.InDelta(t, 899.0, l.Cash(), 1e-9)

	l.buy("BTCUSDT", 1, 110, 1.1)
	p = l.Position("BTCUSDT")
	assert.Equal(t, 2.0, p.Quantity)
	assert.InDelta(t, 106.05, p.AverageCost, 1e-9) // (101 + 110 + 1.1) / 2
}

// TestLedger_SellRealizesPnLNetOfFee: realized PnL is measured against the
// fee-laden basis, with the sell fee deducted.
func TestLedger_SellRealizesPnLNetOfFee(t *testing.T) {
	l := NewLedger(1000)
	l.buy("BTCUSDT", 2, 100, 2) // basis 101

	pnl := l.sell("BTCUSDT", 1, 120, 1.2)
	assert.InDelta(t, 17.8, pnl, 1e-9) // (120-101)*1 - 1.2
	assert.InDelta(t, 17.8, l.RealizedPnL(), 1e-9)

	p := l.Position("BTCUSDT")
	assert.Equal(t, 1.0, p.Quantity)
	assert.InDelta(t, 101.0, p.AverageCost, 1e-9) // basis unchanged by sells
}

// TestLedger_FullExitDeletesPosition: a flat symbol disappears from the book.
func TestLedger_FullExitDeletesPosition(t *testing.T) {
	l := NewLedger(1000)
	l.buy("BTCUSDT", 1, 100, 0)
	l.sell("BTCUSDT", 1, 105, 0)

	assert.Empty(t, l.Positions())
	assert.Equal(t, 0.0, l.Position("BTCUSDT").Quantity)
}

// TestLedger_CashConservation: cash + position value - fees accounts for
// every dollar through a buy/sell round trip.
func TestLedger_CashConservation(t *testing.T) {
	l := NewLedger(1000)

	l.buy("BTCUSDT", 2, 100, 0.2)
	l.sell("BTCUSDT", 2, 110, 0.22)
	require.Empty(t, l.Positions())

	// 1000 - 200 - 0.2 + 220 - 0.22
	assert.InDelta(t, 1019.58, l.Cash(), 1e-9)
	assert.InDelta(t, 0.42, l.TotalFees(), 1e-9)
	// Realized PnL = cash delta on a flat book.
	assert.InDelta(t, l.Cash()-1000, l.RealizedPnL(), 1e-9)
}

// TestLedger_EquityMarksOpenPositions: equity follows the mark price.
func TestLedger_EquityMarksOpenPositions(t *testing.T) {
	l := NewLedger(1000)
	l.buy("BTCUSDT", 3, 100, 0)

	marks := map[string]float64{"BTCUSDT": 120}
	assert.InDelta(t, 700+360, l.Equity(marks), 1e-9)
	assert.InDelta(t, 60.0, l.UnrealizedPnL(marks), 1e-9)
}
