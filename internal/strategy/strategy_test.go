package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// barsFromPrices builds an hourly series closing at the given prices.
func barsFromPrices(prices []float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		bars[i] = types.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      p,
			High:      p * 1.001,
			Low:       p * 0.999,
			Close:     p,
			Volume:    100,
			Timeframe: types.Timeframe1h,
		}
	}
	return bars
}

// feed replays the bars one at a time and collects every emitted signal with
// the bar index it fired on.
func feed(t *testing.T, s Strategy, bars []types.Bar) map[int][]types.Signal {
	t.Helper()
	out := make(map[int][]types.Signal)
	for i := range bars {
		sigs, err := s.Next(bars[i].Timestamp, map[string][]types.Bar{"BTCUSDT": bars[:i+1]})
		require.NoError(t, err)
		if len(sigs) > 0 {
			out[i] = sigs
		}
	}
	return out
}

// TestSMACross_BuyThenSell: a rise pushes the fast average above the slow one
// (buy), the following slump pushes it back below (sell).
func TestSMACross_BuyThenSell(t *testing.T) {
	prices := []float64{
		100, 100, 100, 100, 100, 100, // flat warmup
		110, 120, 130, 140, // rally: fast crosses above slow
		90, 70, 50, 40, // slump: fast crosses back below
	}
	s, err := NewSMACross(2, 4, 0.2)
	require.NoError(t, err)

	signals := feed(t, s, barsFromPrices(prices))

	var ordered []types.Signal
	for i := 0; i < len(prices); i++ {
		ordered = append(ordered, signals[i]...)
	}
	require.Len(t, ordered, 2)

	buy := ordered[0]
	assert.Equal(t, types.SideBuy, buy.Side)
	assert.Equal(t, "BTCUSDT", buy.Symbol)
	assert.Equal(t, 0.2, buy.SizeFraction)

	sell := ordered[1]
	assert.Equal(t, types.SideSell, sell.Side)
	assert.Zero(t, sell.SizeFraction, "a crossover exit closes the full position")
	assert.Zero(t, sell.Quantity)
}

// TestSMACross_NoSignalDuringWarmup: nothing fires before slow bars exist,
// and a series that never crosses stays silent.
func TestSMACross_NoSignalDuringWarmup(t *testing.T) {
	s, err := NewSMACross(3, 5, 0.1)
	require.NoError(t, err)

	// monotone rise: fast stays above slow from the first measurable bar,
	// so no edge is ever detected
	prices := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	signals := feed(t, s, barsFromPrices(prices))
	assert.Empty(t, signals)
}

// TestSMACross_ResetForgetsState: after a reset the strategy re-detects the
// same crossover on a replay.
func TestSMACross_ResetForgetsState(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 110, 120, 130}
	s, err := NewSMACross(2, 4, 0.1)
	require.NoError(t, err)

	first := feed(t, s, barsFromPrices(prices))
	require.NotEmpty(t, first)

	s.Reset()
	second := feed(t, s, barsFromPrices(prices))
	assert.Equal(t, first, second)
}

func TestNewSMACross_RejectsBadWindows(t *testing.T) {
	_, err := NewSMACross(10, 10, 0.1)
	assert.Error(t, err)
	_, err = NewSMACross(20, 10, 0.1)
	assert.Error(t, err)
	_, err = NewSMACross(0, 10, 0.1)
	assert.Error(t, err)
}

// TestBuyAndHold_BuysEachSymbolOnce across the whole run.
func TestBuyAndHold_BuysEachSymbolOnce(t *testing.T) {
	s := NewBuyAndHold(0.5)
	bars := barsFromPrices([]float64{100, 101, 102})
	history := map[string][]types.Bar{"BTCUSDT": bars, "ETHUSDT": bars}

	sigs, err := s.Next(bars[0].Timestamp, history)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	for _, sig := range sigs {
		assert.Equal(t, types.SideBuy, sig.Side)
		assert.Equal(t, 0.5, sig.SizeFraction)
	}

	sigs, err = s.Next(bars[1].Timestamp, history)
	require.NoError(t, err)
	assert.Empty(t, sigs)

	s.Reset()
	sigs, err = s.Next(bars[2].Timestamp, history)
	require.NoError(t, err)
	assert.Len(t, sigs, 2)
}

// TestRSIReversion_BuysOversoldSellsOverbought: a collapse drives RSI to the
// floor (buy), the rebound drives it back up (sell), and the strategy never
// doubles up while holding.
func TestBuyAndHold_SignalOrderIsSorted(t *testing.T) {
	bars := barsFromPrices([]float64{100})
	history := map[string][]types.Bar{
		"SOLUSDT": bars,
		"BTCUSDT": bars,
		"ETHUSDT": bars,
	}

	// Map iteration order varies; emitted order must not.
	for i := 0; i < 20; i++ {
		s := NewBuyAndHold(0.2)
		signals, err := s.Next(bars[0].Timestamp, history)
		require.NoError(t, err)
		require.Len(t, signals, 3)
		assert.Equal(t, "BTCUSDT", signals[0].Symbol, "run %d", i)
		assert.Equal(t, "ETHUSDT", signals[1].Symbol, "run %d", i)
		assert.Equal(t, "SOLUSDT", signals[2].Symbol, "run %d", i)
	}
}

func TestRSIReversion_BuysOversoldSellsOverbought(t *testing.T) {
	prices := []float64{
		100, 100, 100, 100, 100,
		95, 90, 85, 80, // straight down: RSI 0
		85, 90, 95, 100, 105, // straight back up: RSI 100
	}
	s, err := NewRSIReversion(4, 30, 70, 0.25)
	require.NoError(t, err)

	signals := feed(t, s, barsFromPrices(prices))

	var ordered []types.Signal
	for i := 0; i < len(prices); i++ {
		ordered = append(ordered, signals[i]...)
	}
	require.Len(t, ordered, 2)
	assert.Equal(t, types.SideBuy, ordered[0].Side)
	assert.Equal(t, 0.25, ordered[0].SizeFraction)
	assert.Equal(t, types.SideSell, ordered[1].Side)
	assert.Zero(t, ordered[1].SizeFraction)
}

func TestNewRSIReversion_Validation(t *testing.T) {
	_, err := NewRSIReversion(1, 30, 70, 0.1)
	assert.Error(t, err)
	_, err = NewRSIReversion(14, 70, 30, 0.1)
	assert.Error(t, err)

	s, err := NewRSIReversion(14, 0, 0, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 30.0, s.Oversold)
	assert.Equal(t, 70.0, s.Overbought)
}

// TestBuyAndHold_DefaultFractionSplitsEvenly: a zero fraction commits 1/n of
// equity per symbol.
func TestBuyAndHold_DefaultFractionSplitsEvenly(t *testing.T) {
	s := NewBuyAndHold(0)
	bars := barsFromPrices([]float64{100})
	history := map[string][]types.Bar{"BTCUSDT": bars, "ETHUSDT": bars}

	sigs, err := s.Next(bars[0].Timestamp, history)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, 0.5, sigs[0].SizeFraction)
	assert.Equal(t, 0.5, sigs[1].SizeFraction)
}
