package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

func barsFromPrices(prices []float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		bars[i] = types.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			Timeframe: types.Timeframe1h,
		}
	}
	return bars
}

func TestSMA(t *testing.T) {
	bars := barsFromPrices([]float64{1, 2, 3, 4, 5})

	v, err := SMA(bars, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v) // mean of 3,4,5

	v, err = SMA(bars, 5)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = SMA(bars, 6)
	assert.ErrorIs(t, err, ErrInsufficientBars)
	_, err = SMA(bars, 0)
	assert.ErrorIs(t, err, ErrInsufficientBars)
}

func TestEMA(t *testing.T) {
	bars := barsFromPrices([]float64{10, 10, 10, 10})
	v, err := EMA(bars, 3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v, "a flat series has a flat average")

	// seed = (1+2+3)/3 = 2, alpha = 0.5, then 4: 4*0.5 + 2*0.5 = 3
	bars = barsFromPrices([]float64{1, 2, 3, 4})
	v, err = EMA(bars, 3)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)

	_, err = EMA(bars, 5)
	assert.ErrorIs(t, err, ErrInsufficientBars)
}

func TestRSI(t *testing.T) {
	// straight up: no losses
	v, err := RSI(barsFromPrices([]float64{1, 2, 3, 4, 5}), 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	// straight down: no gains
	v, err = RSI(barsFromPrices([]float64{5, 4, 3, 2, 1}), 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	// equal gains and losses read neutral
	v, err = RSI(barsFromPrices([]float64{10, 11, 10, 11, 10}), 4)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, v, 1e-12)

	_, err = RSI(barsFromPrices([]float64{1, 2}), 4)
	assert.ErrorIs(t, err, ErrInsufficientBars)
}
