package metrics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

func curveFromEquities(equities []float64) []types.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]types.EquityPoint, len(equities))
	for i, e := range equities {
		curve[i] = types.EquityPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Equity:    e,
			Cash:      e,
		}
	}
	return curve
}

// TestValueDef_RejectsNaNAndInf ensures non-finite inputs become undefined.
func TestValueDef_RejectsNaNAndInf(t *testing.T) {
	assert.False(t, Def(math.NaN()).Defined())
	assert.False(t, Def(math.Inf(1)).Defined())
	assert.False(t, Def(math.Inf(-1)).Defined())
	assert.True(t, Def(0).Defined())
}

// TestValueJSON_NullRoundTrip checks undefined values serialize as null and back.
func TestValueJSON_NullRoundTrip(t *testing.T) {
	raw, err := json.Marshal(Undef())
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	var v Value
	require.NoError(t, json.Unmarshal([]byte("null"), &v))
	assert.False(t, v.Defined())

	require.NoError(t, json.Unmarshal([]byte("1.25"), &v))
	f, ok := v.Float()
	assert.True(t, ok)
	assert.Equal(t, 1.25, f)
}

// TestValueString_UndefinedIsNA keeps reports from showing fake zeros.
func TestValueString_UndefinedIsNA(t *testing.T) {
	assert.Equal(t, "n/a", Undef().String())
	assert.Equal(t, "0.5000", Def(0.5).String())
}

// TestPercentile_LinearInterpolation checks the order-statistic interpolation.
func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}

	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 3.0, Percentile(values, 50))
	assert.Equal(t, 5.0, Percentile(values, 100))
	assert.InDelta(t, 1.2, Percentile(values, 5), 1e-9)
}

// TestStdDev_SampleVariance uses the n-1 denominator.
func TestStdDev_SampleVariance(t *testing.T) {
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, StdDev([]float64{5}))
}

// TestCompute_MaxDrawdown checks the peak-to-trough decline on a known curve.
func TestCompute_MaxDrawdown(t *testing.T) {
	b := Compute(curveFromEquities([]float64{100, 120, 90, 110}), nil, DefaultConfig())

	dd, ok := b.MaxDrawdown.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.25, dd, 1e-9) // (120-90)/120
}

// TestCompute_FlatCurveSharpeUndefined: zero-variance returns have no Sharpe.
func TestCompute_FlatCurveSharpeUndefined(t *testing.T) {
	b := Compute(curveFromEquities([]float64{100, 100, 100, 100}), nil, DefaultConfig())

	tr, ok := b.TotalReturn.Float()
	require.True(t, ok)
	assert.Equal(t, 0.0, tr)
	assert.False(t, b.Sharpe.Defined())
	assert.False(t, b.Sortino.Defined()) // no downside either
	assert.False(t, b.Calmar.Defined())  // drawdown is zero
}

// TestCompute_ProfitFactorUndefinedWithoutLosses: zero gross loss means no ratio.
func TestCompute_ProfitFactorUndefinedWithoutLosses(t *testing.T) {
	b := Compute(curveFromEquities([]float64{100, 105, 110}), []float64{5, 3}, DefaultConfig())

	assert.False(t, b.ProfitFactor.Defined())
	assert.False(t, b.AverageLoss.Defined())
	assert.Equal(t, 2, b.WinningTrades)
	assert.Equal(t, 0, b.LosingTrades)

	wr, ok := b.WinRate.Float()
	require.True(t, ok)
	assert.Equal(t, 1.0, wr)
}

// TestCompute_TradeStats checks win/loss bookkeeping on mixed trades.
func TestCompute_TradeStats(t *testing.T) {
	b := Compute(curveFromEquities([]float64{100, 104, 102}), []float64{10, -4, 6}, DefaultConfig())

	assert.Equal(t, 3, b.TotalTrades)
	assert.Equal(t, 2, b.WinningTrades)
	assert.Equal(t, 1, b.LosingTrades)

	pf, ok := b.ProfitFactor.Float()
	require.True(t, ok)
	assert.InDelta(t, 4.0, pf, 1e-9) // 16 / 4

	aw, _ := b.AverageWin.Float()
	al, _ := b.AverageLoss.Float()
	assert.InDelta(t, 8.0, aw, 1e-9)
	assert.InDelta(t, -4.0, al, 1e-9)
}

// TestCompute_VaRAndCVaR: CVaR bounds VaR from above on a losing tail.
func TestCompute_VaRAndCVaR(t *testing.T) {
	// Equity path with a deep single-bar loss in the tail.
	b := Compute(curveFromEquities([]float64{100, 101, 102, 103, 104, 105, 95, 96, 97, 98, 99}), nil, Config{
		PeriodsPerYear: 8766,
		RiskFreeRate:   0.02,
		VaRConfidence:  0.95,
	})

	v, ok := b.VaR.Float()
	require.True(t, ok)
	c, ok := b.CVaR.Float()
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
	assert.GreaterOrEqual(t, c, v)
}

// TestCompute_ShortCurveUndefined: one point cannot produce returns.
func TestCompute_ShortCurveUndefined(t *testing.T) {
	b := Compute(curveFromEquities([]float64{100}), nil, DefaultConfig())

	assert.False(t, b.TotalReturn.Defined())
	assert.False(t, b.Sharpe.Defined())
	assert.False(t, b.VaR.Defined())
}

// TestCompute_AnnualizedReturn: growth compounds by periods per year.
func TestCompute_AnnualizedReturn(t *testing.T) {
	cfg := Config{PeriodsPerYear: 2, RiskFreeRate: 0, VaRConfidence: 0.95}
	// Two periods covering exactly one "year", +21% total.
	b := Compute(curveFromEquities([]float64{100, 110, 121}), nil, cfg)

	ar, ok := b.AnnualizedReturn.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.21, ar, 1e-9)
}
