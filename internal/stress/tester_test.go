package stress

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/strategy"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// generateUptrendBars builds an hourly series drifting upward with a small
// oscillation so returns are not constant.
func generateUptrendBars(n int) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)
	for i := range bars {
		price := 100.0 + float64(i)*0.2 + 1.5*math.Sin(float64(i)/4.0)
		bars[i] = types.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price * 0.9995,
			High:      price * 1.002,
			Low:       price * 0.998,
			Close:     price,
			Volume:    1000,
			Timeframe: types.Timeframe1h,
		}
	}
	return bars
}

func engineConfig() simulator.Config {
	return simulator.Config{
		InitialBalance: 10000,
		Execution: simulator.ExecutionConfig{
			FeeRate:      0.001,
			SlippageRate: 0.0005,
		},
		Sizing: simulator.SizerConfig{MaxPositionSize: 1.0},
	}
}

// TestRun_ZeroMagnitudeReproducesBaseline: a null shock must leave every
// price, fill and metric identical to the baseline run.
func TestRun_ZeroMagnitudeReproducesBaseline(t *testing.T) {
	data := map[string][]types.Bar{"BTCUSDT": generateUptrendBars(200)}
	tester, err := NewTester(Config{
		Scenarios: []Scenario{MarketCrash(100, 0)},
		Engine:    engineConfig(),
	})
	require.NoError(t, err)

	report, err := tester.Run(context.Background(), data, strategy.NewBuyAndHold(1.0))
	require.NoError(t, err)
	require.Len(t, report.Scenarios, 1)

	sc := report.Scenarios[0]
	require.False(t, sc.Failed, sc.Reason)

	baseRet, ok := report.Baseline.Metrics.TotalReturn.Float()
	require.True(t, ok)
	stressRet, ok := sc.Stressed.TotalReturn.Float()
	require.True(t, ok)
	// prices are rebuilt by compounding the extracted returns, so allow a
	// hair of floating point drift
	assert.InDelta(t, baseRet, stressRet, 1e-9)

	d, ok := sc.ReturnDelta.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.0, d, 1e-9)
}

// TestRun_UnitVolatilitySpikeIsIdentity: multiplier 1 leaves returns alone.
func TestRun_UnitVolatilitySpikeIsIdentity(t *testing.T) {
	data := map[string][]types.Bar{"BTCUSDT": generateUptrendBars(150)}
	tester, err := NewTester(Config{
		Scenarios: []Scenario{VolatilitySpike(1.0)},
		Engine:    engineConfig(),
	})
	require.NoError(t, err)

	report, err := tester.Run(context.Background(), data, strategy.NewBuyAndHold(1.0))
	require.NoError(t, err)

	d, ok := report.Scenarios[0].ReturnDelta.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.0, d, 1e-9)
}

// TestRun_CrashHurtsBuyAndHold: a mid-series 30% crash lowers the terminal
// return and deepens the drawdown of a fully invested buy-and-hold.
func TestRun_CrashHurtsBuyAndHold(t *testing.T) {
	data := map[string][]types.Bar{"BTCUSDT": generateUptrendBars(300)}
	tester, err := NewTester(Config{
		Scenarios: []Scenario{MarketCrash(150, 0.30)},
		Engine:    engineConfig(),
	})
	require.NoError(t, err)

	report, err := tester.Run(context.Background(), data, strategy.NewBuyAndHold(1.0))
	require.NoError(t, err)

	sc := report.Scenarios[0]
	require.False(t, sc.Failed, sc.Reason)

	retDelta, ok := sc.ReturnDelta.Float()
	require.True(t, ok)
	assert.Less(t, retDelta, 0.0)

	ddDelta, ok := sc.DrawdownDelta.Float()
	require.True(t, ok)
	assert.Greater(t, ddDelta, 0.2, "a 30%% shock must deepen max drawdown materially")
}

// TestRun_ScenariosDoNotCompound: the same scenario listed twice yields two
// identical reports because each run shocks a fresh copy of the data.
func TestRun_ScenariosDoNotCompound(t *testing.T) {
	data := map[string][]types.Bar{"BTCUSDT": generateUptrendBars(200)}
	tester, err := NewTester(Config{
		Scenarios: []Scenario{MarketCrash(100, 0.2), MarketCrash(100, 0.2)},
		Engine:    engineConfig(),
	})
	require.NoError(t, err)

	report, err := tester.Run(context.Background(), data, strategy.NewBuyAndHold(1.0))
	require.NoError(t, err)
	require.Len(t, report.Scenarios, 2)

	first, ok := report.Scenarios[0].Stressed.TotalReturn.Float()
	require.True(t, ok)
	second, ok := report.Scenarios[1].Stressed.TotalReturn.Float()
	require.True(t, ok)
	assert.Equal(t, first, second)
}

// TestRun_PriceDrivenNonPositiveFailsScenario: a shock that wipes out the
// price marks the scenario failed without aborting the batch.
func TestRun_PriceDrivenNonPositiveFailsScenario(t *testing.T) {
	data := map[string][]types.Bar{"BTCUSDT": generateUptrendBars(100)}
	tester, err := NewTester(Config{
		Scenarios: []Scenario{MarketCrash(50, 1.0), MarketCrash(50, 0.1)},
		Engine:    engineConfig(),
	})
	require.NoError(t, err)

	report, err := tester.Run(context.Background(), data, strategy.NewBuyAndHold(1.0))
	require.NoError(t, err)
	require.Len(t, report.Scenarios, 2)

	assert.True(t, report.Scenarios[0].Failed)
	assert.Contains(t, report.Scenarios[0].Reason, "non-positive")
	assert.False(t, report.Scenarios[1].Failed)
}

// TestNewTester_Validation rejects bad engine settings and empty scenario lists.
func TestNewTester_Validation(t *testing.T) {
	_, err := NewTester(Config{Scenarios: []Scenario{VolatilitySpike(2)}, Engine: simulator.Config{}})
	require.Error(t, err)
	assert.True(t, simerrors.IsConfig(err))

	_, err = NewTester(Config{Engine: engineConfig()})
	require.Error(t, err)
	assert.True(t, simerrors.IsConfig(err))
}

// TestCorrelationBreakdown_FullTargetEqualizesReturns: at target 1 every
// symbol carries the cross-sectional mean return on every bar.
func TestCorrelationBreakdown_FullTargetEqualizesReturns(t *testing.T) {
	returns := map[string][]float64{
		"AAA": {0.01, -0.02, 0.03},
		"BBB": {0.03, 0.02, -0.01},
	}
	CorrelationBreakdown(1).Transform(returns)

	for i := 0; i < 3; i++ {
		assert.InDelta(t, returns["AAA"][i], returns["BBB"][i], 1e-12)
	}
	assert.InDelta(t, 0.02, returns["AAA"][0], 1e-12)
	assert.InDelta(t, 0.0, returns["AAA"][1], 1e-12)
	assert.InDelta(t, 0.01, returns["AAA"][2], 1e-12)
}

// TestFlashCrash_PartialRecovery: the price after the recovery window sits
// between the crash low and the unshocked level.
func TestFlashCrash_PartialRecovery(t *testing.T) {
	bars := generateUptrendBars(100)
	data := map[string][]types.Bar{"BTCUSDT": bars}

	returns := symbolReturns(data)
	FlashCrash(50, 0.4, 0.5, 10).Transform(returns)
	shocked, err := rebuildPrices(data, returns)
	require.NoError(t, err)

	orig := bars
	got := shocked["BTCUSDT"]

	// bar 51 carries the crash (return index 50)
	assert.InDelta(t, orig[51].Close*0.6, got[51].Close, 1e-9)

	// after the recovery window, half the drop is regained
	idx := 51 + 10
	wantRatio := 0.6 * (1 + 0.5*0.4/0.6)
	assert.InDelta(t, orig[idx].Close*wantRatio, got[idx].Close, 1e-6)
	assert.Greater(t, got[idx].Close, got[51].Close)
	assert.Less(t, got[idx].Close, orig[idx].Close)
}
