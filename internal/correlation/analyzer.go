// Package correlation computes pairwise and rolling Pearson correlation
// across symbols, with explicit regime labeling of each rolling point.
package correlation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/internal/workerpool"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// RegimeMode selects the labeling policy. The policy is fixed by config and
// recorded on the result, never chosen per run by the implementation.
type RegimeMode string

const (
	// RegimeAbsolute labels a rolling point high when |corr| >= Threshold.
	RegimeAbsolute RegimeMode = "absolute"
	// RegimePercentile labels a point high when |corr| is at or above the
	// pair's own Percentile-th percentile of |corr| over the full window.
	RegimePercentile RegimeMode = "percentile"
)

const (
	RegimeHigh = "high"
	RegimeLow  = "low"
)

// RegimeConfig is the explicit threshold policy.
type RegimeConfig struct {
	Mode       RegimeMode
	Threshold  float64 // used by RegimeAbsolute, default 0.7
	Percentile float64 // used by RegimePercentile, default 75
}

func (c RegimeConfig) withDefaults() RegimeConfig {
	if c.Mode == "" {
		c.Mode = RegimeAbsolute
	}
	if c.Threshold == 0 {
		c.Threshold = 0.7
	}
	if c.Percentile == 0 {
		c.Percentile = 75
	}
	return c
}

// Config controls the analysis.
type Config struct {
	// Window is the rolling correlation window in return samples.
	// Zero selects 30.
	Window  int
	Regime  RegimeConfig
	Workers int
}

// RollingPoint is one rolling correlation sample with its regime label.
type RollingPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Regime    string    `json:"regime"`
}

// Matrix is the full-window correlation grid plus per-pair rolling series.
// Grid is symmetric with a unit diagonal; a pair with a zero-variance return
// series has an undefined correlation, reported as such rather than zero.
type Matrix struct {
	Symbols      []string                  `json:"symbols"`
	Grid         [][]metrics.Value         `json:"matrix"`
	Rolling      map[string][]RollingPoint `json:"rolling_series"`
	RegimePolicy RegimeConfig              `json:"regime_policy"`
}

// PairKey names a symbol pair in the rolling series map.
func PairKey(a, b string) string { return a + "/" + b }

// Analyze computes the correlation matrix and rolling series for the given
// aligned multi-symbol bars. Pairs are computed on a bounded worker pool;
// each pair owns its result cells.
func Analyze(ctx context.Context, data map[string][]types.Bar, cfg Config) (*Matrix, error) {
	if len(data) < 2 {
		return nil, simerrors.NewDataError("correlation", "analyze", "need at least two symbols, got %d", len(data))
	}
	if cfg.Window <= 0 {
		cfg.Window = 30
	}
	cfg.Regime = cfg.Regime.withDefaults()

	symbols, returns, timestamps, err := alignedReturns(data)
	if err != nil {
		return nil, err
	}

	n := len(symbols)
	m := &Matrix{
		Symbols:      symbols,
		Grid:         make([][]metrics.Value, n),
		Rolling:      make(map[string][]RollingPoint),
		RegimePolicy: cfg.Regime,
	}
	for i := range m.Grid {
		m.Grid[i] = make([]metrics.Value, n)
		m.Grid[i][i] = metrics.Def(1)
	}

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	rollings := make([][]RollingPoint, len(pairs))
	_, err = workerpool.Run(ctx, len(pairs), cfg.Workers, func(k int) error {
		p := pairs[k]
		x, y := returns[p.i], returns[p.j]

		corr := pearson(x, y)
		m.Grid[p.i][p.j] = corr
		m.Grid[p.j][p.i] = corr

		rollings[k] = rollingSeries(x, y, timestamps, cfg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}

	for k, p := range pairs {
		m.Rolling[PairKey(symbols[p.i], symbols[p.j])] = rollings[k]
	}
	return m, nil
}

// pearson returns the Pearson coefficient of two equal-length series, or
// undefined when either side has zero variance.
func pearson(x, y []float64) metrics.Value {
	if len(x) != len(y) || len(x) < 2 {
		return metrics.Undef()
	}
	mx, my := metrics.Mean(x), metrics.Mean(y)
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return metrics.Undef()
	}
	return metrics.Def(cov / math.Sqrt(vx*vy))
}

// rollingSeries computes fixed-window correlations and labels each point.
func rollingSeries(x, y []float64, timestamps []time.Time, cfg Config) []RollingPoint {
	w := cfg.Window
	if len(x) < w {
		return nil
	}
	points := make([]RollingPoint, 0, len(x)-w+1)
	for t := w; t <= len(x); t++ {
		v := pearson(x[t-w:t], y[t-w:t])
		val, ok := v.Float()
		if !ok {
			continue
		}
		points = append(points, RollingPoint{
			// return sample t-1 corresponds to the bar at index t.
			Timestamp: timestamps[t],
			Value:     val,
		})
	}
	labelRegimes(points, cfg.Regime)
	return points
}

func labelRegimes(points []RollingPoint, cfg RegimeConfig) {
	threshold := cfg.Threshold
	if cfg.Mode == RegimePercentile {
		abs := make([]float64, len(points))
		for i, p := range points {
			abs[i] = math.Abs(p.Value)
		}
		threshold = metrics.Percentile(abs, cfg.Percentile)
	}
	for i := range points {
		if math.Abs(points[i].Value) >= threshold {
			points[i].Regime = RegimeHigh
		} else {
			points[i].Regime = RegimeLow
		}
	}
}

// alignedReturns validates alignment and extracts per-symbol return series
// plus the shared bar timestamps.
func alignedReturns(data map[string][]types.Bar) ([]string, [][]float64, []time.Time, error) {
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	ref := data[symbols[0]]
	if len(ref) < 2 {
		return nil, nil, nil, simerrors.NewDataError("correlation", "align", "need at least two bars per symbol")
	}
	timestamps := make([]time.Time, len(ref))
	for i, b := range ref {
		timestamps[i] = b.Timestamp
	}

	returns := make([][]float64, len(symbols))
	for i, sym := range symbols {
		bars := data[sym]
		if len(bars) != len(ref) {
			return nil, nil, nil, simerrors.NewDataError("correlation", "align", "symbol %s has %d bars, want %d", sym, len(bars), len(ref))
		}
		returns[i] = types.NewBarSeries(bars).Returns()
	}
	return symbols, returns, timestamps, nil
}
