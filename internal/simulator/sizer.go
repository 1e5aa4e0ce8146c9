package simulator

import (
	"math"
	"time"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// SizingMode selects how fraction-based signals are converted to quantities.
type SizingMode string

const (
	// SizingFixed uses the signal's fraction of current equity as-is.
	SizingFixed SizingMode = "fixed"
	// SizingVolatility scales the fraction inversely with recent realized
	// volatility so position risk stays roughly constant.
	SizingVolatility SizingMode = "volatility"
	// SizingKelly sizes by the Kelly criterion estimated from recent
	// returns, mean(r)/var(r), clipped to the position cap.
	SizingKelly SizingMode = "kelly"
)

// RebalanceFrequency gates how often fraction-based signals are re-applied.
type RebalanceFrequency string

const (
	RebalanceDaily   RebalanceFrequency = "daily"
	RebalanceWeekly  RebalanceFrequency = "weekly"
	RebalanceMonthly RebalanceFrequency = "monthly"
)

// SamePeriod reports whether a and b fall in the same rebalancing period.
func (rf RebalanceFrequency) SamePeriod(a, b time.Time) bool {
	switch rf {
	case RebalanceWeekly:
		ay, aw := a.ISOWeek()
		by, bw := b.ISOWeek()
		return ay == by && aw == bw
	case RebalanceMonthly:
		return a.Year() == b.Year() && a.Month() == b.Month()
	default: // daily
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd
	}
}

// SizerConfig controls position sizing for fraction-based signals.
type SizerConfig struct {
	Mode SizingMode
	// MaxPositionSize caps any single order at this fraction of equity.
	MaxPositionSize float64
	// VolTarget is the per-bar volatility the volatility mode normalizes
	// to. Zero selects a default of 1%.
	VolTarget float64
	// Lookback is the number of recent returns used by the volatility and
	// kelly modes. Zero selects 20.
	Lookback int
}

const (
	defaultVolTarget = 0.01
	defaultLookback  = 20
)

type sizer struct {
	cfg SizerConfig
}

func newSizer(cfg SizerConfig) *sizer {
	if cfg.Mode == "" {
		cfg.Mode = SizingFixed
	}
	if cfg.MaxPositionSize <= 0 {
		cfg.MaxPositionSize = 0.1
	}
	if cfg.VolTarget <= 0 {
		cfg.VolTarget = defaultVolTarget
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultLookback
	}
	return &sizer{cfg: cfg}
}

// quantity converts a signal into a base-asset quantity at the given price.
// Absolute quantities pass through untouched; fractions are adjusted by the
// sizing mode and capped at MaxPositionSize of equity.
func (s *sizer) quantity(sig types.Signal, equity, price float64, history []types.Bar) float64 {
	if sig.Quantity > 0 {
		return sig.Quantity
	}
	if sig.SizeFraction <= 0 || price <= 0 || equity <= 0 {
		return 0
	}

	fraction := sig.SizeFraction
	switch s.cfg.Mode {
	case SizingVolatility:
		if vol := s.recentVol(history); vol > 0 {
			fraction *= s.cfg.VolTarget / vol
		}
	case SizingKelly:
		if k := s.kellyFraction(history); k > 0 {
			fraction = math.Min(fraction, k)
		}
	}
	if fraction > s.cfg.MaxPositionSize {
		fraction = s.cfg.MaxPositionSize
	}
	return equity * fraction / price
}

func (s *sizer) recentReturns(history []types.Bar) []float64 {
	n := len(history)
	if n < 2 {
		return nil
	}
	start := n - s.cfg.Lookback - 1
	if start < 0 {
		start = 0
	}
	rets := make([]float64, 0, n-start-1)
	for i := start + 1; i < n; i++ {
		prev := history[i-1].Close
		if prev > 0 {
			rets = append(rets, history[i].Close/prev-1)
		}
	}
	return rets
}

func (s *sizer) recentVol(history []types.Bar) float64 {
	rets := s.recentReturns(history)
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	variance := 0.0
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(len(rets)-1))
}

func (s *sizer) kellyFraction(history []types.Bar) float64 {
	rets := s.recentReturns(history)
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	variance := 0.0
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rets) - 1)
	if variance == 0 || mean <= 0 {
		return 0
	}
	return mean / variance
}
