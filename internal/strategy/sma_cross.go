package strategy

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/strategy-sandbox/internal/indicators"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// SMACross trades a simple moving average crossover: buy when the fast
// average crosses above the slow one, sell the full position when it crosses
// back below. Signals are emitted per symbol independently.
type SMACross struct {
	Fast     int
	Slow     int
	Fraction float64

	// previous fast-above-slow state per symbol, for edge detection.
	above map[string]bool
}

// NewSMACross creates a crossover strategy. fast must be smaller than slow.
func NewSMACross(fast, slow int, fraction float64) (*SMACross, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("sma cross: invalid windows fast=%d slow=%d", fast, slow)
	}
	if fraction <= 0 {
		fraction = 0.1
	}
	return &SMACross{Fast: fast, Slow: slow, Fraction: fraction, above: make(map[string]bool)}, nil
}

func (s *SMACross) Name() string {
	return fmt.Sprintf("sma_cross_%d_%d", s.Fast, s.Slow)
}

func (s *SMACross) Reset() {
	s.above = make(map[string]bool)
}

func (s *SMACross) Next(_ time.Time, history map[string][]types.Bar) ([]types.Signal, error) {
	var signals []types.Signal
	for _, symbol := range symbolsOf(history) {
		bars := history[symbol]
		fast, err := indicators.SMA(bars, s.Fast)
		if err != nil {
			continue // warmup
		}
		slow, err := indicators.SMA(bars, s.Slow)
		if err != nil {
			continue
		}
		above := fast > slow

		wasAbove, seen := s.above[symbol]
		s.above[symbol] = above
		if !seen || above == wasAbove {
			continue
		}
		if above {
			signals = append(signals, types.Signal{
				Symbol:       symbol,
				Side:         types.SideBuy,
				SizeFraction: s.Fraction,
			})
		} else {
			// A sell with no size closes the full position.
			signals = append(signals, types.Signal{
				Symbol: symbol,
				Side:   types.SideSell,
			})
		}
	}
	return signals, nil
}
