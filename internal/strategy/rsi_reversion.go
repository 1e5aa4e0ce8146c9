package strategy

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/strategy-sandbox/internal/indicators"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// RSIReversion trades oversold bounces: buy when RSI drops below the
// oversold level, close the position when it rises above the overbought
// level. One position per symbol at a time.
type RSIReversion struct {
	Period     int
	Oversold   float64
	Overbought float64
	Fraction   float64

	holding map[string]bool
}

// NewRSIReversion creates a mean-reversion strategy. Zero levels select the
// conventional 30/70 thresholds.
func NewRSIReversion(period int, oversold, overbought, fraction float64) (*RSIReversion, error) {
	if period <= 1 {
		return nil, fmt.Errorf("rsi reversion: period must exceed 1, got %d", period)
	}
	if oversold == 0 {
		oversold = 30
	}
	if overbought == 0 {
		overbought = 70
	}
	if oversold >= overbought {
		return nil, fmt.Errorf("rsi reversion: oversold %v must be below overbought %v", oversold, overbought)
	}
	if fraction <= 0 {
		fraction = 0.1
	}
	return &RSIReversion{
		Period:     period,
		Oversold:   oversold,
		Overbought: overbought,
		Fraction:   fraction,
		holding:    make(map[string]bool),
	}, nil
}

func (s *RSIReversion) Name() string {
	return fmt.Sprintf("rsi_reversion_%d", s.Period)
}

func (s *RSIReversion) Reset() {
	s.holding = make(map[string]bool)
}

func (s *RSIReversion) Next(_ time.Time, history map[string][]types.Bar) ([]types.Signal, error) {
	var signals []types.Signal
	for _, symbol := range symbolsOf(history) {
		rsi, err := indicators.RSI(history[symbol], s.Period)
		if err != nil {
			continue // warmup
		}
		switch {
		case !s.holding[symbol] && rsi < s.Oversold:
			s.holding[symbol] = true
			signals = append(signals, types.Signal{
				Symbol:       symbol,
				Side:         types.SideBuy,
				SizeFraction: s.Fraction,
			})
		case s.holding[symbol] && rsi > s.Overbought:
			s.holding[symbol] = false
			signals = append(signals, types.Signal{
				Symbol: symbol,
				Side:   types.SideSell,
			})
		}
	}
	return signals, nil
}
