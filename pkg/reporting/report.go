// Package reporting renders sandbox runs to the console, JSON, CSV, and
// Excel workbooks.
package reporting

import (
	"time"

	"github.com/ducminhle1904/strategy-sandbox/internal/correlation"
	"github.com/ducminhle1904/strategy-sandbox/internal/montecarlo"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/stress"
	"github.com/ducminhle1904/strategy-sandbox/internal/walkforward"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// RunReport collects everything a sandbox run produced. Sections the run
// did not execute stay nil and are skipped by every renderer.
type RunReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Symbols     []string        `json:"symbols"`
	Timeframe   types.Timeframe `json:"timeframe"`
	Strategy    string          `json:"strategy"`

	Backtest    *simulator.Result   `json:"backtest,omitempty"`
	MonteCarlo  *montecarlo.Result  `json:"monte_carlo,omitempty"`
	WalkForward *walkforward.Report `json:"walk_forward,omitempty"`
	Correlation *correlation.Matrix `json:"correlation,omitempty"`
	Stress      *stress.Report      `json:"stress,omitempty"`
}
