package main

import (
	"strings"

	"github.com/ducminhle1904/strategy-sandbox/pkg/config"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// overrides carries command-line values onto the loaded configuration.
// Sentinel values (empty string, zero, -1 for rates) mean "not set".
type overrides struct {
	symbols     string
	interval    string
	dataRoot    string
	start       string
	end         string
	balance     float64
	commission  float64
	slippage    float64
	mcSims      int
	seed        int64
	workers     int
	wfTrainDays int
	wfTestDays  int
	wfStepDays  int
}

func applyFlagOverrides(cfg *config.SandboxConfig, o overrides) {
	if o.symbols != "" {
		var symbols []string
		for _, s := range strings.Split(o.symbols, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		cfg.Symbols = symbols
	}
	if o.interval != "" {
		cfg.Timeframe = types.Timeframe(o.interval)
	}
	if o.dataRoot != "" {
		cfg.DataRoot = o.dataRoot
	}
	if o.start != "" {
		cfg.Start = o.start
	}
	if o.end != "" {
		cfg.End = o.end
	}
	if o.balance > 0 {
		cfg.InitialBalance = o.balance
	}
	if o.commission >= 0 {
		cfg.TransactionCost = o.commission
	}
	if o.slippage >= 0 {
		cfg.Slippage = o.slippage
	}
	if o.mcSims > 0 {
		cfg.MonteCarloSims = o.mcSims
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.wfTrainDays > 0 {
		cfg.WalkForward.TrainDays = o.wfTrainDays
	}
	if o.wfTestDays > 0 {
		cfg.WalkForward.TestDays = o.wfTestDays
	}
	if o.wfStepDays > 0 {
		cfg.WalkForward.StepDays = o.wfStepDays
	}
}
