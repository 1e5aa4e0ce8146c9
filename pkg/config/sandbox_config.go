// Package config loads and validates sandbox run configuration from JSON
// files with environment-variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
	"github.com/ducminhle1904/strategy-sandbox/internal/montecarlo"
	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/internal/walkforward"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// SandboxConfig is the full configuration of a sandbox run: the dataset,
// execution frictions, sizing policy, and analysis settings.
type SandboxConfig struct {
	Symbols   []string        `json:"symbols"`
	Timeframe types.Timeframe `json:"timeframe"`
	DataRoot  string          `json:"data_root"`
	Start     string          `json:"start,omitempty"` // RFC3339 or "2006-01-02"
	End       string          `json:"end,omitempty"`

	InitialBalance  float64 `json:"initial_balance"`
	TransactionCost float64 `json:"transaction_cost"`
	Slippage        float64 `json:"slippage"`
	PriceReference  string  `json:"price_reference,omitempty"` // "close" or "next_open"

	PositionSizing       string  `json:"position_sizing"` // fixed, volatility, kelly
	MaxPositionSize      float64 `json:"max_position_size"`
	RebalancingFrequency string  `json:"rebalancing_frequency,omitempty"` // daily, weekly, monthly

	RiskFreeRate  float64 `json:"risk_free_rate"`
	VaRConfidence float64 `json:"var_confidence,omitempty"`

	MonteCarloSims int   `json:"monte_carlo_sims"`
	Seed           int64 `json:"seed,omitempty"`
	Workers        int   `json:"workers,omitempty"`

	WalkForward WalkForwardConfig `json:"walk_forward,omitempty"`
}

// WalkForwardConfig carries the split geometry in days.
type WalkForwardConfig struct {
	TrainDays int `json:"train_days"`
	TestDays  int `json:"test_days"`
	StepDays  int `json:"step_days,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *SandboxConfig {
	return &SandboxConfig{
		Symbols:         []string{"BTCUSDT"},
		Timeframe:       types.Timeframe1h,
		DataRoot:        "data",
		InitialBalance:  10000,
		TransactionCost: 0.001,
		Slippage:        0.0005,
		PositionSizing:  "fixed",
		MaxPositionSize: 0.1,
		RiskFreeRate:    0.02,
		VaRConfidence:   0.95,
		MonteCarloSims:  1000,
		Seed:            42,
		WalkForward:     WalkForwardConfig{TrainDays: 90, TestDays: 30},
	}
}

// Load reads the JSON file (when path is non-empty), applies environment
// overrides, and validates. Defaults fill anything the file omits.
func Load(path string) (*SandboxConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, simerrors.WrapData("config", "Load", err)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, simerrors.NewConfigError("config", "Load", "could not parse %s: %v", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SandboxConfig) applyEnv() {
	if v := getEnv("SANDBOX_SYMBOLS", ""); v != "" {
		c.Symbols = splitList(v)
	}
	if v := getEnv("SANDBOX_TIMEFRAME", ""); v != "" {
		c.Timeframe = types.Timeframe(v)
	}
	c.DataRoot = getEnv("SANDBOX_DATA_ROOT", c.DataRoot)
	c.InitialBalance = getEnvFloat("SANDBOX_INITIAL_BALANCE", c.InitialBalance)
	c.TransactionCost = getEnvFloat("SANDBOX_TRANSACTION_COST", c.TransactionCost)
	c.Slippage = getEnvFloat("SANDBOX_SLIPPAGE", c.Slippage)
	c.MonteCarloSims = getEnvInt("SANDBOX_MC_SIMS", c.MonteCarloSims)
	c.Seed = int64(getEnvInt("SANDBOX_SEED", int(c.Seed)))
	c.Workers = getEnvInt("SANDBOX_WORKERS", c.Workers)
}

// Validate checks ranges before any data is touched.
func (c *SandboxConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return simerrors.NewConfigError("config", "Validate", "at least one symbol required")
	}
	if !c.Timeframe.Valid() {
		return simerrors.NewConfigError("config", "Validate", "unknown timeframe %q", c.Timeframe)
	}
	if c.InitialBalance <= 0 {
		return simerrors.NewConfigError("config", "Validate", "initial_balance must be positive, got %v", c.InitialBalance)
	}
	if c.TransactionCost < 0 || c.TransactionCost >= 1 {
		return simerrors.NewConfigError("config", "Validate", "transaction_cost out of range [0,1): %v", c.TransactionCost)
	}
	if c.Slippage < 0 || c.Slippage >= 1 {
		return simerrors.NewConfigError("config", "Validate", "slippage out of range [0,1): %v", c.Slippage)
	}
	switch c.PositionSizing {
	case "", "fixed", "volatility", "kelly":
	default:
		return simerrors.NewConfigError("config", "Validate", "unknown position_sizing %q", c.PositionSizing)
	}
	switch c.RebalancingFrequency {
	case "", "daily", "weekly", "monthly":
	default:
		return simerrors.NewConfigError("config", "Validate", "unknown rebalancing_frequency %q", c.RebalancingFrequency)
	}
	if c.MaxPositionSize <= 0 || c.MaxPositionSize > 1 {
		return simerrors.NewConfigError("config", "Validate", "max_position_size out of range (0,1]: %v", c.MaxPositionSize)
	}
	if c.MonteCarloSims < 1 {
		return simerrors.NewConfigError("config", "Validate", "monte_carlo_sims must be at least 1, got %d", c.MonteCarloSims)
	}
	if c.VaRConfidence != 0 && (c.VaRConfidence <= 0 || c.VaRConfidence >= 1) {
		return simerrors.NewConfigError("config", "Validate", "var_confidence out of range (0,1): %v", c.VaRConfidence)
	}
	if _, err := c.TimeRange(); err != nil {
		return err
	}
	return nil
}

// TimeRange parses Start and End. Zero times mean unbounded.
func (c *SandboxConfig) TimeRange() ([2]time.Time, error) {
	var out [2]time.Time
	var err error
	if out[0], err = parseDate(c.Start); err != nil {
		return out, simerrors.NewConfigError("config", "TimeRange", "bad start %q: %v", c.Start, err)
	}
	if out[1], err = parseDate(c.End); err != nil {
		return out, simerrors.NewConfigError("config", "TimeRange", "bad end %q: %v", c.End, err)
	}
	if !out[0].IsZero() && !out[1].IsZero() && !out[0].Before(out[1]) {
		return out, simerrors.NewConfigError("config", "TimeRange", "start %s not before end %s", c.Start, c.End)
	}
	return out, nil
}

// EngineConfig builds the simulator configuration.
func (c *SandboxConfig) EngineConfig() simulator.Config {
	priceRef := simulator.SameBarClose
	if c.PriceReference == "next_open" {
		priceRef = simulator.NextBarOpen
	}
	return simulator.Config{
		InitialBalance: c.InitialBalance,
		Execution: simulator.ExecutionConfig{
			FeeRate:      c.TransactionCost,
			SlippageRate: c.Slippage,
			PriceRef:     priceRef,
		},
		Sizing: simulator.SizerConfig{
			Mode:            simulator.SizingMode(orDefault(c.PositionSizing, "fixed")),
			MaxPositionSize: c.MaxPositionSize,
		},
		Rebalance: simulator.RebalanceFrequency(c.RebalancingFrequency),
		Metrics: metrics.Config{
			PeriodsPerYear: c.Timeframe.BarsPerYear(),
			RiskFreeRate:   c.RiskFreeRate,
			VaRConfidence:  c.VaRConfidence,
		},
	}
}

// MonteCarloConfig builds the simulation engine configuration.
func (c *SandboxConfig) MonteCarloConfig() montecarlo.Config {
	return montecarlo.Config{
		NumSims: c.MonteCarloSims,
		Seed:    c.Seed,
		Workers: c.Workers,
	}
}

// WalkForwardSplit builds the fold geometry.
func (c *SandboxConfig) WalkForwardSplit() walkforward.SplitConfig {
	day := 24 * time.Hour
	return walkforward.SplitConfig{
		Train: time.Duration(c.WalkForward.TrainDays) * day,
		Test:  time.Duration(c.WalkForward.TestDays) * day,
		Step:  time.Duration(c.WalkForward.StepDays) * day,
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC3339 or 2006-01-02: %w", err)
	}
	return t, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
