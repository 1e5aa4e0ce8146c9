package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ducminhle1904/strategy-sandbox/internal/simulator"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// WriteEquityCSV writes the equity curve as timestamp,equity,cash rows.
func WriteEquityCSV(curve []types.EquityPoint, path string) error {
	w, file, err := newCSVWriter(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.Write([]string{"timestamp", "equity", "cash"}); err != nil {
		return err
	}
	for _, p := range curve {
		record := []string{
			p.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(p.Equity, 'f', 8, 64),
			strconv.FormatFloat(p.Cash, 'f', 8, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTradesCSV writes the full trade log, rejections included.
func WriteTradesCSV(trades []simulator.Execution, path string) error {
	w, file, err := newCSVWriter(path)
	if err != nil {
		return err
	}
	defer file.Close()

	header := []string{"timestamp", "symbol", "side", "status", "quantity",
		"fill_price", "fee", "slippage_cost", "realized_pnl", "reason"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range trades {
		record := []string{
			e.Timestamp.Format(time.RFC3339),
			e.Symbol,
			e.Side,
			string(e.Status),
			strconv.FormatFloat(e.Quantity, 'f', 8, 64),
			strconv.FormatFloat(e.FillPrice, 'f', 8, 64),
			strconv.FormatFloat(e.Fee, 'f', 8, 64),
			strconv.FormatFloat(e.SlippageCost, 'f', 8, 64),
			strconv.FormatFloat(e.RealizedPnL, 'f', 8, 64),
			string(e.Reason),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func newCSVWriter(path string) (*csv.Writer, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return csv.NewWriter(file), file, nil
}
