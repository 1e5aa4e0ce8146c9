package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
)

// ExcelReporter writes the run as a multi-sheet workbook.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter { return &ExcelReporter{} }

type excelStyles struct {
	header int
	base   int
	money  int
	pct    int
}

// Write renders the populated report sections, one sheet each.
func (r *ExcelReporter) Write(report *RunReport, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	const summarySheet = "Summary"
	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if err := r.writeSummary(fx, summarySheet, report, styles); err != nil {
		return err
	}

	if report.Backtest != nil {
		if err := r.writeEquity(fx, report, styles); err != nil {
			return err
		}
		if err := r.writeTrades(fx, report, styles); err != nil {
			return err
		}
	}
	if report.MonteCarlo != nil {
		if err := r.writeMonteCarlo(fx, report, styles); err != nil {
			return err
		}
	}
	if report.WalkForward != nil {
		if err := r.writeWalkForward(fx, report, styles); err != nil {
			return err
		}
	}
	if report.Stress != nil {
		if err := r.writeStress(fx, report, styles); err != nil {
			return err
		}
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return styles, err
	}
	styles.base, err = fx.NewStyle(&excelize.Style{
		Border: []excelize.Border{{Type: "bottom", Color: "D9D9D9", Style: 1}},
	})
	if err != nil {
		return styles, err
	}
	styles.money, err = fx.NewStyle(&excelize.Style{NumFmt: 44})
	if err != nil {
		return styles, err
	}
	styles.pct, err = fx.NewStyle(&excelize.Style{NumFmt: 10})
	return styles, err
}

func (r *ExcelReporter) writeSummary(fx *excelize.File, sheet string, report *RunReport, styles excelStyles) error {
	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", styles.header)

	rows := []summaryRow{
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Strategy", report.Strategy},
		{"Timeframe", string(report.Timeframe)},
	}
	for _, s := range report.Symbols {
		rows = append(rows, summaryRow{"Symbol", s})
	}
	if bt := report.Backtest; bt != nil {
		m := bt.Metrics
		rows = append(rows,
			row("Initial Equity", bt.StartEquity),
			row("Final Equity", bt.EndEquity),
			row("Total Return", cell(m.TotalReturn)),
			row("Annualized Return", cell(m.AnnualizedReturn)),
			row("Sharpe", cell(m.Sharpe)),
			row("Sortino", cell(m.Sortino)),
			row("Calmar", cell(m.Calmar)),
			row("Max Drawdown", cell(m.MaxDrawdown)),
			row("VaR", cell(m.VaR)),
			row("CVaR", cell(m.CVaR)),
			row("Win Rate", cell(m.WinRate)),
			row("Profit Factor", cell(m.ProfitFactor)),
			row("Total Trades", m.TotalTrades),
			row("Total Fees", bt.TotalFees),
			row("Rejected Orders", bt.Rejections),
		)
	}
	for i, rw := range rows {
		line := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", line), rw.label)
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", line), rw.value)
	}
	fx.SetCellStyle(sheet, "A2", fmt.Sprintf("B%d", len(rows)+1), styles.base)
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 22)
	return nil
}

type summaryRow struct {
	label string
	value interface{}
}

func row(label string, value interface{}) summaryRow {
	return summaryRow{label, value}
}

// cell converts a metric to a cell value; undefined metrics render as "n/a".
func cell(v metrics.Value) interface{} {
	if f, ok := v.Float(); ok {
		return f
	}
	return "n/a"
}

func (r *ExcelReporter) writeEquity(fx *excelize.File, report *RunReport, styles excelStyles) error {
	const sheet = "Equity"
	if _, err := fx.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Timestamp", "Equity", "Cash"}
	for i, h := range headers {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, c, h)
	}
	fx.SetCellStyle(sheet, "A1", "C1", styles.header)
	for i, p := range report.Backtest.EquityCurve {
		line := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", line), p.Timestamp.Format("2006-01-02 15:04:05"))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", line), p.Equity)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", line), p.Cash)
	}
	if n := len(report.Backtest.EquityCurve); n > 0 {
		fx.SetCellStyle(sheet, "B2", fmt.Sprintf("C%d", n+1), styles.money)
	}
	fx.SetColWidth(sheet, "A", "A", 20)
	return nil
}

func (r *ExcelReporter) writeTrades(fx *excelize.File, report *RunReport, styles excelStyles) error {
	const sheet = "Trades"
	if _, err := fx.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Timestamp", "Symbol", "Side", "Status", "Quantity",
		"Fill Price", "Fee", "Slippage", "Realized PnL", "Reason"}
	for i, h := range headers {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, c, h)
	}
	fx.SetCellStyle(sheet, "A1", "J1", styles.header)
	for i, e := range report.Backtest.TradeLog {
		line := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", line), e.Timestamp.Format("2006-01-02 15:04:05"))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", line), e.Symbol)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", line), e.Side)
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", line), string(e.Status))
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", line), e.Quantity)
		fx.SetCellValue(sheet, fmt.Sprintf("F%d", line), e.FillPrice)
		fx.SetCellValue(sheet, fmt.Sprintf("G%d", line), e.Fee)
		fx.SetCellValue(sheet, fmt.Sprintf("H%d", line), e.SlippageCost)
		fx.SetCellValue(sheet, fmt.Sprintf("I%d", line), e.RealizedPnL)
		fx.SetCellValue(sheet, fmt.Sprintf("J%d", line), string(e.Reason))
	}
	fx.SetColWidth(sheet, "A", "A", 20)
	return nil
}

func (r *ExcelReporter) writeMonteCarlo(fx *excelize.File, report *RunReport, styles excelStyles) error {
	const sheet = "MonteCarlo"
	if _, err := fx.NewSheet(sheet); err != nil {
		return err
	}
	mc := report.MonteCarlo
	fx.SetCellValue(sheet, "A1", "Simulations")
	fx.SetCellValue(sheet, "B1", mc.NumSimulations)
	fx.SetCellValue(sheet, "A2", "Excluded")
	fx.SetCellValue(sheet, "B2", mc.Excluded)
	fx.SetCellValue(sheet, "A3", "Seed")
	fx.SetCellValue(sheet, "B3", mc.Seed)

	fx.SetCellValue(sheet, "A5", "Percentile")
	fx.SetCellValue(sheet, "B5", "Terminal Equity")
	fx.SetCellValue(sheet, "C5", "Max Drawdown")
	fx.SetCellStyle(sheet, "A5", "C5", styles.header)
	for i, p := range mc.Rows {
		line := i + 6
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", line), p.Percentile)
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", line), p.TerminalEquity)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", line), p.MaxDrawdown)
	}
	if n := len(mc.Rows); n > 0 {
		fx.SetCellStyle(sheet, "B6", fmt.Sprintf("B%d", n+5), styles.money)
		fx.SetCellStyle(sheet, "C6", fmt.Sprintf("C%d", n+5), styles.pct)
	}
	return nil
}

func (r *ExcelReporter) writeWalkForward(fx *excelize.File, report *RunReport, styles excelStyles) error {
	const sheet = "WalkForward"
	if _, err := fx.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Fold", "Strategy", "Train Start", "Test Start", "Test End",
		"IS Return", "OOS Return", "IS Sharpe", "OOS Sharpe", "Status"}
	for i, h := range headers {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, c, h)
	}
	fx.SetCellStyle(sheet, "A1", "J1", styles.header)
	for i, w := range report.WalkForward.Windows {
		line := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", line), w.Window.Fold)
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", line), w.Strategy)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", line), w.Window.TrainStart.Format("2006-01-02"))
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", line), w.Window.TestStart.Format("2006-01-02"))
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", line), w.Window.TestEnd.Format("2006-01-02"))
		fx.SetCellValue(sheet, fmt.Sprintf("F%d", line), cell(w.InSample.TotalReturn))
		fx.SetCellValue(sheet, fmt.Sprintf("G%d", line), cell(w.OutOfSample.TotalReturn))
		fx.SetCellValue(sheet, fmt.Sprintf("H%d", line), cell(w.InSample.Sharpe))
		fx.SetCellValue(sheet, fmt.Sprintf("I%d", line), cell(w.OutOfSample.Sharpe))
		status := "ok"
		if w.Failed {
			status = "failed: " + w.Reason
		}
		fx.SetCellValue(sheet, fmt.Sprintf("J%d", line), status)
	}
	return nil
}

func (r *ExcelReporter) writeStress(fx *excelize.File, report *RunReport, styles excelStyles) error {
	const sheet = "Stress"
	if _, err := fx.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Scenario", "Return", "Return Delta", "Max DD", "DD Delta", "Sharpe Delta", "Status"}
	for i, h := range headers {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, c, h)
	}
	fx.SetCellStyle(sheet, "A1", "G1", styles.header)
	for i, sc := range report.Stress.Scenarios {
		line := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", line), sc.Name)
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", line), cell(sc.Stressed.TotalReturn))
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", line), cell(sc.ReturnDelta))
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", line), cell(sc.Stressed.MaxDrawdown))
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", line), cell(sc.DrawdownDelta))
		fx.SetCellValue(sheet, fmt.Sprintf("F%d", line), cell(sc.SharpeDelta))
		status := "ok"
		if sc.Failed {
			status = "failed: " + sc.Reason
		}
		fx.SetCellValue(sheet, fmt.Sprintf("G%d", line), status)
	}
	fx.SetColWidth(sheet, "A", "A", 28)
	return nil
}
