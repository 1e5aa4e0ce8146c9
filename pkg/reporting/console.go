package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/strategy-sandbox/internal/metrics"
)

// ConsoleReporter renders run sections as rounded tables on stdout.
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter { return &ConsoleReporter{} }

// Print renders every populated section of the report.
func (r *ConsoleReporter) Print(report *RunReport) {
	if report.Backtest != nil {
		r.printBacktest(report)
	}
	if report.MonteCarlo != nil {
		r.printMonteCarlo(report)
	}
	if report.WalkForward != nil {
		r.printWalkForward(report)
	}
	if report.Correlation != nil {
		r.printCorrelation(report)
	}
	if report.Stress != nil {
		r.printStress(report)
	}
}

func (r *ConsoleReporter) printBacktest(report *RunReport) {
	res := report.Backtest
	m := res.Metrics

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS - " + report.Strategy)
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Equity", fmt.Sprintf("$%.2f", res.StartEquity)},
		{"💰 Final Equity", fmt.Sprintf("$%.2f", res.EndEquity)},
		{"📈 Total Return", percent(m.TotalReturn)},
		{"📈 Annualized Return", percent(m.AnnualizedReturn)},
		{"📉 Max Drawdown", percent(m.MaxDrawdown)},
		{"📊 Sharpe Ratio", ratio(m.Sharpe)},
		{"📊 Sortino Ratio", ratio(m.Sortino)},
		{"📊 Calmar Ratio", ratio(m.Calmar)},
		{"📊 VaR / CVaR", percent(m.VaR) + " / " + percent(m.CVaR)},
		{"💹 Profit Factor", ratio(m.ProfitFactor)},
		{"🔄 Total Trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"✅ Winning Trades", fmt.Sprintf("%d (%s)", m.WinningTrades, percent(m.WinRate))},
		{"❌ Losing Trades", fmt.Sprintf("%d", m.LosingTrades)},
		{"💸 Total Fees", fmt.Sprintf("$%.2f", res.TotalFees)},
		{"🚫 Rejected Orders", fmt.Sprintf("%d", res.Rejections)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignLeft},
	})
	t.Render()
}

func (r *ConsoleReporter) printMonteCarlo(report *RunReport) {
	mc := report.MonteCarlo

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("MONTE CARLO - %d draws (seed %d, %d excluded)",
		mc.NumSimulations, mc.Seed, mc.Excluded))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Percentile", "Terminal Equity", "Max Drawdown"})
	for _, row := range mc.Rows {
		t.AppendRow(table.Row{
			fmt.Sprintf("p%.0f", row.Percentile),
			fmt.Sprintf("$%.2f", row.TerminalEquity),
			fmt.Sprintf("%.2f%%", row.MaxDrawdown*100),
		})
	}
	t.Render()
}

func (r *ConsoleReporter) printWalkForward(report *RunReport) {
	wf := report.WalkForward

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("WALK-FORWARD - %d folds (%d excluded)", len(wf.Windows), wf.Excluded))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Fold", "Strategy", "IS Return", "OOS Return", "IS Sharpe", "OOS Sharpe"})
	for _, w := range wf.Windows {
		if w.Failed {
			t.AppendRow(table.Row{w.Window.Fold, "-", "failed: " + w.Reason, "", "", ""})
			continue
		}
		t.AppendRow(table.Row{
			w.Window.Fold,
			w.Strategy,
			percent(w.InSample.TotalReturn),
			percent(w.OutOfSample.TotalReturn),
			ratio(w.InSample.Sharpe),
			ratio(w.OutOfSample.Sharpe),
		})
	}
	t.AppendFooter(table.Row{"", "mean",
		"", percent(wf.MeanOOSReturn),
		ratio(wf.MeanISSharpe), ratio(wf.MeanOOSSharpe)})
	t.Render()

	if gap, ok := wf.SharpeGap.Float(); ok {
		switch {
		case gap > 1.0:
			fmt.Printf("⚠️  Sharpe gap %.2f - high overfitting risk\n", gap)
		case gap > 0.5:
			fmt.Printf("⚠️  Sharpe gap %.2f - moderate overfitting\n", gap)
		default:
			fmt.Printf("✅ Sharpe gap %.2f - out-of-sample holds up\n", gap)
		}
	}
}

func (r *ConsoleReporter) printCorrelation(report *RunReport) {
	corr := report.Correlation

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RETURN CORRELATIONS")
	t.SetStyle(table.StyleRounded)

	header := table.Row{""}
	for _, s := range corr.Symbols {
		header = append(header, s)
	}
	t.AppendHeader(header)
	for i, sym := range corr.Symbols {
		row := table.Row{sym}
		for j := range corr.Symbols {
			row = append(row, ratio(corr.Grid[i][j]))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func (r *ConsoleReporter) printStress(report *RunReport) {
	st := report.Stress

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("STRESS SCENARIOS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Scenario", "Return", "Δ Return", "Max DD", "Δ Max DD", "Δ Sharpe"})
	for _, sc := range st.Scenarios {
		if sc.Failed {
			t.AppendRow(table.Row{sc.Name, "failed: " + sc.Reason, "", "", "", ""})
			continue
		}
		t.AppendRow(table.Row{
			sc.Name,
			percent(sc.Stressed.TotalReturn),
			percent(sc.ReturnDelta),
			percent(sc.Stressed.MaxDrawdown),
			percent(sc.DrawdownDelta),
			ratio(sc.SharpeDelta),
		})
	}
	t.Render()
}

func percent(v metrics.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", f*100)
}

func ratio(v metrics.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}
