package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/ducminhle1904/strategy-sandbox/pkg/reporting"
)

// writeOutputs renders the report in every requested format. Files land in
// outputDir, stamped with the strategy and date.
func writeOutputs(report *reporting.RunReport, formats []string, outputDir string) error {
	stamp := fmt.Sprintf("%s_%s_%s", report.Strategy, report.Timeframe,
		report.GeneratedAt.Format("2006-01-02"))

	for _, format := range formats {
		switch format {
		case "console":
			reporting.NewConsoleReporter().Print(report)
		case "json":
			path := filepath.Join(outputDir, stamp+".json")
			if err := reporting.WriteJSON(report, path); err != nil {
				return err
			}
			log.Printf("✅ Wrote %s", path)
		case "csv":
			if report.Backtest == nil {
				continue
			}
			equityPath := filepath.Join(outputDir, stamp+"_equity.csv")
			if err := reporting.WriteEquityCSV(report.Backtest.EquityCurve, equityPath); err != nil {
				return err
			}
			tradesPath := filepath.Join(outputDir, stamp+"_trades.csv")
			if err := reporting.WriteTradesCSV(report.Backtest.TradeLog, tradesPath); err != nil {
				return err
			}
			log.Printf("✅ Wrote %s and %s", equityPath, tradesPath)
		case "excel":
			path := filepath.Join(outputDir, stamp+".xlsx")
			if err := reporting.NewExcelReporter().Write(report, path); err != nil {
				return err
			}
			log.Printf("✅ Wrote %s", path)
		default:
			return fmt.Errorf("unknown output format %q (want console,json,csv,excel)", format)
		}
	}
	return nil
}
