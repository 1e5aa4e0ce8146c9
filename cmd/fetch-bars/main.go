// fetch-bars downloads historical klines from Bybit and writes them in the
// CSV layout the sandbox reads: <data-root>/<SYMBOL>/<interval>/candles.csv.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/strategy-sandbox/pkg/data"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

func main() {
	var (
		symbolsFlag = flag.String("symbols", "BTCUSDT", "Comma-separated symbols to download")
		interval    = flag.String("interval", "1h", "Bar timeframe: 1m,5m,15m,1h,4h,1d")
		days        = flag.Int("days", 365, "Trailing days of history to fetch")
		dataRoot    = flag.String("data-root", "data", "Output root directory")
		category    = flag.String("category", "spot", "Bybit market category: spot, linear, inverse")
		testnet     = flag.Bool("testnet", false, "Use the Bybit testnet")
		envFile     = flag.String("env", ".env", "Environment file path for API credentials")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && *envFile != ".env" {
		log.Printf("⚠️  Could not load env file %s: %v", *envFile, err)
	}

	tf := types.Timeframe(*interval)
	if !tf.Valid() {
		log.Fatalf("❌ Unknown timeframe %q", *interval)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := data.NewBybitStore(data.BybitConfig{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   *testnet,
		Category:  *category,
	})

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	for _, symbol := range splitSymbols(*symbolsFlag) {
		log.Printf("🔄 Fetching %s %s (%d days)...", symbol, tf, *days)
		bars, err := store.GetBars(ctx, symbol, tf, start, end)
		if err != nil {
			log.Fatalf("❌ Fetch failed for %s: %v", symbol, err)
		}
		path := filepath.Join(*dataRoot, symbol, string(tf), "candles.csv")
		if err := writeCSV(path, bars); err != nil {
			log.Fatalf("❌ Write failed for %s: %v", symbol, err)
		}
		log.Printf("✅ Wrote %d bars to %s", len(bars), path)
	}
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeCSV(path string, bars []types.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			b.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
