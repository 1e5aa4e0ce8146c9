package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// bybit expects interval strings in minutes for intraday, "D" for daily.
var bybitIntervals = map[types.Timeframe]string{
	types.Timeframe1m:  "1",
	types.Timeframe5m:  "5",
	types.Timeframe15m: "15",
	types.Timeframe1h:  "60",
	types.Timeframe4h:  "240",
	types.Timeframe1d:  "D",
}

const bybitMaxLimit = 1000

// BybitStore fetches spot klines from the Bybit v5 REST API. Public market
// data needs no credentials; pass keys only if an authenticated endpoint is
// ever required.
type BybitStore struct {
	client   *bybit_api.Client
	category string
}

// BybitConfig holds connection settings for the kline client.
type BybitConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Category  string // "spot" (default), "linear", "inverse"
}

func NewBybitStore(cfg BybitConfig) *BybitStore {
	baseURL := bybit_api.MAINNET
	if cfg.Testnet {
		baseURL = bybit_api.TESTNET
	}
	category := cfg.Category
	if category == "" {
		category = "spot"
	}
	client := bybit_api.NewBybitHttpClient(cfg.APIKey, cfg.APISecret, bybit_api.WithBaseURL(baseURL))
	return &BybitStore{client: client, category: category}
}

func (s *BybitStore) Name() string { return "bybit:" + s.category }

// GetBars pages backwards through the kline endpoint until the requested
// range is covered, then returns the bars ascending. Bybit serves klines
// newest-first in pages of at most 1000.
func (s *BybitStore) GetBars(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	interval, ok := bybitIntervals[tf]
	if !ok {
		return nil, simerrors.NewConfigError("data", "BybitStore.GetBars",
			"timeframe not supported by bybit: "+string(tf))
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var bars []types.Bar
	cursor := end
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := s.fetchPage(ctx, symbol, interval, start, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, b := range page {
			b.Timeframe = tf
			bars = append(bars, b)
		}
		oldest := page[len(page)-1].Timestamp
		if !start.IsZero() && !oldest.After(start) {
			break
		}
		if len(page) < bybitMaxLimit {
			break
		}
		cursor = oldest.Add(-time.Millisecond)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	bars = dedupe(bars)
	if len(bars) == 0 {
		return nil, simerrors.NewDataError("data", "BybitStore.GetBars",
			"no klines returned for "+symbol+" "+string(tf))
	}
	if err := ValidateBars(symbol, bars); err != nil {
		return nil, err
	}
	return ClipRange(bars, start, end), nil
}

// fetchPage returns one page of klines, newest first as served by the API.
func (s *BybitStore) fetchPage(ctx context.Context, symbol, interval string, start, end time.Time) ([]types.Bar, error) {
	params := map[string]interface{}{
		"category": s.category,
		"symbol":   symbol,
		"interval": interval,
		"limit":    bybitMaxLimit,
	}
	if !start.IsZero() {
		params["start"] = start.UnixMilli()
	}
	if !end.IsZero() {
		params["end"] = end.UnixMilli()
	}

	result, err := s.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, simerrors.WrapData("data", "BybitStore.GetBars", err)
	}
	return parseKlines(result)
}

func parseKlines(response interface{}) ([]types.Bar, error) {
	resp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, simerrors.NewDataError("data", "BybitStore.GetBars", "unexpected response type")
	}
	if resp.RetCode != 0 {
		return nil, simerrors.NewDataError("data", "BybitStore.GetBars",
			fmt.Sprintf("api error %d: %s", resp.RetCode, resp.RetMsg))
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, simerrors.WrapData("data", "BybitStore.GetBars", err)
	}
	var result struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, simerrors.WrapData("data", "BybitStore.GetBars", err)
	}

	bars := make([]types.Bar, 0, len(result.List))
	for _, item := range result.List {
		// [startTime, open, high, low, close, volume, turnover]
		if len(item) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			continue
		}
		bars = append(bars, types.Bar{
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      parseFloat(item[1]),
			High:      parseFloat(item[2]),
			Low:       parseFloat(item[3]),
			Close:     parseFloat(item[4]),
			Volume:    parseFloat(item[5]),
		})
	}
	return bars, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func dedupe(bars []types.Bar) []types.Bar {
	if len(bars) < 2 {
		return bars
	}
	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Timestamp.After(out[len(out)-1].Timestamp) {
			out = append(out, b)
		}
	}
	return out
}
