package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// ColumnMapping defines the column positions and date layout of a CSV file.
type ColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultColumns matches the layout written by fetch-bars:
// timestamp,open,high,low,close,volume with "2006-01-02 15:04:05" dates.
var DefaultColumns = ColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}

// CSVStore reads bars from files laid out as
// {root}/{SYMBOL}/{timeframe}/candles.csv. A missing or malformed file is a
// data error; there is no synthetic fallback.
type CSVStore struct {
	root    string
	columns ColumnMapping
}

func NewCSVStore(root string) *CSVStore {
	return &CSVStore{root: root, columns: DefaultColumns}
}

func NewCSVStoreWithColumns(root string, columns ColumnMapping) *CSVStore {
	return &CSVStore{root: root, columns: columns}
}

func (s *CSVStore) Name() string { return "csv:" + s.root }

func (s *CSVStore) GetBars(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	path := s.filePath(symbol, tf)
	bars, err := s.loadFile(ctx, path, tf)
	if err != nil {
		return nil, err
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	if err := ValidateBars(symbol, bars); err != nil {
		return nil, err
	}
	return ClipRange(bars, start, end), nil
}

func (s *CSVStore) filePath(symbol string, tf types.Timeframe) string {
	return filepath.Join(s.root, strings.ToUpper(symbol), string(tf), "candles.csv")
}

func (s *CSVStore) loadFile(ctx context.Context, path string, tf types.Timeframe) ([]types.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, simerrors.NewDataError("data", "CSVStore.GetBars", "data file not found: "+path)
		}
		return nil, simerrors.WrapData("data", "CSVStore.GetBars", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, simerrors.WrapData("data", "CSVStore.GetBars", err)
	}
	// Headerless files are accepted: if the first row parses as a record,
	// keep it.
	var bars []types.Bar
	if b, ok := s.parseRecord(header, tf); ok {
		bars = append(bars, b)
	}

	line := 1
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, simerrors.WrapData("data", "CSVStore.GetBars",
				fmt.Errorf("line %d: %w", line, err))
		}
		line++
		b, ok := s.parseRecord(record, tf)
		if !ok {
			return nil, simerrors.NewDataError("data", "CSVStore.GetBars",
				fmt.Sprintf("malformed record at line %d in %s", line, path))
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func (s *CSVStore) parseRecord(record []string, tf types.Timeframe) (types.Bar, bool) {
	c := s.columns
	if len(record) < c.MinColumns {
		return types.Bar{}, false
	}
	ts, err := time.Parse(c.DateFormat, record[c.TimestampCol])
	if err != nil {
		// Unix milliseconds are the alternate timestamp encoding.
		ms, merr := strconv.ParseInt(record[c.TimestampCol], 10, 64)
		if merr != nil {
			return types.Bar{}, false
		}
		ts = time.UnixMilli(ms).UTC()
	}
	open, err1 := strconv.ParseFloat(record[c.OpenCol], 64)
	high, err2 := strconv.ParseFloat(record[c.HighCol], 64)
	low, err3 := strconv.ParseFloat(record[c.LowCol], 64)
	close, err4 := strconv.ParseFloat(record[c.CloseCol], 64)
	volume, err5 := strconv.ParseFloat(record[c.VolumeCol], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return types.Bar{}, false
	}
	return types.Bar{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Timeframe: tf,
	}, true
}
