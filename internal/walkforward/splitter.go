// Package walkforward partitions history into chronological train/test
// windows, evaluates an externally optimized strategy out-of-sample on each,
// and aggregates the out-of-sample metrics to quantify overfitting risk.
package walkforward

import (
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
)

// SplitConfig describes the rolling window geometry.
type SplitConfig struct {
	// Train is the in-sample window length.
	Train time.Duration
	// Test is the out-of-sample window length immediately after Train.
	Test time.Duration
	// Step advances the window start between folds. Zero defaults to Test,
	// producing back-to-back test windows. Step < Test would overlap test
	// windows and is rejected.
	Step time.Duration
	// MinTrainBars and MinTestBars are the smallest usable windows.
	// Zero selects 2.
	MinTrainBars int
	MinTestBars  int
}

func (c SplitConfig) step() time.Duration {
	if c.Step == 0 {
		return c.Test
	}
	return c.Step
}

func (c SplitConfig) minTrain() int {
	if c.MinTrainBars <= 0 {
		return 2
	}
	return c.MinTrainBars
}

func (c SplitConfig) minTest() int {
	if c.MinTestBars <= 0 {
		return 2
	}
	return c.MinTestBars
}

// Validate rejects geometries that cannot produce valid folds.
func (c SplitConfig) Validate() error {
	if c.Train <= 0 || c.Test <= 0 {
		return simerrors.NewConfigError("walkforward", "validate", "train and test lengths must be positive")
	}
	if c.step() < c.Test {
		return simerrors.NewConfigError("walkforward", "validate", "step %v smaller than test length %v would overlap test windows", c.step(), c.Test)
	}
	return nil
}

// Window is one fold: bar index ranges for the train and test segments.
// Index ranges are half-open [from, to).
type Window struct {
	Fold       int       `json:"fold"`
	TrainFrom  int       `json:"-"`
	TrainTo    int       `json:"-"`
	TestFrom   int       `json:"-"`
	TestTo     int       `json:"-"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`
}

// Split generates strictly chronological, non-overlapping test windows over
// the timeline. A final test window shorter than Test is kept as long as it
// holds MinTestBars bars, so the folds plus at most a sub-minimum remainder
// cover the whole range. Returns an InsufficientData config error when
// Train+Test exceeds the available range.
func Split(timeline []time.Time, cfg SplitConfig) ([]Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(timeline) == 0 {
		return nil, simerrors.NewDataError("walkforward", "split", "empty timeline")
	}
	total := timeline[len(timeline)-1].Sub(timeline[0])
	if cfg.Train+cfg.Test > total {
		return nil, simerrors.NewInsufficientData("walkforward", "split",
			"train %v + test %v exceeds available range %v", cfg.Train, cfg.Test, total)
	}

	var windows []Window
	start := timeline[0]
	startIdx := 0
	for {
		trainEndTs := start.Add(cfg.Train)
		testEndTs := trainEndTs.Add(cfg.Test)

		trainTo := advance(timeline, startIdx, trainEndTs)
		testTo := advance(timeline, trainTo, testEndTs)

		if trainTo-startIdx < cfg.minTrain() || testTo-trainTo < cfg.minTest() {
			break
		}

		windows = append(windows, Window{
			Fold:       len(windows) + 1,
			TrainFrom:  startIdx,
			TrainTo:    trainTo,
			TestFrom:   trainTo,
			TestTo:     testTo,
			TrainStart: timeline[startIdx],
			TrainEnd:   timeline[trainTo-1],
			TestStart:  timeline[trainTo],
			TestEnd:    timeline[testTo-1],
		})

		start = start.Add(cfg.step())
		next := advance(timeline, startIdx, start)
		if next <= startIdx {
			next = startIdx + 1
		}
		if next >= len(timeline) {
			break
		}
		startIdx = next
	}

	if len(windows) == 0 {
		return nil, simerrors.NewInsufficientData("walkforward", "split",
			"no fold satisfies min train %d / min test %d bars", cfg.minTrain(), cfg.minTest())
	}
	return windows, nil
}

// advance returns the first index at or after from whose timestamp is not
// before ts, bounded by the timeline length.
func advance(timeline []time.Time, from int, ts time.Time) int {
	i := from
	for i < len(timeline) && timeline[i].Before(ts) {
		i++
	}
	return i
}
