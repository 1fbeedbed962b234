package scan

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"breakout-scanner/internal/detect"
	"breakout-scanner/internal/fetch"
	"breakout-scanner/internal/types"
)

// fakeFetcher serves canned responses per symbol.
type fakeFetcher struct {
	calls int32
	fn    func(inst types.Instrument) ([]types.Bar, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.fn(inst)
}

// breakoutSeries yields a FULL breakout under testConfig: reference high
// 100, ATR 2, average volume 1000, latest close 103 on volume 1600.
func breakoutSeries() []types.Bar {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, 22)
	for i := 0; i < 21; i++ {
		bars = append(bars, types.Bar{
			Timestamp: day.AddDate(0, 0, i),
			Open:      99, High: 100, Low: 98, Close: 99, Volume: 1000,
		})
	}
	return append(bars, types.Bar{
		Timestamp: day.AddDate(0, 0, 21),
		Open:      99, High: 104, Low: 99, Close: 103, Volume: 1600,
	})
}

func universe(n int) []types.Instrument {
	out := make([]types.Instrument, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Instrument{Symbol: fmt.Sprintf("SYM%02d", i), Exchange: "NSE", Token: uint32(i + 1)})
	}
	return out
}

func testConfig(workers int) Config {
	return Config{
		Detection:   detect.Config{Lookback: 20, VolumeThreshold: 1.5, ATRMultiple: 1.0, ATRPeriod: 14},
		HistoryDays: 30,
		Workers:     workers,
	}
}

func TestScanIsolatesFailures(t *testing.T) {
	f := &fakeFetcher{fn: func(inst types.Instrument) ([]types.Bar, error) {
		if inst.Symbol == "SYM03" {
			return breakoutSeries()[:5], nil // too short to classify
		}
		return breakoutSeries(), nil
	}}
	s := New(f, testConfig(1))

	results, failures := s.Scan(context.Background(), universe(10))
	if len(results) != 9 {
		t.Fatalf("expected 9 results, got %d", len(results))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d: %v", len(failures), failures)
	}
	if _, ok := failures["SYM03"]; !ok {
		t.Errorf("expected SYM03 in failures, got %v", failures)
	}
	for _, r := range results {
		if r.Symbol == "SYM03" {
			t.Errorf("failed symbol must not appear in results")
		}
	}
}

func TestScanPreservesUniverseOrder(t *testing.T) {
	f := &fakeFetcher{fn: func(types.Instrument) ([]types.Bar, error) { return breakoutSeries(), nil }}
	s := New(f, testConfig(1))

	insts := universe(6)
	results, failures := s.Scan(context.Background(), insts)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(results) != len(insts) {
		t.Fatalf("expected %d results, got %d", len(insts), len(results))
	}
	for i, r := range results {
		if r.Symbol != insts[i].Symbol {
			t.Errorf("result %d: expected %s, got %s", i, insts[i].Symbol, r.Symbol)
		}
	}
}

func TestScanIncludesNoneClassifications(t *testing.T) {
	f := &fakeFetcher{fn: func(types.Instrument) ([]types.Bar, error) {
		bars := breakoutSeries()
		bars[len(bars)-1].Close = 99 // below reference high
		bars[len(bars)-1].High = 100
		return bars, nil
	}}
	s := New(f, testConfig(1))

	results, _ := s.Scan(context.Background(), universe(3))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Classification != types.None {
			t.Errorf("expected NONE classification, got %s", r.Classification)
		}
	}
}

func TestScanHaltsOnRateLimit(t *testing.T) {
	f := &fakeFetcher{fn: func(inst types.Instrument) ([]types.Bar, error) {
		if inst.Symbol == "SYM02" {
			return nil, fmt.Errorf("%w: quota rejected", fetch.ErrRateLimited)
		}
		return breakoutSeries(), nil
	}}
	s := New(f, testConfig(1))

	results, failures := s.Scan(context.Background(), universe(10))
	if len(results) != 2 {
		t.Fatalf("expected scan to halt after 2 results, got %d", len(results))
	}
	if _, ok := failures["SYM02"]; !ok {
		t.Errorf("expected SYM02 in failures, got %v", failures)
	}
	if got := atomic.LoadInt32(&f.calls); got != 3 {
		t.Errorf("expected 3 fetch calls before halt, got %d", got)
	}
}

func TestScanCancellationStopsSubmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{fn: func(inst types.Instrument) ([]types.Bar, error) {
		if inst.Symbol == "SYM01" {
			cancel()
		}
		return breakoutSeries(), nil
	}}
	s := New(f, testConfig(1))

	results, _ := s.Scan(ctx, universe(10))
	if len(results) >= 10 {
		t.Errorf("expected cancellation to stop the scan early, got %d results", len(results))
	}
}

func TestScanParallelPreservesOrder(t *testing.T) {
	f := &fakeFetcher{fn: func(types.Instrument) ([]types.Bar, error) { return breakoutSeries(), nil }}
	s := New(f, testConfig(4))

	insts := universe(20)
	results, failures := s.Scan(context.Background(), insts)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(results) != len(insts) {
		t.Fatalf("expected %d results, got %d", len(insts), len(results))
	}
	for i, r := range results {
		if r.Symbol != insts[i].Symbol {
			t.Errorf("result %d: expected %s, got %s", i, insts[i].Symbol, r.Symbol)
		}
	}
}

func TestScanParallelIsolatesFailures(t *testing.T) {
	f := &fakeFetcher{fn: func(inst types.Instrument) ([]types.Bar, error) {
		if inst.Symbol == "SYM05" {
			return nil, fmt.Errorf("%w: no data", fetch.ErrDataUnavailable)
		}
		return breakoutSeries(), nil
	}}
	s := New(f, testConfig(3))

	results, failures := s.Scan(context.Background(), universe(12))
	if len(results) != 11 {
		t.Fatalf("expected 11 results, got %d", len(results))
	}
	if _, ok := failures["SYM05"]; !ok {
		t.Errorf("expected SYM05 in failures, got %v", failures)
	}
}
