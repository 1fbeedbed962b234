package ta

import (
	"errors"
	"math"
	"testing"
	"time"

	"breakout-scanner/internal/types"
)

func mkBars(n int, high, low, close float64, vol int64) []types.Bar {
	bars := make([]types.Bar, 0, n)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars = append(bars, types.Bar{
			Timestamp: day.AddDate(0, 0, i),
			Open:      close,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    vol,
		})
	}
	return bars
}

func TestPriorHighExcludesLatestBar(t *testing.T) {
	bars := mkBars(6, 100, 98, 99, 1000)
	// Latest bar spikes above everything; it must not count.
	bars[5].High = 150
	bars[5].Close = 150

	h, err := PriorHigh(bars, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 100 {
		t.Errorf("expected prior high 100, got %f", h)
	}
}

func TestPriorHighInsufficientData(t *testing.T) {
	bars := mkBars(5, 100, 98, 99, 1000)
	_, err := PriorHigh(bars, 5)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAvgVolume(t *testing.T) {
	bars := mkBars(4, 100, 98, 99, 0)
	bars[0].Volume = 100
	bars[1].Volume = 200
	bars[2].Volume = 300
	bars[3].Volume = 9999 // latest, excluded

	v, err := AvgVolume(bars, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 200 {
		t.Errorf("expected average volume 200, got %f", v)
	}
}

func TestAvgVolumeInsufficientData(t *testing.T) {
	bars := mkBars(3, 100, 98, 99, 1000)
	_, err := AvgVolume(bars, 3)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestATRConstantSeriesIsZero(t *testing.T) {
	bars := mkBars(20, 100, 100, 100, 1000)
	atr, err := ATR(bars, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atr != 0 {
		t.Errorf("expected ATR 0 for constant series, got %f", atr)
	}
}

func TestATRConstantRange(t *testing.T) {
	// Every bar: high-low = 2, close centered, so every true range is 2 and
	// both the seed and the smoothed value stay at 2.
	bars := mkBars(30, 100, 98, 99, 1000)
	atr, err := ATR(bars, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(atr-2) > 1e-9 {
		t.Errorf("expected ATR 2, got %f", atr)
	}
}

func TestATRNonNegative(t *testing.T) {
	bars := mkBars(25, 105, 95, 100, 1000)
	for i := range bars {
		if i%2 == 0 {
			bars[i].Close = 96
		} else {
			bars[i].Close = 104
		}
	}
	atr, err := ATR(bars, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atr < 0 {
		t.Errorf("expected non-negative ATR, got %f", atr)
	}
}

func TestATRGapUsesPrevClose(t *testing.T) {
	// Two bars: gap up. TR = max(h-l, |h-pc|, |l-pc|) = |h-pc| = 10.
	bars := mkBars(2, 100, 98, 99, 1000)
	bars[1].High = 109
	bars[1].Low = 107
	bars[1].Open = 108
	bars[1].Close = 108

	atr, err := ATR(bars, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(atr-10) > 1e-9 {
		t.Errorf("expected ATR 10 for gap bar, got %f", atr)
	}
}

func TestATRInsufficientData(t *testing.T) {
	bars := mkBars(14, 100, 98, 99, 1000)
	_, err := ATR(bars, 14)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
