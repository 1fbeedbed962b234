package ta

import (
	"errors"
	"fmt"
	"math"

	"breakout-scanner/internal/types"
)

// ErrInsufficientData is returned when a series is too short for the
// requested window.
var ErrInsufficientData = errors.New("insufficient data for window")

// PriorHigh returns the maximum high over the lookback bars immediately
// preceding the latest bar. The latest bar itself is excluded.
func PriorHigh(bars []types.Bar, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, fmt.Errorf("%w: lookback %d", ErrInsufficientData, lookback)
	}
	if len(bars) < lookback+1 {
		return 0, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), lookback+1)
	}
	h := math.Inf(-1)
	for i := len(bars) - 1 - lookback; i < len(bars)-1; i++ {
		if bars[i].High > h {
			h = bars[i].High
		}
	}
	return h, nil
}

// AvgVolume returns the mean volume over the lookback bars preceding the
// latest bar.
func AvgVolume(bars []types.Bar, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, fmt.Errorf("%w: lookback %d", ErrInsufficientData, lookback)
	}
	if len(bars) < lookback+1 {
		return 0, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), lookback+1)
	}
	sum := 0.0
	for i := len(bars) - 1 - lookback; i < len(bars)-1; i++ {
		sum += float64(bars[i].Volume)
	}
	return sum / float64(lookback), nil
}

// ATR returns Wilder's Average True Range over period bars: the true ranges
// are smoothed exponentially with factor 1/period, seeded by the simple
// average of the first period values. Requires period+1 bars.
func ATR(bars []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: period %d", ErrInsufficientData, period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), period+1)
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i], bars[i-1].Close))
	}
	// Seed with the simple average of the first period true ranges, then
	// smooth the remainder.
	atr := 0.0
	for _, tr := range trs[:period] {
		atr += tr
	}
	atr /= float64(period)
	for _, tr := range trs[period:] {
		atr += (tr - atr) / float64(period)
	}
	return atr, nil
}

func trueRange(b types.Bar, prevClose float64) float64 {
	tr := b.High - b.Low
	if d := math.Abs(b.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(b.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}
