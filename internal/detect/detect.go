// Package detect classifies the latest bar of a series against its recent
// trading range. The decision rule is a pure function of the series and the
// configuration; no I/O, no hidden state.
package detect

import (
	"errors"
	"fmt"

	"breakout-scanner/internal/ta"
	"breakout-scanner/internal/types"
)

var (
	// ErrZeroVolumeBaseline marks a degenerate series whose average volume
	// over the lookback window is zero.
	ErrZeroVolumeBaseline = errors.New("zero volume baseline")

	// ErrInvalidConfig marks detection parameters that fail validation.
	// Surfaced before any scan begins; never per-instrument.
	ErrInvalidConfig = errors.New("invalid detection config")
)

// Config holds the immutable parameters of one scan run.
type Config struct {
	Lookback        int     // prior bars defining the reference high
	VolumeThreshold float64 // multiplier on average volume confirming a breakout
	ATRMultiple     float64 // multiplier on ATR defining the significance band
	ATRPeriod       int     // bars in the ATR window
}

// DefaultConfig mirrors the scanner's historical defaults: a 20-bar range,
// 1.5x volume confirmation, one ATR of significance, 14-bar ATR.
func DefaultConfig() Config {
	return Config{
		Lookback:        20,
		VolumeThreshold: 1.5,
		ATRMultiple:     1.0,
		ATRPeriod:       14,
	}
}

func (c Config) Validate() error {
	if c.Lookback < 1 {
		return fmt.Errorf("%w: lookback must be >= 1, got %d", ErrInvalidConfig, c.Lookback)
	}
	if c.VolumeThreshold < 1.0 {
		return fmt.Errorf("%w: volume_threshold must be >= 1.0, got %g", ErrInvalidConfig, c.VolumeThreshold)
	}
	if c.ATRMultiple < 0 {
		return fmt.Errorf("%w: atr_multiple must be >= 0, got %g", ErrInvalidConfig, c.ATRMultiple)
	}
	if c.ATRPeriod < 1 {
		return fmt.Errorf("%w: atr_period must be >= 1, got %d", ErrInvalidConfig, c.ATRPeriod)
	}
	return nil
}

// Classify evaluates the latest bar of an ascending series against the
// window preceding it. First match wins:
//
//	FULL     excess > ATRMultiple*ATR and ratio >= VolumeThreshold
//	PARTIAL  excess > 0 but either signal unconfirmed
//	NONE     otherwise (close at or below the reference high)
func Classify(symbol string, bars []types.Bar, cfg Config) (types.BreakoutResult, error) {
	refHigh, err := ta.PriorHigh(bars, cfg.Lookback)
	if err != nil {
		return types.BreakoutResult{}, err
	}
	avgVol, err := ta.AvgVolume(bars, cfg.Lookback)
	if err != nil {
		return types.BreakoutResult{}, err
	}
	// ATR over the window preceding the latest bar, so the evaluated move
	// does not inflate its own significance band.
	atr, err := ta.ATR(bars[:len(bars)-1], cfg.ATRPeriod)
	if err != nil {
		return types.BreakoutResult{}, err
	}
	if avgVol == 0 {
		return types.BreakoutResult{}, fmt.Errorf("%w: %s", ErrZeroVolumeBaseline, symbol)
	}

	latest := bars[len(bars)-1]
	excess := latest.Close - refHigh
	ratio := float64(latest.Volume) / avgVol

	cls := types.None
	switch {
	case excess > cfg.ATRMultiple*atr && ratio >= cfg.VolumeThreshold:
		cls = types.Full
	case excess > 0:
		// Price cleared the range but the move lacks volatility-adjusted
		// significance or volume confirmation.
		cls = types.Partial
	}

	return types.BreakoutResult{
		Symbol:         symbol,
		Classification: cls,
		ReferenceHigh:  refHigh,
		LatestClose:    latest.Close,
		PriceExcess:    excess,
		VolumeRatio:    ratio,
		ATR:            atr,
		Timestamp:      latest.Timestamp,
	}, nil
}
