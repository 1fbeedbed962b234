// Package fetch wraps the brokerage provider with process-wide request
// pacing and bounded retry-with-backoff, so callers see either a complete
// bar series or a typed failure.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"breakout-scanner/internal/interfaces"
	"breakout-scanner/internal/logger"
	"breakout-scanner/internal/types"
)

var (
	// ErrDataUnavailable is returned when retries are exhausted or the
	// provider's answer is unusable for this instrument.
	ErrDataUnavailable = errors.New("historical data unavailable")

	// ErrRateLimited is returned when the provider rejects the session's
	// quota outright. The caller should halt the remainder of the scan.
	ErrRateLimited = errors.New("provider rate limit exceeded")
)

// transienter is implemented by provider errors that are worth retrying
// (timeouts, 5xx-equivalents, throttling signals).
type transienter interface{ Transient() bool }

// throttler is implemented by provider errors signalling a quota rejection.
type throttler interface{ Throttled() bool }

// Config controls pacing and retry behaviour.
type Config struct {
	MinInterval    time.Duration // minimum spacing between provider calls
	MaxAttempts    int           // retry ceiling per instrument
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	CallTimeout    time.Duration // per provider call
}

func DefaultConfig() Config {
	return Config{
		MinInterval:    1 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     8 * time.Second,
		CallTimeout:    10 * time.Second,
	}
}

// Fetcher is a rate-limited, retrying BarFetcher over a HistoricalProvider.
type Fetcher struct {
	provider interfaces.HistoricalProvider
	cfg      Config
	gate     *pacer
}

var _ interfaces.BarFetcher = (*Fetcher)(nil)

func New(provider interfaces.HistoricalProvider, cfg Config) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Fetcher{
		provider: provider,
		cfg:      cfg,
		gate:     newPacer(cfg.MinInterval),
	}
}

// Fetch retrieves the bar series for one instrument. On transient errors it
// retries up to the configured ceiling with exponential backoff and jitter;
// on exhaustion it surfaces ErrDataUnavailable, or ErrRateLimited when the
// last rejection was a quota signal.
func (f *Fetcher) Fetch(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error) {
	var lastErr error
	throttled := false
	backoff := f.cfg.InitialBackoff

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := f.gate.wait(ctx); err != nil {
			return nil, err
		}

		bars, err := f.call(ctx, inst, from, to)
		if err == nil {
			if verr := validateSeries(bars); verr != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, inst.Symbol, verr)
			}
			return bars, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		throttled = isThrottled(err)
		if !throttled && !isTransient(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, inst.Symbol, err)
		}

		if attempt < f.cfg.MaxAttempts {
			wait := withJitter(backoff)
			logger.Warn(ctx, "Fetch failed, retrying",
				"symbol", inst.Symbol, "attempt", attempt, "wait", wait.String(), "error", err)
			if serr := sleep(ctx, wait); serr != nil {
				return nil, serr
			}
			backoff *= 2
			if backoff > f.cfg.MaxBackoff {
				backoff = f.cfg.MaxBackoff
			}
		}
	}

	if throttled {
		return nil, fmt.Errorf("%w: %s: %v", ErrRateLimited, inst.Symbol, lastErr)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrDataUnavailable, inst.Symbol, f.cfg.MaxAttempts, lastErr)
}

func (f *Fetcher) call(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error) {
	if f.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.CallTimeout)
		defer cancel()
	}
	return f.provider.HistoricalBars(ctx, inst, from, to)
}

// validateSeries rejects malformed provider answers so no partial or
// disordered series ever reaches the classifier.
func validateSeries(bars []types.Bar) error {
	if len(bars) == 0 {
		return errors.New("empty series")
	}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("non-positive price at bar %d", i)
		}
		if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
			return fmt.Errorf("inconsistent OHLC at bar %d", i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("negative volume at bar %d", i)
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("timestamps not strictly increasing at bar %d", i)
		}
	}
	return nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t transienter
	return errors.As(err, &t) && t.Transient()
}

func isThrottled(err error) bool {
	var t throttler
	return errors.As(err, &t) && t.Throttled()
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	// Up to 25% random jitter so paced retries do not align.
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
