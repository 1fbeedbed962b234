// Package scan drives the instrument universe through fetch and
// classification, isolating per-instrument faults.
package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"breakout-scanner/internal/detect"
	"breakout-scanner/internal/fetch"
	"breakout-scanner/internal/interfaces"
	"breakout-scanner/internal/logger"
	"breakout-scanner/internal/trace"
	"breakout-scanner/internal/types"
)

// Config controls the orchestration of one run.
type Config struct {
	Detection   detect.Config
	HistoryDays int // calendar days of daily bars requested per instrument
	Workers     int // concurrent fetch+classify workers; pacing stays global
}

// Scanner iterates the universe in order, fetching then classifying each
// instrument. A failing symbol lands in the failures map and the run
// continues; a session-wide rate rejection halts the remainder.
type Scanner struct {
	fetcher interfaces.BarFetcher
	cfg     Config
	now     func() time.Time
}

var _ interfaces.Scanner = (*Scanner)(nil)

func New(fetcher interfaces.BarFetcher, cfg Config) *Scanner {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scanner{fetcher: fetcher, cfg: cfg, now: time.Now}
}

// Scan returns results in universe order (including NONE classifications;
// callers filter for reporting) and a symbol-to-reason failures map.
func (s *Scanner) Scan(ctx context.Context, instruments []types.Instrument) ([]types.BreakoutResult, map[string]string) {
	ctx, span := trace.StartSpan(ctx, "scan.run")
	defer span.End()

	to := s.now()
	from := to.AddDate(0, 0, -s.cfg.HistoryDays)

	slots := make([]*types.BreakoutResult, len(instruments))
	failures := make(map[string]string)

	if s.cfg.Workers == 1 {
		s.runSequential(ctx, instruments, from, to, slots, failures)
	} else {
		s.runParallel(ctx, instruments, from, to, slots, failures)
	}

	results := make([]types.BreakoutResult, 0, len(instruments))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, failures
}

func (s *Scanner) runSequential(ctx context.Context, instruments []types.Instrument, from, to time.Time, slots []*types.BreakoutResult, failures map[string]string) {
	for i, inst := range instruments {
		if ctx.Err() != nil {
			logger.Warn(ctx, "Scan cancelled", "remaining", len(instruments)-i)
			return
		}
		res, err := s.evaluate(ctx, inst, from, to)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			failures[inst.Symbol] = err.Error()
			if errors.Is(err, fetch.ErrRateLimited) {
				logger.Error(ctx, "Provider rejected session quota, halting scan",
					"symbol", inst.Symbol, "remaining", len(instruments)-i-1)
				return
			}
			continue
		}
		slots[i] = res
	}
}

func (s *Scanner) runParallel(ctx context.Context, instruments []types.Instrument, from, to time.Time, slots []*types.BreakoutResult, failures map[string]string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				inst := instruments[i]
				res, err := s.evaluate(ctx, inst, from, to)
				mu.Lock()
				if err != nil {
					if ctx.Err() == nil || errors.Is(err, fetch.ErrRateLimited) {
						failures[inst.Symbol] = err.Error()
					}
					if errors.Is(err, fetch.ErrRateLimited) {
						// Stops submission; in-flight fetches finish or time out.
						cancel()
					}
				} else {
					slots[i] = res
				}
				mu.Unlock()
			}
		}()
	}

submit:
	for i := range instruments {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break submit
		}
	}
	close(jobs)
	wg.Wait()
}

func (s *Scanner) evaluate(ctx context.Context, inst types.Instrument, from, to time.Time) (*types.BreakoutResult, error) {
	bars, err := s.fetcher.Fetch(ctx, inst, from, to)
	if err != nil {
		return nil, err
	}
	res, err := detect.Classify(inst.Symbol, bars, s.cfg.Detection)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "Instrument evaluated",
		"symbol", inst.Symbol,
		"classification", string(res.Classification),
		"price_excess", res.PriceExcess,
		"volume_ratio", res.VolumeRatio,
	)
	return &res, nil
}
