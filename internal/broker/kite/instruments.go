package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"breakout-scanner/internal/logger"
	"breakout-scanner/internal/types"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// Universe returns the derivative-eligible NSE equities: names carrying a
// stock future in the nearest unexpired NFO expiry, mapped back to their
// equity instruments. The list is cached on disk and refreshed once per
// calendar day, matching the instrument master's publication cadence.
func (k *Kite) Universe(ctx context.Context) ([]types.Instrument, error) {
	if cached, ok := k.cache.load(); ok {
		logger.Info(ctx, "Instrument universe loaded from cache", "count", len(cached))
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	futs, err := k.kc.GetInstrumentsByExchange("NFO")
	if err != nil {
		return nil, mapError(err)
	}
	lots := nearestExpiryFutures(futs, time.Now())
	if len(lots) == 0 {
		return nil, fmt.Errorf("no unexpired stock futures in NFO instrument dump")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eqs, err := k.kc.GetInstrumentsByExchange(k.p.Exchange)
	if err != nil {
		return nil, mapError(err)
	}

	universe := matchEquities(eqs, lots, k.p.Exchange)
	logger.Info(ctx, "Instrument universe prepared",
		"futures_names", len(lots), "equities_matched", len(universe))

	if err := k.cache.store(universe); err != nil {
		logger.Warn(ctx, "Could not cache instrument universe", "error", err)
	}
	return universe, nil
}

// nearestExpiryFutures returns name -> lot size for stock futures in the
// nearest expiry on or after now. Index futures drop out later because no
// equity instrument carries their name as a trading symbol.
func nearestExpiryFutures(instruments kiteconnect.Instruments, now time.Time) map[string]int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var nearest time.Time
	for _, in := range instruments {
		if in.InstrumentType != "FUT" || in.Expiry.Before(today) {
			continue
		}
		if nearest.IsZero() || in.Expiry.Time.Before(nearest) {
			nearest = in.Expiry.Time
		}
	}

	lots := make(map[string]int)
	for _, in := range instruments {
		if in.InstrumentType == "FUT" && in.Expiry.Time.Equal(nearest) {
			lots[in.Name] = int(in.LotSize)
		}
	}
	return lots
}

func matchEquities(eqs kiteconnect.Instruments, lots map[string]int, exchange string) []types.Instrument {
	universe := make([]types.Instrument, 0, len(lots))
	for _, eq := range eqs {
		lot, ok := lots[eq.Tradingsymbol]
		if !ok || eq.Segment != exchange {
			continue
		}
		universe = append(universe, types.Instrument{
			Symbol:   eq.Tradingsymbol,
			Exchange: eq.Exchange,
			Token:    uint32(eq.InstrumentToken),
			LotSize:  lot,
		})
	}
	sort.Slice(universe, func(i, j int) bool { return universe[i].Symbol < universe[j].Symbol })
	return universe
}

// universeCache persists the prepared universe to instruments.json in the
// cache directory. An entry written earlier today is fresh.
type universeCache struct {
	dir string
}

func newUniverseCache(dir string) *universeCache {
	if dir == "" {
		dir = "cache"
	}
	return &universeCache{dir: dir}
}

func (c *universeCache) path() string {
	return filepath.Join(c.dir, "instruments.json")
}

func (c *universeCache) load() ([]types.Instrument, bool) {
	fi, err := os.Stat(c.path())
	if err != nil {
		return nil, false
	}
	now := time.Now()
	y1, m1, d1 := fi.ModTime().Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return nil, false
	}
	b, err := os.ReadFile(c.path())
	if err != nil {
		return nil, false
	}
	var universe []types.Instrument
	if err := json.Unmarshal(b, &universe); err != nil || len(universe) == 0 {
		return nil, false
	}
	return universe, true
}

func (c *universeCache) store(universe []types.Instrument) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(universe, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(), b, 0o644)
}
