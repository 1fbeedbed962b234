package interfaces

import (
	"context"
	"time"

	"breakout-scanner/internal/types"
)

// HistoricalProvider retrieves daily bars for one instrument from the
// brokerage API. Implementations do not retry or pace calls.
type HistoricalProvider interface {
	HistoricalBars(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error)
}

// InstrumentSource supplies the ordered universe of instruments to scan.
type InstrumentSource interface {
	Universe(ctx context.Context) ([]types.Instrument, error)
}

// Broker is the full brokerage surface the scanner needs.
type Broker interface {
	HistoricalProvider
	InstrumentSource
}
