// Package brokerobs wraps a Broker with logging and tracing middleware.
package brokerobs

import (
	"context"
	"time"

	"breakout-scanner/internal/interfaces"
	"breakout-scanner/internal/logger"
	"breakout-scanner/internal/trace"
	"breakout-scanner/internal/types"
)

type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap adds observability around every broker call.
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{broker: broker}
}

func (ob *observableBroker) HistoricalBars(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "broker.HistoricalBars")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching historical bars",
		"symbol", inst.Symbol,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
	)

	bars, err := ob.broker.HistoricalBars(ctx, inst, from, to)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch historical bars", err, "symbol", inst.Symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Historical bars fetched", "symbol", inst.Symbol, "bars", len(bars))
	return bars, nil
}

func (ob *observableBroker) Universe(ctx context.Context) ([]types.Instrument, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Universe")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Loading instrument universe")

	universe, err := ob.broker.Universe(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to load instrument universe", err)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Instrument universe ready", "count", len(universe))
	return universe, nil
}
