package interfaces

import (
	"context"
	"time"

	"breakout-scanner/internal/types"
)

// BarFetcher retrieves a complete bar series for one instrument, enforcing
// provider rate limits and retrying transient failures.
type BarFetcher interface {
	Fetch(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error)
}

// Scanner drives the universe through fetch and classification. failures is
// keyed by symbol; a per-instrument failure never aborts the run.
type Scanner interface {
	Scan(ctx context.Context, instruments []types.Instrument) (results []types.BreakoutResult, failures map[string]string)
}

// ReportWriter persists a finished scan. Both collections are fully
// materialized before the call.
type ReportWriter interface {
	Write(results []types.BreakoutResult, failures map[string]string) (path string, err error)
}
