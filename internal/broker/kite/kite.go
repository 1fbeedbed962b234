// Package kite adapts the Zerodha Kite Connect API to the scanner's broker
// contracts. It holds the session capability, maps SDK errors into
// retryable/throttled categories, and prepares the derivative-eligible
// equity universe. Pacing and retries live in the fetch package.
package kite

import (
	"context"
	"errors"
	"net/http"
	"time"

	"breakout-scanner/internal/interfaces"
	"breakout-scanner/internal/types"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// dayInterval is the Kite historical-data interval for daily bars.
const dayInterval = "day"

type Params struct {
	APIKey      string
	AccessToken string // opaque session capability, passed through untouched
	Exchange    string
	CacheDir    string
	HTTPTimeout time.Duration
}

type Kite struct {
	kc    *kiteconnect.Client
	p     Params
	cache *universeCache
}

var _ interfaces.Broker = (*Kite)(nil)

func New(p Params) *Kite {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.HTTPTimeout <= 0 {
		p.HTTPTimeout = 10 * time.Second
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	kc.SetHTTPClient(&http.Client{Timeout: p.HTTPTimeout})
	return &Kite{kc: kc, p: p, cache: newUniverseCache(p.CacheDir)}
}

// HistoricalBars fetches daily bars for one instrument. The SDK call itself
// is bounded by the HTTP client timeout; ctx is checked before dialing.
func (k *Kite) HistoricalBars(ctx context.Context, inst types.Instrument, from, to time.Time) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := k.kc.GetHistoricalData(int(inst.Token), dayInterval, from, to, false, false)
	if err != nil {
		return nil, mapError(err)
	}
	bars := make([]types.Bar, 0, len(data))
	for _, d := range data {
		bars = append(bars, types.Bar{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		})
	}
	return bars, nil
}

// providerError tags an SDK failure with retry semantics for the fetcher.
type providerError struct {
	err       error
	transient bool
	throttled bool
}

func (e *providerError) Error() string   { return e.err.Error() }
func (e *providerError) Unwrap() error   { return e.err }
func (e *providerError) Transient() bool { return e.transient }
func (e *providerError) Throttled() bool { return e.throttled }

func mapError(err error) error {
	var ke kiteconnect.Error
	if !errors.As(err, &ke) {
		// Transport-level failure without an API envelope.
		return &providerError{err: err, transient: true}
	}
	switch {
	case ke.Code == http.StatusTooManyRequests:
		return &providerError{err: err, transient: true, throttled: true}
	case ke.ErrorType == kiteconnect.NetworkError,
		ke.ErrorType == kiteconnect.GeneralError,
		ke.ErrorType == kiteconnect.DataError:
		return &providerError{err: err, transient: true}
	default:
		return &providerError{err: err}
	}
}
