package kite

import (
	"errors"
	"net/http"
	"testing"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

func TestMapErrorThrottled(t *testing.T) {
	err := mapError(kiteconnect.Error{
		Code:      http.StatusTooManyRequests,
		ErrorType: kiteconnect.NetworkError,
		Message:   "too many requests",
	})
	var pe *providerError
	if !errors.As(err, &pe) {
		t.Fatalf("expected providerError, got %T", err)
	}
	if !pe.Throttled() || !pe.Transient() {
		t.Errorf("429 should be throttled and transient: %+v", pe)
	}
}

func TestMapErrorTransient(t *testing.T) {
	for _, etype := range []string{kiteconnect.NetworkError, kiteconnect.GeneralError, kiteconnect.DataError} {
		err := mapError(kiteconnect.Error{Code: http.StatusBadGateway, ErrorType: etype, Message: "upstream"})
		var pe *providerError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected providerError, got %T", etype, err)
		}
		if !pe.Transient() {
			t.Errorf("%s should be transient", etype)
		}
		if pe.Throttled() {
			t.Errorf("%s should not be throttled", etype)
		}
	}
}

func TestMapErrorTerminal(t *testing.T) {
	err := mapError(kiteconnect.Error{Code: http.StatusBadRequest, ErrorType: kiteconnect.InputError, Message: "bad token"})
	var pe *providerError
	if !errors.As(err, &pe) {
		t.Fatalf("expected providerError, got %T", err)
	}
	if pe.Transient() || pe.Throttled() {
		t.Errorf("input error should be terminal: %+v", pe)
	}
}

func TestMapErrorPlainTransport(t *testing.T) {
	err := mapError(errors.New("connection reset"))
	var pe *providerError
	if !errors.As(err, &pe) {
		t.Fatalf("expected providerError, got %T", err)
	}
	if !pe.Transient() {
		t.Error("transport errors without an API envelope should be retryable")
	}
}
