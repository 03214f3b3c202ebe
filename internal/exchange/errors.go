package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a price-feed failure so callers can dispatch
// behavior per kind instead of per generic error: the live loop retries
// Transient errors, treats NoData as "skip this tick", and surfaces
// Fatal ones.
type ErrorKind int

const (
	// KindNoData means the exchange answered but had nothing for the
	// requested symbol/range.
	KindNoData ErrorKind = iota
	// KindTransient covers network failures, rate limits, and server
	// errors; retrying later is expected to succeed.
	KindTransient
	// KindFatal covers auth problems and invalid requests that will not
	// heal on retry.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoData:
		return "no_data"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// FetchError is the error type returned by all Client fetch operations.
type FetchError struct {
	Kind   ErrorKind
	Op     string
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s (%s)", e.Op, e.Symbol, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable fetch error.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindTransient
}

// IsNoData reports whether err signals an empty result rather than a
// failed request.
func IsNoData(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNoData
}

func fetchErr(kind ErrorKind, op, symbol string, err error) *FetchError {
	return &FetchError{Kind: kind, Op: op, Symbol: symbol, Err: err}
}
