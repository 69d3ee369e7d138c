package dora

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds surfaced by the metric calculators and the upstream clients that feed them.
// Callers classify failures with errors.Is.
var (
	// ErrInsufficientData is returned when a ratio or average would divide by zero.
	ErrInsufficientData = goerr.New("insufficient data")

	// ErrMalformedRecord is returned when a record lacks a required field or carries an unparseable date.
	ErrMalformedRecord = goerr.New("malformed record")

	// ErrUpstreamFetch marks failures talking to an upstream API. The calculators never
	// return it; it is raised by the fetch layer and passed through untouched.
	ErrUpstreamFetch = goerr.New("upstream fetch failed")
)

// UpstreamError tags err as an upstream fetch failure, keeping err in the chain.
func UpstreamError(err error, msg string, options ...goerr.Option) error {
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrUpstreamFetch, err), msg, options...)
}
