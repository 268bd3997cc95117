package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Search when no result matches the query
	ErrNotFound = errors.New("not found")

	// ErrGateUnresolved means an age/verification gate could not be bypassed
	ErrGateUnresolved = errors.New("age gate unresolved")

	// ErrUnsupportedSeed means a seed URL belongs to no known storefront
	ErrUnsupportedSeed = errors.New("unsupported seed")
)

// TransportError reports a network or HTTP status failure for one request
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsSiteFailure reports whether err means "this storefront contributes nothing"
// rather than a programming or input error.
func IsSiteFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, ErrGateUnresolved) || errors.Is(err, ErrNotFound)
}
