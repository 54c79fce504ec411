package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrChainUnavailable    = errors.New("chain unavailable")
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")
	ErrEventScanDegraded   = errors.New("event scan degraded")
	ErrConfiguration       = errors.New("configuration error")
	ErrMalformedAddress    = errors.New("malformed address")
	ErrMarketSkipped       = errors.New("market skipped")
)

// OpError attaches an error kind and the failing operation to a cause.
type OpError struct {
	Kind error
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap returns err tagged with kind. An err that already carries kind is returned as is.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &OpError{Kind: kind, Op: op, Err: err}
}

// Errorf builds an error of the given kind from a format string.
func Errorf(kind error, op string, format string, args ...any) error {
	return &OpError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the first known kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrConfiguration,
		ErrMalformedAddress,
		ErrSnapshotUnavailable,
		ErrChainUnavailable,
		ErrEventScanDegraded,
		ErrMarketSkipped,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
