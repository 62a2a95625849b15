// Package failures holds the error types shared by the application handlers
// and the HTTP adapter.
package failures

import (
	"context"
	"errors"
	"fmt"
)

// FetchError wraps a store failure while loading data for a request.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetch wraps err unless it is nil or a domain error the caller should map
// on its own (not found, permission denied).
func Fetch(op string, err error, passthrough ...error) error {
	if err == nil {
		return nil
	}
	for _, target := range passthrough {
		if errors.Is(err, target) {
			return err
		}
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Op: op, Err: err}
}

// SaveError reports that a produced document could not be persisted.
type SaveError struct {
	Cancelled bool
	Err       error
}

func (e *SaveError) Error() string {
	if e.Cancelled {
		return "save cancelled"
	}
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func Save(err error) error {
	if err == nil {
		return nil
	}
	return &SaveError{Cancelled: errors.Is(err, context.Canceled), Err: err}
}
