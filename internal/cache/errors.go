package cache

import (
	"errors"
	"fmt"
)

// MaterializeError reports a failed materialization job: upstream dataset
// error, IO failure, or invalid configuration.
//
// It is delivered to the requesting component as a typed failure; the
// component keeps showing its last good result and marks itself stale.
// Never fatal to the session.
type MaterializeError struct {
	ComponentID   string
	SignatureHash string
	Dataset       string
	Err           error
}

// Error implements the error interface.
func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize %s (dataset %s): %v", e.ComponentID, e.Dataset, e.Err)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// IsMaterializeError reports whether err is (or wraps) a MaterializeError.
func IsMaterializeError(err error) bool {
	var me *MaterializeError
	return errors.As(err, &me)
}
