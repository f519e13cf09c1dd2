// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol

import (
	"context"

	"github.com/clearwater-iot/mqttrpc/errors"
	"github.com/clearwater-iot/mqttrpc/internal/log"
	"github.com/google/uuid"
)

// noReturnErr wraps an error to indicate it cannot be returned over RPC (for
// example, an error encountered while building or sending the response to a
// command that has already failed).
type noReturnErr struct{ error }

// markNoReturn marks an error as one that must not be sent back to a remote
// invoker.
func markNoReturn(err error) error {
	return noReturnErr{err}
}

// isNoReturn reports whether err was marked via markNoReturn, and unwraps it
// either way.
func isNoReturn(err error) (bool, error) {
	if e, ok := err.(noReturnErr); ok {
		return true, e.error
	}
	return false, err
}

// errReturn prepares an error for returning from a public API call: it strips
// any no-return marker (since this is outside of the RPC context), applies
// the shallow flag when possible, and logs non-nil errors at warn level.
func errReturn(err error, logger log.Logger, shallow bool) error {
	if e, ok := err.(noReturnErr); ok {
		err = e.error
	}
	if e, ok := err.(*errors.Error); ok {
		e.IsShallow = shallow
	}
	if err != nil {
		logger.Warn(context.Background(), err)
	}
	return err
}

// validateNonNil checks that none of the named arguments are nil interfaces.
func validateNonNil(args map[string]any) error {
	for k, v := range args {
		if v == nil {
			return &errors.Error{
				Message:      "argument is nil",
				Kind:         errors.ConfigurationInvalid,
				PropertyName: k,
			}
		}
	}
	return nil
}

// newUUID generates a UUIDv7 suitable for use as correlation data.
func newUUID() (string, error) {
	correlation, err := uuid.NewV7()
	if err != nil {
		return "", &errors.Error{
			Message:     err.Error(),
			Kind:        errors.UnknownError,
			NestedError: err,
		}
	}
	return correlation.String(), nil
}
