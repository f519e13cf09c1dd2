// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package internal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/clearwater-iot/mqttrpc/errors"
)

// Timeout applies an optional timeout to a context, producing a protocol
// error carrying Name/Text if the timeout elapses.
type Timeout struct {
	time.Duration
	Name string
	Text string
}

func (to *Timeout) Validate() error {
	switch {
	case to.Duration < 0:
		return &errors.Error{
			Message:       "timeout cannot be negative",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Timeout",
			PropertyValue: to.Duration,
		}

	case to.Seconds() > math.MaxUint32:
		return &errors.Error{
			Message:       "timeout too large",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Timeout",
			PropertyValue: to.Duration,
		}

	default:
		return nil
	}
}

func (to *Timeout) Context(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	if to.Duration == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(
		ctx,
		to.Duration,
		&errors.Error{
			Message:      fmt.Sprintf("%s timed out", to.Text),
			Kind:         errors.Timeout,
			TimeoutName:  to.Name,
			TimeoutValue: to.Duration,
		},
	)
}

func (to *Timeout) MessageExpiry() uint32 {
	return uint32(to.Seconds())
}
