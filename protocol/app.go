// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol

import (
	"log/slog"

	"github.com/clearwater-iot/mqttrpc/internal/options"
)

type (
	// Application represents shared application state. A single Application
	// is shared by every command executor, command invoker, telemetry
	// sender, and telemetry receiver an application creates, supplying the
	// default logger each uses unless overridden.
	Application struct {
		log *slog.Logger
	}

	// ApplicationOption represents a single application option.
	ApplicationOption interface{ application(*ApplicationOptions) }

	// ApplicationOptions are the resolved application options.
	ApplicationOptions struct {
		Logger *slog.Logger
	}
)

// NewApplication creates a new shared application state. Only one of these
// should be created per application.
func NewApplication(opt ...ApplicationOption) (*Application, error) {
	var opts ApplicationOptions
	opts.Apply(opt)

	return &Application{log: opts.Logger}, nil
}

// Apply resolves the provided list of options.
func (o *ApplicationOptions) Apply(
	opts []ApplicationOption,
	rest ...ApplicationOption,
) {
	for opt := range options.Apply[ApplicationOption](opts, rest...) {
		opt.application(o)
	}
}

func (o *ApplicationOptions) application(opt *ApplicationOptions) {
	if o != nil {
		*opt = *o
	}
}
