// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol

import (
	"context"

	"github.com/clearwater-iot/mqttrpc/internal/mqtt"
)

type (
	// MqttClient is the client used for the underlying MQTT connection.
	MqttClient interface {
		ID() string
		Publish(
			context.Context,
			string,
			[]byte,
			...mqtt.PublishOption,
		) (*mqtt.Ack, error)
		RegisterMessageHandler(mqtt.MessageHandler) func()
		Subscribe(
			context.Context,
			string,
			...mqtt.SubscribeOption,
		) (*mqtt.Ack, error)
		Unsubscribe(
			context.Context,
			string,
			...mqtt.UnsubscribeOption,
		) (*mqtt.Ack, error)
	}

	// Message contains common message data that is exposed to message
	// handlers.
	Message[T any] struct {
		// The message payload.
		Payload T

		// The ID of the calling MQTT client.
		ClientID string

		// The data that identifies a single unique request.
		CorrelationData string

		// The timestamp the message carried, if any, preserved verbatim for
		// forwarding; this protocol layer never interprets it.
		Timestamp string

		// All topic tokens resolved from the incoming topic.
		TopicTokens map[string]string

		// Any user-provided metadata values.
		Metadata map[string]string

		// The raw payload data.
		*Data
	}

	// Option represents any of the option types, and can be filtered and
	// applied by the Apply methods on the option structs.
	Option interface{ option() }

	// InvocationError represents an error intentionally returned by a
	// telemetry handler to indicate incorrect invocation, as opposed to an
	// internal execution failure; the telemetry receiver reports it as an
	// InvocationException. The command executor does not distinguish it:
	// every error a command handler returns, InvocationError included, is
	// reported as an ExecutionException.
	InvocationError struct {
		Message       string
		PropertyName  string
		PropertyValue any
	}
)

func (e InvocationError) Error() string {
	return e.Message
}
