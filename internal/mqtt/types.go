// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.

// Package mqtt defines the client-agnostic message and option types shared
// between the protocol layer and whatever MQTT client implements it (the
// session client in the top-level mqtt package, or a test double).
package mqtt

import "context"

type (
	// Message represents a received message.
	Message struct {
		Topic   string
		Payload []byte
		PublishOptions

		// Ack manually acknowledges the message. All handled messages must be
		// acked (except QoS 0 messages, for which this is a no-op).
		Ack func()
	}

	// MessageHandler is a user-defined callback invoked for each message
	// received on a subscribed topic.
	MessageHandler = func(context.Context, *Message)

	// ConnectEvent carries the metadata passed to a handler when the client
	// connects to the broker.
	ConnectEvent struct {
		ReasonCode byte
	}

	// ConnectEventHandler responds to connection notifications.
	ConnectEventHandler = func(*ConnectEvent)

	// DisconnectEvent carries the metadata passed to a handler when the
	// client disconnects from the broker.
	DisconnectEvent struct {
		ReasonCode *byte
		Error      error
	}

	// DisconnectEventHandler responds to disconnection notifications.
	DisconnectEventHandler = func(*DisconnectEvent)

	// Ack carries values from a PUBACK/SUBACK/UNSUBACK received from the
	// server.
	Ack struct {
		ReasonCode     byte
		ReasonString   string
		UserProperties map[string]string
	}
)
