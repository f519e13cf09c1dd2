// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"context"

	"github.com/eclipse/paho.golang/paho"
)

type (
	// WillMessage is a representation of the LWT message that can
	// be sent with the Connect packet.
	WillMessage struct {
		Retain  bool
		QoS     byte
		Topic   string
		Payload []byte
	}

	// WillProperties is a struct of the properties
	// that can be set for a Will in a Connect packet.
	WillProperties struct {
		PayloadFormat     byte
		WillDelayInterval uint32
		MessageExpiry     uint32
		ContentType       string
		ResponseTopic     string
		CorrelationData   []byte
		UserProperties    map[string]string
	}

	// PahoConstructor builds the underlying Paho client for a new connection
	// attempt. It exists so tests can substitute a client that talks to an
	// in-process broker instead of a real network socket.
	PahoConstructor func(paho.ClientConfig) PahoClient

	// PahoClient is the interface for the underlying MQTTv5 client used by
	// SessionClient. The Paho client is the only production implementation;
	// the interface exists for test substitution.
	PahoClient interface {
		Connect(
			ctx context.Context,
			packet *paho.Connect,
		) (*paho.Connack, error)

		Disconnect(
			packet *paho.Disconnect,
		) error

		Subscribe(
			ctx context.Context,
			packet *paho.Subscribe,
		) (*paho.Suback, error)

		Unsubscribe(
			ctx context.Context,
			packet *paho.Unsubscribe,
		) (*paho.Unsuback, error)

		Publish(
			ctx context.Context,
			packet *paho.Publish,
		) (*paho.PublishResponse, error)

		PublishWithOptions(
			ctx context.Context,
			packet *paho.Publish,
			opts paho.PublishOptions,
		) (*paho.PublishResponse, error)

		Ack(
			pb *paho.Publish,
		) error

		Authenticate(
			ctx context.Context,
			auth *paho.Auth,
		) (*paho.AuthResponse, error)
	}
)

func defaultPahoConstructor(config paho.ClientConfig) PahoClient {
	return paho.NewClient(config)
}
