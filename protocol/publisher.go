// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"time"

	"github.com/clearwater-iot/mqttrpc/errors"
	"github.com/clearwater-iot/mqttrpc/internal"
	"github.com/clearwater-iot/mqttrpc/internal/constants"
	"github.com/clearwater-iot/mqttrpc/internal/log"
	"github.com/clearwater-iot/mqttrpc/internal/mqtt"
	"github.com/clearwater-iot/mqttrpc/internal/version"
	"github.com/clearwater-iot/mqttrpc/topic"
	"github.com/google/uuid"
)

// publisher provides the shared implementation details for the MQTT
// publishers (command invoker, telemetry sender, and a command executor's
// response).
type publisher[T any] struct {
	client   MqttClient
	encoding Encoding[T]
	topic    *topic.TopicPattern
	log      log.Logger
}

// DefaultTimeout is the timeout applied to Invoke or Send if none is
// specified.
const DefaultTimeout = 10 * time.Second

func (p *publisher[T]) build(
	msg *Message[T],
	topicTokens map[string]string,
	timeout *internal.Timeout,
) (*mqtt.Message, error) {
	pub := &mqtt.Message{}
	var err error

	if p.topic != nil {
		pub.Topic, err = p.topic.Topic(topicTokens)
		if err != nil {
			return nil, err
		}
	}

	pub.PublishOptions = mqtt.PublishOptions{
		QoS:           1,
		MessageExpiry: timeout.MessageExpiry(),
	}

	if msg != nil {
		data, err := serialize(p.encoding, msg.Payload)
		if err != nil {
			return nil, err
		}

		pub.Payload = data.Payload
		pub.ContentType = data.ContentType
		pub.PayloadFormat = data.PayloadFormat

		if msg.CorrelationData != "" {
			correlationData, err := uuid.Parse(msg.CorrelationData)
			if err != nil {
				return nil, &errors.Error{
					Message: "correlation data is not a valid UUID",
					Kind:    errors.InternalLogicError,
				}
			}
			pub.CorrelationData = correlationData[:]
		}

		if msg.Metadata != nil {
			pub.UserProperties = msg.Metadata
		} else {
			pub.UserProperties = map[string]string{}
		}
	} else {
		pub.UserProperties = map[string]string{}
	}

	pub.UserProperties[constants.SourceClientID] = p.client.ID()
	pub.UserProperties[constants.ProtocolVersion] = version.ProtocolString

	return pub, nil
}

func (p *publisher[T]) publish(ctx context.Context, msg *mqtt.Message) error {
	_, err := p.client.Publish(
		ctx,
		msg.Topic,
		msg.Payload,
		publishOptionsToOptions(msg.PublishOptions)...,
	)
	return errors.Normalize(err, "publish")
}

// publishOptionsToOptions converts a resolved PublishOptions back into the
// discrete option values Publish expects.
func publishOptionsToOptions(o mqtt.PublishOptions) []mqtt.PublishOption {
	opts := []mqtt.PublishOption{
		mqtt.WithQoS(o.QoS),
		mqtt.WithContentType(o.ContentType),
		mqtt.WithPayloadFormat(o.PayloadFormat),
		mqtt.WithMessageExpiry(o.MessageExpiry),
	}
	if len(o.CorrelationData) != 0 {
		opts = append(opts, mqtt.WithCorrelationData(o.CorrelationData))
	}
	if o.ResponseTopic != "" {
		opts = append(opts, mqtt.WithResponseTopic(o.ResponseTopic))
	}
	if o.Retain {
		opts = append(opts, mqtt.WithRetain(true))
	}
	if len(o.UserProperties) != 0 {
		opts = append(opts, mqtt.WithUserProperties(o.UserProperties))
	}
	return opts
}
