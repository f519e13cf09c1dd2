// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/clearwater-iot/mqttrpc/internal"
	"github.com/clearwater-iot/mqttrpc/internal/concurrency"
	"github.com/clearwater-iot/mqttrpc/internal/constants"
	"github.com/clearwater-iot/mqttrpc/internal/log"
	"github.com/clearwater-iot/mqttrpc/internal/mqtt"
	"github.com/clearwater-iot/mqttrpc/internal/version"
	"github.com/clearwater-iot/mqttrpc/errors"
	"github.com/clearwater-iot/mqttrpc/topic"
	"github.com/google/uuid"
)

type (
	// Listener represents an object which will listen to an MQTT topic.
	Listener interface {
		Start(context.Context) error
		Close()
	}

	// Listeners represents a collection of MQTT listeners.
	Listeners []Listener

	// listener provides the shared implementation details for the MQTT
	// listeners (command executor, telemetry receiver).
	listener[T any] struct {
		client         MqttClient
		encoding       Encoding[T]
		topic          *topic.TopicFilter
		shareName      string
		concurrency    uint
		reqCorrelation bool
		logger         log.Logger
		handler        interface {
			onMsg(context.Context, *mqtt.Message, *Message[T]) error
			onErr(context.Context, *mqtt.Message, error) error
		}

		dispatch func(context.Context, *mqtt.Message)
		stop     func()
		unregister func()
		active     atomic.Bool
	}
)

func (l *listener[T]) register() error {
	dispatch, stop := concurrency.Concurrent(l.concurrency, l.handle)
	l.dispatch = dispatch
	l.stop = stop

	l.unregister = l.client.RegisterMessageHandler(func(ctx context.Context, pub *mqtt.Message) {
		if !l.matches(pub.Topic) {
			return
		}
		l.dispatch(ctx, pub)
	})

	return nil
}

// matches reports whether pub's topic belongs to this listener's filter.
func (l *listener[T]) matches(t string) bool {
	_, ok := l.topic.Tokens(t)
	return ok
}

func (l *listener[T]) filter() string {
	filter := l.topic.Filter()
	if l.shareName != "" {
		return "$share/" + l.shareName + "/" + filter
	}
	return filter
}

func (l *listener[T]) listen(ctx context.Context) error {
	if !l.active.CompareAndSwap(false, true) {
		return nil
	}
	_, err := l.client.Subscribe(
		ctx,
		l.filter(),
		mqtt.WithQoS(1),
		mqtt.WithNoLocal(l.shareName == ""),
	)
	if err != nil {
		l.active.Store(false)
	}
	return err
}

func (l *listener[T]) close() {
	if l.active.CompareAndSwap(true, false) {
		ctx := context.Background()
		if _, err := l.client.Unsubscribe(ctx, l.filter()); err != nil {
			// Returning an error from a close function that is most likely to
			// be deferred is rarely useful, so just log it.
			l.logger.Err(ctx, err)
		}
	}
	if l.unregister != nil {
		l.unregister()
	}
	l.stop()
}

func (l *listener[T]) handle(ctx context.Context, pub *mqtt.Message) {
	msg := &Message[T]{}

	// The very first check must be the version, because if we don't support
	// it, nothing else is trustworthy.
	ver := pub.UserProperties[constants.ProtocolVersion]
	if !version.IsSupported(ver) {
		l.error(ctx, pub, &errors.Error{
			Message:                        "unsupported version",
			Kind:                           errors.UnsupportedRequestVersion,
			ProtocolVersion:                ver,
			SupportedMajorProtocolVersions: version.Supported,
		})
		return
	}

	if l.reqCorrelation && len(pub.CorrelationData) == 0 {
		l.error(ctx, pub, &errors.Error{
			Message:    "correlation data missing",
			Kind:       errors.HeaderMissing,
			HeaderName: constants.CorrelationData,
		})
		return
	}
	if len(pub.CorrelationData) != 0 {
		correlationData, err := uuid.FromBytes(pub.CorrelationData)
		if err != nil {
			l.error(ctx, pub, &errors.Error{
				Message:    "correlation data is not a valid UUID",
				Kind:       errors.HeaderInvalid,
				HeaderName: constants.CorrelationData,
			})
			return
		}
		msg.CorrelationData = correlationData.String()
	}

	// Timestamp is a reserved property this layer never interprets; carry it
	// through unchanged for the application or a downstream forwarder.
	msg.Timestamp = pub.UserProperties[constants.Timestamp]

	msg.ClientID = pub.UserProperties[constants.SourceClientID]
	msg.Data = &Data{
		Payload:       pub.Payload,
		ContentType:   pub.ContentType,
		PayloadFormat: pub.PayloadFormat,
	}

	msg.Metadata = internal.PropToMetadata(pub.UserProperties)
	msg.TopicTokens, _ = l.topic.Tokens(pub.Topic)

	if err := l.handler.onMsg(ctx, pub, msg); err != nil {
		l.error(ctx, pub, err)
		return
	}
}

// payload decodes the message body, handled manually (rather than via the
// encoding interface alone) since format/content-type mismatches need to
// surface as protocol errors pointing at the relevant header.
func (l *listener[T]) payload(pub *mqtt.Message) (T, error) {
	var zero T

	if pub.ContentType != "" {
		data := &Data{
			Payload:       pub.Payload,
			ContentType:   pub.ContentType,
			PayloadFormat: pub.PayloadFormat,
		}
		return deserialize(l.encoding, data)
	}

	data := &Data{Payload: pub.Payload, PayloadFormat: pub.PayloadFormat}
	value, err := deserialize(l.encoding, data)
	if err != nil {
		return zero, fmt.Errorf("%w", err)
	}
	return value, nil
}

func (l *listener[T]) ack(_ context.Context, pub *mqtt.Message) {
	if pub.Ack != nil {
		pub.Ack()
	}
}

func (l *listener[T]) error(ctx context.Context, pub *mqtt.Message, err error) {
	// Drop the message if the error handler fails.
	if e := l.handler.onErr(ctx, pub, err); e != nil {
		l.drop(ctx, pub, err)
	}
}

func (l *listener[T]) drop(ctx context.Context, _ *mqtt.Message, err error) {
	l.logger.Err(ctx, err)
}

// Start listening to all underlying MQTT topics.
func (ls Listeners) Start(ctx context.Context) error {
	for _, l := range ls {
		if err := l.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close all underlying MQTT topics and free resources.
func (ls Listeners) Close() {
	for _, l := range ls {
		l.Close()
	}
}
