// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"sync/atomic"

	"github.com/clearwater-iot/mqttrpc/internal/log"
	"github.com/clearwater-iot/mqttrpc/mqtt/internal"
	"github.com/eclipse/paho.golang/paho/session"
	"github.com/eclipse/paho.golang/paho/session/state"
)

// SessionClient implements an MQTT v5 client that transparently reconnects
// and resumes its broker session, serializes PUBACKs for incoming QoS 1
// messages in arrival order, and exposes a small event-handler surface for
// connection lifecycle notifications.
type SessionClient struct {
	clientID           string
	connectionProvider ConnectionProvider
	options            *SessionClientOptions
	pahoConstructor    PahoConstructor

	// sessionStarted is true from a successful Start() until Stop().
	sessionStarted atomic.Bool
	// shutdown is recreated on every Start() and closed on Stop(), and backs
	// every context derived for in-flight operations.
	shutdown *internal.Background

	// conn tracks the currently-connected Paho client instance (if any) and
	// lets callers wait across reconnections.
	conn *internal.ConnectionTracker[PahoClient]
	// session allows the broker session (subscriptions, inflight QoS 1
	// state) to be resumed across reconnections.
	session session.SessionManager

	// messageHandlers are invoked, in registration order, for every incoming
	// PUBLISH regardless of which topic filter it arrived on.
	messageHandlers *internal.AppendableListWithRemoval[func(*Message)]
	// connectEventHandlers are invoked, in registration order, whenever a
	// connection attempt succeeds.
	connectEventHandlers *internal.AppendableListWithRemoval[ConnectEventHandler]
	// disconnectEventHandlers are invoked, in registration order, whenever
	// the current connection is lost.
	disconnectEventHandlers *internal.AppendableListWithRemoval[DisconnectEventHandler]
	// fatalErrorHandlers are invoked, each in its own goroutine, if
	// manageConnection terminates because retries were exhausted or a fatal
	// CONNACK/DISCONNECT reason code was received.
	fatalErrorHandlers *internal.AppendableListWithRemoval[func(error)]

	// outgoingPublishes queues PUBLISHes until the connection is up.
	outgoingPublishes chan *outgoingPublish

	// acks serializes PUBACKs for incoming publishes so they reach the
	// broker in arrival order even though handlers may finish out of order;
	// (re)created on each Start, stopped on each Stop.
	acks *ackQueue

	log logger
}

// NewSessionClient constructs a SessionClient that dials connectionProvider
// to establish each MQTT connection. opts may be nil to accept all defaults.
// The returned client is not started; call Start to begin connecting.
func NewSessionClient(
	connectionProvider ConnectionProvider,
	opts *SessionClientOptions,
) *SessionClient {
	if opts == nil {
		opts = &SessionClientOptions{}
	}
	opts.setDefaults()

	pahoConstructor := opts.PahoConstructor
	if pahoConstructor == nil {
		pahoConstructor = defaultPahoConstructor
	}

	return &SessionClient{
		clientID:           opts.ClientID,
		connectionProvider: connectionProvider,
		options:            opts,
		pahoConstructor:    pahoConstructor,

		conn:    internal.NewConnectionTracker[PahoClient](),
		session: state.NewInMemory(),

		messageHandlers:         internal.NewAppendableListWithRemoval[func(*Message)](),
		connectEventHandlers:    internal.NewAppendableListWithRemoval[ConnectEventHandler](),
		disconnectEventHandlers: internal.NewAppendableListWithRemoval[DisconnectEventHandler](),
		fatalErrorHandlers:      internal.NewAppendableListWithRemoval[func(error)](),

		outgoingPublishes: make(chan *outgoingPublish, maxPublishQueueSize),

		log: logger{log.Wrap(opts.Logger)},
	}
}

// NewSessionClientFromConnectionString constructs a SessionClient from a
// semicolon-delimited connection string. See ParseConnectionString for the
// supported keys.
func NewSessionClientFromConnectionString(
	connStr string,
	opt ...SessionClientOption,
) (*SessionClient, error) {
	connectionProvider, opts, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}
	opts.Apply(opt)
	return NewSessionClient(connectionProvider, opts), nil
}

// ID returns the MQTT Client Identifier this client connects with.
func (c *SessionClient) ID() string {
	return c.clientID
}
