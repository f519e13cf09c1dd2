// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"log/slog"
	"time"

	"github.com/clearwater-iot/mqttrpc/mqtt/auth"
	"github.com/clearwater-iot/mqttrpc/mqtt/retry"
)

// SessionClientOptions are the resolved options for a SessionClient. They are
// built up by applying a list of SessionClientOption functions over the
// defaults, then frozen for the lifetime of the client.
type SessionClientOptions struct {
	// ClientID is the MQTT Client Identifier. If empty, a random one is
	// generated.
	ClientID string

	// CleanStart controls Clean Start on the first CONNECT only; it is
	// always false on reconnections so that the broker session can be
	// resumed.
	CleanStart bool

	// KeepAlive is the MQTT Keep Alive interval in seconds.
	KeepAlive uint16

	// SessionExpiry is the MQTT Session Expiry Interval in seconds.
	SessionExpiry uint32

	// ReceiveMaximum is the client-side Receive Maximum.
	ReceiveMaximum uint16

	// ConnectionTimeout bounds a single connection attempt. Zero means no
	// timeout.
	ConnectionTimeout time.Duration

	// ConnectionRetry is the retry policy used for connection attempts.
	ConnectionRetry retry.Policy

	// ConnectUserProperties are the user properties attached to the CONNECT
	// packet.
	ConnectUserProperties map[string]string

	// Username provides the MQTT User Name for each connection attempt.
	Username UsernameProvider

	// Password provides the MQTT Password for each connection attempt.
	Password PasswordProvider

	// Auth, if set, enables MQTT 5 enhanced authentication.
	Auth auth.Provider

	// Will is the Last Will and Testament published if the client
	// disconnects ungracefully.
	Will           *WillMessage
	WillProperties *WillProperties

	// Logger receives structured logs for connection lifecycle events and,
	// at debug level, every packet sent and received.
	Logger *slog.Logger

	// PahoConstructor replaces the default Paho client constructor. This is
	// intended for test substitution; production code should leave it unset.
	PahoConstructor PahoConstructor
}

// SessionClientOption mutates a SessionClientOptions in place.
type SessionClientOption func(*SessionClientOptions)

// Apply resolves the provided lists of options onto o, in order.
func (o *SessionClientOptions) Apply(opts []SessionClientOption, rest ...SessionClientOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	for _, opt := range rest {
		if opt != nil {
			opt(o)
		}
	}
}

func (o *SessionClientOptions) setDefaults() {
	if o.ClientID == "" {
		o.ClientID = RandomClientID()
	}
	if o.ReceiveMaximum == 0 {
		o.ReceiveMaximum = defaultReceiveMaximum
	}
	if o.Username == nil {
		o.Username = defaultUsername
	}
	if o.Password == nil {
		o.Password = defaultPassword
	}
	if o.ConnectionRetry == nil {
		o.ConnectionRetry = &retry.ExponentialBackoff{Logger: o.Logger}
	}
}

func defaultUsername(context.Context) (string, bool, error) {
	return "", false, nil
}

// WithLogger sets the logger used for connection lifecycle and packet
// tracing.
func WithLogger(l *slog.Logger) SessionClientOption {
	return func(o *SessionClientOptions) { o.Logger = l }
}

// WithClientID sets the MQTT Client Identifier.
func WithClientID(clientID string) SessionClientOption {
	return func(o *SessionClientOptions) { o.ClientID = clientID }
}

// WithConnRetry sets the connection retry policy.
func WithConnRetry(policy retry.Policy) SessionClientOption {
	return func(o *SessionClientOptions) { o.ConnectionRetry = policy }
}

// WithCleanStart sets the value of Clean Start in the CONNECT packet for the
// first connection. Clean Start is always false on reconnections.
//
// ParseConnectionString sets this to true unless the connection string says
// otherwise; options built directly or by SessionClientConfigFromEnv start
// with it false. It should not be turned off unless you are aware of the
// implications: if there is a possibility of a session on the broker
// for this Client ID with inflight QoS 1 PUBLISHes, turning this off without
// understanding the broker's session state may result in message loss.
func WithCleanStart(cleanStart bool) SessionClientOption {
	return func(o *SessionClientOptions) { o.CleanStart = cleanStart }
}

// WithKeepAlive sets the Keep Alive interval, in seconds, for the MQTT
// connection.
func WithKeepAlive(keepAlive uint16) SessionClientOption {
	return func(o *SessionClientOptions) { o.KeepAlive = keepAlive }
}

// WithSessionExpiryInterval sets the MQTT Session Expiry Interval, in
// seconds.
func WithSessionExpiryInterval(sessionExpiryInterval uint32) SessionClientOption {
	return func(o *SessionClientOptions) { o.SessionExpiry = sessionExpiryInterval }
}

// WithReceiveMaximum sets the client-side Receive Maximum.
func WithReceiveMaximum(receiveMaximum uint16) SessionClientOption {
	return func(o *SessionClientOptions) { o.ReceiveMaximum = receiveMaximum }
}

// WithConnectionTimeout bounds how long a single connection attempt may take
// before it is considered failed and retried.
func WithConnectionTimeout(connectionTimeout time.Duration) SessionClientOption {
	return func(o *SessionClientOptions) { o.ConnectionTimeout = connectionTimeout }
}

// WithConnectPropertiesUser sets the user properties for the CONNECT packet.
func WithConnectPropertiesUser(userProperties map[string]string) SessionClientOption {
	return func(o *SessionClientOptions) { o.ConnectUserProperties = userProperties }
}

// WithUsername sets the UsernameProvider used for each connection attempt.
func WithUsername(provider UsernameProvider) SessionClientOption {
	return func(o *SessionClientOptions) { o.Username = provider }
}

// WithPassword sets the PasswordProvider used for each connection attempt.
func WithPassword(provider PasswordProvider) SessionClientOption {
	return func(o *SessionClientOptions) { o.Password = provider }
}

// WithAuth enables MQTT 5 enhanced authentication using the given provider.
func WithAuth(provider auth.Provider) SessionClientOption {
	return func(o *SessionClientOptions) { o.Auth = provider }
}

// WithWill sets the Last Will and Testament published on ungraceful
// disconnection.
func WithWill(will *WillMessage, properties *WillProperties) SessionClientOption {
	return func(o *SessionClientOptions) {
		o.Will = will
		o.WillProperties = properties
	}
}

// WithPahoConstructor replaces the default Paho client constructor, for test
// substitution.
func WithPahoConstructor(constructor PahoConstructor) SessionClientOption {
	return func(o *SessionClientOptions) { o.PahoConstructor = constructor }
}
