// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/eclipse/paho.golang/packets"
)

// ConnectionProvider is a function that returns a net.Conn connected to an
// MQTT server that is ready to read to and write from. Note that the returned
// net.Conn must be thread-safe (i.e., concurrent Write calls must not
// interleave).
type ConnectionProvider func(context.Context) (net.Conn, error)

// TCPConnection is a ConnectionProvider that connects to an MQTT server over
// plain TCP.
func TCPConnection(hostname string, port uint16) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(
			ctx,
			"tcp",
			fmt.Sprintf("%s:%d", hostname, port),
		)
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening TCP connection",
				wrapped: err,
			}
		}
		return conn, nil
	}
}

// TLSOption mutates a *tls.Config before it is used to establish a TLS
// connection to an MQTT server.
type TLSOption func(context.Context, *tls.Config) error

// WithX509 configures the TLS connection to present a client certificate
// loaded from a PEM-encoded certificate and key file pair.
func WithX509(certFile, keyFile string) TLSOption {
	return func(_ context.Context, cfg *tls.Config) error {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return &InvalidArgumentError{
				message: "unable to load X509 key pair",
				wrapped: err,
			}
		}
		cfg.Certificates = []tls.Certificate{cert}
		return nil
	}
}

// WithEncryptedX509 is like WithX509, but the private key file is encrypted
// with a password read from passFile.
func WithEncryptedX509(certFile, keyFile, passFile string) TLSOption {
	return func(_ context.Context, cfg *tls.Config) error {
		cert, err := loadX509KeyPairWithPassword(certFile, keyFile, passFile)
		if err != nil {
			return &InvalidArgumentError{
				message: "unable to load encrypted X509 key pair",
				wrapped: err,
			}
		}
		cfg.Certificates = []tls.Certificate{cert}
		return nil
	}
}

// WithCA configures the TLS connection to trust the certificate authority
// loaded from the given PEM-encoded file, instead of the system trust store.
func WithCA(caFile string) TLSOption {
	return func(_ context.Context, cfg *tls.Config) error {
		pool, err := loadCACertPool(caFile)
		if err != nil {
			return &InvalidArgumentError{
				message: "unable to load CA certificate",
				wrapped: err,
			}
		}
		cfg.RootCAs = pool
		return nil
	}
}

// TLSConnection is a ConnectionProvider that connects to an MQTT server with
// TLS over TCP, applying the given TLSOptions to the base configuration.
func TLSConnection(
	hostname string,
	port uint16,
	opts ...TLSOption,
) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		config := &tls.Config{MinVersion: tls.VersionTLS12}
		for _, opt := range opts {
			if opt == nil {
				continue
			}
			if err := opt(ctx, config); err != nil {
				return nil, err
			}
		}

		d := tls.Dialer{Config: config}
		conn, err := d.DialContext(
			ctx,
			"tcp",
			fmt.Sprintf("%s:%d", hostname, port),
		)
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening TLS connection",
				wrapped: err,
			}
		}
		return packets.NewThreadSafeConn(conn), nil
	}
}
