// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"crypto/tls"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/clearwater-iot/mqttrpc/mqtt/auth"
	"github.com/sosodev/duration"
)

// ParseConnectionString parses a semicolon-delimited connection string into
// a ConnectionProvider and SessionClientOptions suitable for
// NewSessionClient.
//
// Recognized keys (case-insensitive): HostName, TcpPort, UseTls, ClientId,
// CleanStart, KeepAlive, SessionExpiry, ConnectionTimeout, Username,
// Password, PasswordFile, SatAuthFile, CertFile, KeyFile, KeyFilePassword,
// CaFile.
//
// KeepAlive, SessionExpiry, and ConnectionTimeout are ISO 8601 durations
// (e.g. PT1H for one hour).
//
// Connection string example:
// HostName=localhost;TcpPort=1883;UseTls=true;ClientId=Test.
func ParseConnectionString(
	connStr string,
) (ConnectionProvider, *SessionClientOptions, error) {
	return connectionFromMap(parseConnectionStringMap(connStr))
}

func parseConnectionStringMap(connStr string) map[string]string {
	settings := make(map[string]string)

	connStr = strings.TrimSuffix(connStr, ";")
	for _, param := range strings.Split(connStr, ";") {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		settings[key] = strings.TrimSpace(kv[1])
	}
	return settings
}

func connectionFromMap(
	settings map[string]string,
) (ConnectionProvider, *SessionClientOptions, error) {
	opts := &SessionClientOptions{CleanStart: true}

	if cleanStartStr := settings["cleanstart"]; cleanStartStr != "" {
		cleanStart, err := strconv.ParseBool(cleanStartStr)
		if err != nil {
			return nil, nil, &InvalidArgumentError{
				message: "unable to parse CleanStart as a boolean",
				wrapped: err,
			}
		}
		opts.CleanStart = cleanStart
	}

	if keepAliveStr := settings["keepalive"]; keepAliveStr != "" {
		seconds, err := parseISODurationSeconds(keepAliveStr, math.MaxUint16)
		if err != nil {
			return nil, nil, &InvalidArgumentError{
				message: "unable to parse KeepAlive as an ISO8601 duration",
				wrapped: err,
			}
		}
		opts.KeepAlive = uint16(seconds)
	} else {
		opts.KeepAlive = 60
	}

	if clientID := settings["clientid"]; clientID != "" {
		opts.ClientID = clientID
	}

	if sessionExpiryStr := settings["sessionexpiry"]; sessionExpiryStr != "" {
		seconds, err := parseISODurationSeconds(sessionExpiryStr, math.MaxUint32)
		if err != nil {
			return nil, nil, &InvalidArgumentError{
				message: "unable to parse SessionExpiry as an ISO8601 duration",
				wrapped: err,
			}
		}
		opts.SessionExpiry = uint32(seconds)
	} else {
		opts.SessionExpiry = 3600
	}

	opts.ConnectionTimeout = 30 * time.Second
	if connectionTimeoutStr := settings["connectiontimeout"]; connectionTimeoutStr != "" {
		parsed, err := duration.Parse(connectionTimeoutStr)
		if err != nil {
			return nil, nil, &InvalidArgumentError{
				message: "unable to parse ConnectionTimeout as an ISO8601 duration",
				wrapped: err,
			}
		}
		opts.ConnectionTimeout = parsed.ToTimeDuration()
	}

	if username := settings["username"]; username != "" {
		opts.Username = ConstantUsername(username)
	}

	if password := settings["password"]; password != "" {
		if settings["passwordfile"] != "" {
			return nil, nil, &InvalidArgumentError{
				message: "Password and PasswordFile are both provided, but only one may be used",
			}
		}
		opts.Password = ConstantPassword([]byte(password))
	} else if passwordFile := settings["passwordfile"]; passwordFile != "" {
		opts.Password = FilePassword(passwordFile)
	}

	if satAuthFile := settings["satauthfile"]; satAuthFile != "" {
		opts.Auth = auth.NewServiceAccountToken(satAuthFile)
	}

	hostname := settings["hostname"]
	if hostname == "" {
		return nil, nil, &InvalidArgumentError{message: "HostName must be provided"}
	}

	port := uint64(8883)
	if portStr := settings["tcpport"]; portStr != "" {
		var err error
		port, err = strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, nil, &InvalidArgumentError{
				message: "unable to parse TcpPort as an integer",
				wrapped: err,
			}
		}
	}

	// Unlike the broker-oriented defaults in SessionClientConfigFromEnv,
	// connection strings default to plain TCP: they are most often used in
	// tests and local tooling pointed at a broker with no TLS listener.
	useTLS := false
	if useTLSStr := settings["usetls"]; useTLSStr != "" {
		var err error
		useTLS, err = strconv.ParseBool(useTLSStr)
		if err != nil {
			return nil, nil, &InvalidArgumentError{
				message: "unable to parse UseTls as a boolean",
				wrapped: err,
			}
		}
	}

	certFile := settings["certfile"]
	keyFile := settings["keyfile"]
	caFile := settings["cafile"]

	if !useTLS {
		if certFile != "" || keyFile != "" || caFile != "" {
			return nil, nil, &InvalidArgumentError{
				message: "CertFile, KeyFile, and CaFile must not be provided if UseTls is false",
			}
		}
		return TCPConnection(hostname, uint16(port)), opts, nil
	}

	if (certFile != "") != (keyFile != "") {
		return nil, nil, &InvalidArgumentError{
			message: "both CertFile and KeyFile must be provided if using X509 authentication",
		}
	}

	var tlsOpts []TLSOption

	// Bypasses hostname verification when deliberately connecting to
	// localhost, e.g. against a local test broker.
	if hostname == "localhost" {
		tlsOpts = append(tlsOpts, func(_ context.Context, cfg *tls.Config) error {
			cfg.InsecureSkipVerify = true // #nosec G402
			return nil
		})
	}

	if certFile != "" {
		if keyFilePassword := settings["keyfilepassword"]; keyFilePassword != "" {
			tlsOpts = append(
				tlsOpts,
				WithEncryptedX509(certFile, keyFile, keyFilePassword),
			)
		} else {
			tlsOpts = append(tlsOpts, WithX509(certFile, keyFile))
		}
	}

	if caFile != "" {
		tlsOpts = append(tlsOpts, WithCA(caFile))
	}

	return TLSConnection(hostname, uint16(port), tlsOpts...), opts, nil
}

func parseISODurationSeconds(s string, max float64) (float64, error) {
	parsed, err := duration.Parse(s)
	if err != nil {
		return 0, err
	}
	seconds := parsed.ToTimeDuration().Seconds()
	if seconds > max || seconds < 0 {
		return 0, &InvalidArgumentError{
			message: "duration is outside of the valid MQTT range",
		}
	}
	return seconds, nil
}
