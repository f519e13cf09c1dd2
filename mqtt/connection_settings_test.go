// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConnectionStringValid(t *testing.T) {
	connectionProvider, opts, err := ParseConnectionString(
		"HostName=localhost;TcpPort=1234;ClientId=testClient;" +
			"Username=testUser;Password=testPass;" +
			"KeepAlive=PT30S;SessionExpiry=PT1H;CleanStart=false",
	)
	require.NoError(t, err)
	require.NotNil(t, connectionProvider)

	require.Equal(t, "testClient", opts.ClientID)
	require.Equal(t, uint16(30), opts.KeepAlive)
	require.Equal(t, uint32(3600), opts.SessionExpiry)
	require.False(t, opts.CleanStart)

	username, usernameFlag, err := opts.Username(context.Background())
	require.NoError(t, err)
	require.True(t, usernameFlag)
	require.Equal(t, "testUser", username)

	password, passwordFlag, err := opts.Password(context.Background())
	require.NoError(t, err)
	require.True(t, passwordFlag)
	require.Equal(t, "testPass", string(password))
}

func TestParseConnectionStringDefaults(t *testing.T) {
	_, opts, err := ParseConnectionString("HostName=localhost")
	require.NoError(t, err)

	require.True(t, opts.CleanStart)
	require.Equal(t, uint16(60), opts.KeepAlive)
	require.Equal(t, uint32(3600), opts.SessionExpiry)
	require.Equal(t, 30*time.Second, opts.ConnectionTimeout)
	require.Nil(t, opts.Auth)
}

func TestParseConnectionStringDefaultsToPlainTCP(t *testing.T) {
	// Unlike environment-variable configuration (which targets a production
	// broker and defaults to TLS), a bare connection string is most often
	// used in tests and local tooling pointed at a broker with no TLS
	// listener, so UseTls defaults to false here.
	_, _, err := ParseConnectionString("HostName=localhost;CertFile=cert.pem;KeyFile=key.pem")
	require.Error(t, err)

	_, opts, err := ParseConnectionString("HostName=localhost")
	require.NoError(t, err)
	require.NotNil(t, opts)
}

func TestParseConnectionStringMissingHostName(t *testing.T) {
	_, _, err := ParseConnectionString("TcpPort=1234")
	require.Error(t, err)
}

func TestParseConnectionStringPasswordAndPasswordFileConflict(t *testing.T) {
	_, _, err := ParseConnectionString(
		"HostName=localhost;Password=a;PasswordFile=/tmp/password",
	)
	require.Error(t, err)
}

func TestParseConnectionStringTLSRequiresMatchingCertAndKey(t *testing.T) {
	_, _, err := ParseConnectionString(
		"HostName=localhost;UseTls=true;CertFile=cert.pem",
	)
	require.Error(t, err)
}

func TestParseConnectionStringInvalidKeepAlive(t *testing.T) {
	_, _, err := ParseConnectionString("HostName=localhost;KeepAlive=notaduration")
	require.Error(t, err)
}

func TestParseConnectionStringSatAuthFile(t *testing.T) {
	_, opts, err := ParseConnectionString(
		"HostName=localhost;SatAuthFile=/var/run/secrets/token",
	)
	require.NoError(t, err)
	require.NotNil(t, opts.Auth)
}
