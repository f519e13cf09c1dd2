// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/clearwater-iot/mqttrpc/mqtt"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"
)

const (
	mochiTCPPort  int    = 1234
	mochiUserName string = "gary"
	mochiPassword string = "pineapple"
)

func createSessionClientOnMochi() (*mqtt.SessionClient, error) {
	return mqtt.NewSessionClientFromConnectionString(
		fmt.Sprintf("HostName=localhost;TcpPort=%d;Username=%s;Password=%s",
			mochiTCPPort,
			mochiUserName,
			mochiPassword,
		),
	)
}

func startMochi(t *testing.T) {
	ledger := &auth.Ledger{
		// Auth disallows all by default.
		Auth: auth.AuthRules{
			{
				Username: auth.RString(mochiUserName),
				Password: auth.RString(mochiPassword),
				Allow:    true,
			},
		},
	}

	server := mochi.New(nil)
	err := server.AddHook(
		new(auth.Hook),
		&auth.Options{Ledger: ledger},
	)
	require.NoError(t, err)

	cfg := listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		Address: fmt.Sprintf("localhost:%d", mochiTCPPort),
	})
	require.NoError(t, server.AddListener(cfg))
	require.NoError(t, server.Serve())

	t.Cleanup(func() { _ = server.Close() })
}

// waitConnected starts the client and blocks until its first connect event
// fires or the timeout elapses.
func waitConnected(t *testing.T, client *mqtt.SessionClient) {
	connected := make(chan struct{})
	unregister := client.RegisterConnectEventHandler(
		func(*mqtt.ConnectEvent) {
			close(connected)
		},
	)
	t.Cleanup(unregister)

	require.NoError(t, client.Start())
	t.Cleanup(func() { _ = client.Stop() })

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection to mochi broker")
	}
}

func TestWithMochi(t *testing.T) {
	startMochi(t)

	t.Run("TestConnect", func(t *testing.T) {
		client, err := createSessionClientOnMochi()
		require.NoError(t, err)
		waitConnected(t, client)
	})

	t.Run("TestSubscribeUnsubscribe", func(t *testing.T) {
		client, err := createSessionClientOnMochi()
		require.NoError(t, err)
		waitConnected(t, client)

		ack, err := client.Subscribe(context.Background(), topicName)
		require.NoError(t, err)
		require.NotNil(t, ack)

		unregister := client.RegisterMessageHandler(noopHandler)
		t.Cleanup(unregister)

		_, err = client.Unsubscribe(context.Background(), topicName)
		require.NoError(t, err)
	})

	t.Run("TestSubscribePublish", func(t *testing.T) {
		client, err := createSessionClientOnMochi()
		require.NoError(t, err)
		waitConnected(t, client)

		received := make(chan struct{})
		unregister := client.RegisterMessageHandler(
			func(_ context.Context, msg *mqtt.Message) {
				require.Equal(t, topicName, msg.Topic)
				require.Equal(t, []byte(publishMessage), msg.Payload)
				close(received)
			},
		)
		t.Cleanup(unregister)

		_, err = client.Subscribe(context.Background(), topicName)
		require.NoError(t, err)

		_, err = client.Publish(
			context.Background(),
			topicName,
			[]byte(publishMessage),
		)
		require.NoError(t, err)

		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for published message")
		}
	})
}
