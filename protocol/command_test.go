// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol_test

import (
	"context"
	"testing"

	"github.com/clearwater-iot/mqttrpc/protocol"
	"github.com/stretchr/testify/require"
)

// Simple happy-path sanity check for a command round trip.
func TestCommandRoundTrip(t *testing.T) {
	ctx := context.Background()
	stub := setupMqtt(ctx, t, 1886)

	app, err := protocol.NewApplication()
	require.NoError(t, err)

	reqEnc := protocol.JSON[string]{}
	resEnc := protocol.JSON[string]{}
	topicPattern := "command/{token}"

	executor, err := protocol.NewCommandExecutor(
		app, stub.Server, reqEnc, resEnc, topicPattern,
		func(
			_ context.Context,
			req *protocol.CommandRequest[string],
		) (*protocol.CommandResponse[string], error) {
			return &protocol.CommandResponse[string]{
				Message: protocol.Message[string]{
					Payload: "echo:" + req.Payload,
				},
			}, nil
		},
		protocol.WithTopicTokens{"token": "test"},
	)
	require.NoError(t, err)
	defer executor.Close()
	require.NoError(t, executor.Start(ctx))

	invoker, err := protocol.NewCommandInvoker(
		app, stub.Client, reqEnc, resEnc, topicPattern,
		protocol.WithTopicTokens{"token": "test"},
	)
	require.NoError(t, err)
	defer invoker.Close()
	require.NoError(t, invoker.Start(ctx))

	res, err := invoker.Invoke(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, "echo:hello", res.Payload)
}
