// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package protocol_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/clearwater-iot/mqttrpc/protocol"
	"github.com/stretchr/testify/require"
)

// Simple happy-path sanity check.
func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	stub := setupMqtt(ctx, t, 1885)

	app, err := protocol.NewApplication()
	require.NoError(t, err)

	enc := protocol.JSON[string]{}
	topicPattern := "prefix/{token}/suffix"
	value := "test"

	results := make(chan *protocol.TelemetryMessage[string])

	receiver, err := protocol.NewTelemetryReceiver(app, stub.Server, enc, topicPattern,
		func(_ context.Context, tm *protocol.TelemetryMessage[string]) error {
			results <- tm
			return nil
		},
	)
	require.NoError(t, err)
	defer receiver.Close()

	sender, err := protocol.NewTelemetrySender(app, stub.Client, enc, topicPattern,
		protocol.WithTopicTokens{"token": "test"},
	)
	require.NoError(t, err)

	err = receiver.Start(ctx)
	require.NoError(t, err)

	source, err := url.Parse("https://contoso.com")
	require.NoError(t, err)

	err = sender.Send(ctx, value, &protocol.CloudEvent{Source: source})
	require.NoError(t, err)

	res := <-results
	require.Equal(t, stub.Client.ID(), res.ClientID)
	require.Equal(t, value, res.Payload)

	ce, err := protocol.CloudEventFromTelemetry(res)
	require.NoError(t, err)
	require.Equal(t, "https://contoso.com", ce.Source.String())
	require.Equal(t, "prefix/test/suffix", ce.Subject)
	require.Equal(t, "application/json", ce.DataContentType)
}
