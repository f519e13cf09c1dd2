// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"context"

	"github.com/clearwater-iot/mqttrpc/errors"
	"github.com/clearwater-iot/mqttrpc/mqtt/auth"
	"github.com/eclipse/paho.golang/paho"
)

// pahoAuther adapts a SessionClient's auth.Provider to Paho's Auther
// interface, which is invoked directly by Paho on the connection's read
// goroutine for AUTH packets and on successful CONNACK/AUTH.
type pahoAuther struct{ c *SessionClient }

// Authenticate is called by Paho when the server sends an AUTH packet with
// reason code 0x18 (Continue authentication).
func (a *pahoAuther) Authenticate(packet *paho.Auth) *paho.Auth {
	ctx := context.Background()
	a.c.log.Packet(ctx, "auth", packet)

	var properties paho.AuthProperties
	if packet.Properties != nil {
		properties = *packet.Properties
	}

	values, err := a.c.options.Auth.ContinueAuth(&auth.Values{
		AuthMethod: properties.AuthMethod,
		AuthData:   properties.AuthData,
	})
	if err != nil {
		a.c.log.Error(ctx, err)
		return nil
	}

	response := &paho.Auth{
		ReasonCode: authContinueAuthentication,
		Properties: &paho.AuthProperties{
			AuthMethod: values.AuthMethod,
			AuthData:   values.AuthData,
		},
	}
	a.c.log.Packet(ctx, "auth", response)
	return response
}

// Authenticated is called by Paho when the connection succeeds, whether or
// not an auth exchange was needed to get there.
func (a *pahoAuther) Authenticated() {
	a.c.options.Auth.AuthSuccess(a.c.requestReauth)
}

// requestReauth starts an MQTT 5 reauthentication exchange on the current
// connection. It is passed to the auth.Provider as the function it may call,
// at any point during the connection's lifetime, to ask for
// reauthentication.
func (c *SessionClient) requestReauth() {
	ctx := context.Background()

	current := c.conn.Current()
	client := current.Client
	if client == nil {
		c.log.Error(ctx, &errors.Error{
			Kind:    errors.ExecutionException,
			Message: "cannot reauthenticate without a live connection",
		})
		return
	}

	values, err := c.options.Auth.InitiateAuth(true)
	if err != nil {
		c.log.Error(ctx, err)
		return
	}

	packet := &paho.Auth{
		ReasonCode: authReauthenticate,
		Properties: &paho.AuthProperties{
			AuthMethod: values.AuthMethod,
			AuthData:   values.AuthData,
		},
	}
	c.log.Packet(ctx, "auth", packet)
	if err := pahoAuth(ctx, client, packet); err != nil {
		c.log.Error(ctx, err)
	}
}
