// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package test

import (
	"context"

	"github.com/clearwater-iot/mqttrpc/mqtt"
)

const (
	topicName      string = "patrick"
	publishMessage string = "squidward"
)

func noopHandler(context.Context, *mqtt.Message) {}
