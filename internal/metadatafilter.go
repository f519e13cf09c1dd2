// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package internal

import (
	"strings"

	"github.com/clearwater-iot/mqttrpc/internal/constants"
)

// PropToMetadata filters reserved protocol properties out of a publish's
// user properties, leaving only application-provided metadata.
func PropToMetadata(prop map[string]string) map[string]string {
	data := make(map[string]string, len(prop))
	for key, val := range prop {
		if !strings.HasPrefix(key, constants.Protocol) {
			data[key] = val
		}
	}
	return data
}
