// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package errors

import (
	"fmt"
	"strconv"

	"github.com/clearwater-iot/mqttrpc/internal/constants"
	"github.com/clearwater-iot/mqttrpc/internal/version"
	"github.com/sosodev/duration"
)

type result struct {
	status            int
	message           string
	application       bool
	name              string
	value             any
	version           string
	supportedVersions []int
}

// ToUserProperties maps an error (nil meaning success) to the MQTT user
// properties that carry the protocol status on the wire.
func ToUserProperties(err error) map[string]string {
	if err == nil {
		return (&result{status: 200}).props()
	}

	e, ok := err.(*Error)
	if !ok {
		return (&result{status: 500, message: err.Error()}).props()
	}

	message := e.Message
	switch e.Kind {
	case HeaderMissing:
		return (&result{
			status:  400,
			message: message,
			name:    e.HeaderName,
		}).props()
	case HeaderInvalid:
		if e.HeaderName == constants.ContentType ||
			e.HeaderName == constants.FormatIndicator {
			return (&result{
				status:  415,
				message: message,
				name:    e.HeaderName,
				value:   e.HeaderValue,
			}).props()
		}
		return (&result{
			status:  400,
			message: message,
			name:    e.HeaderName,
			value:   e.HeaderValue,
		}).props()
	case PayloadInvalid:
		return (&result{
			status:  400,
			message: message,
		}).props()
	case Timeout:
		return (&result{
			status:  408,
			message: message,
			name:    e.TimeoutName,
			value:   duration.Format(e.TimeoutValue),
		}).props()
	case StateInvalid:
		return (&result{
			status:  503,
			message: message,
			name:    e.PropertyName,
		}).props()
	case InternalLogicError:
		return (&result{
			status:  500,
			message: message,
			name:    e.PropertyName,
		}).props()
	case UnknownError:
		return (&result{
			status:  500,
			message: message,
		}).props()
	case ExecutionException:
		return (&result{
			status:      500,
			message:     message,
			application: true,
		}).props()
	case UnsupportedRequestVersion, UnsupportedResponseVersion:
		return (&result{
			status:            505,
			message:           message,
			version:           e.ProtocolVersion,
			supportedVersions: e.SupportedMajorProtocolVersions,
		}).props()
	default:
		return (&result{
			status:  500,
			message: "invalid error kind",
			name:    "Kind",
		}).props()
	}
}

// FromUserProperties reconstructs the error (nil meaning success) carried by
// a response's MQTT user properties.
func FromUserProperties(user map[string]string) error {
	status := user[constants.Status]
	statusMessage := user[constants.StatusMessage]
	propertyName := user[constants.InvalidPropertyName]
	propertyValue := user[constants.InvalidPropertyValue]
	protocolVersion := user[constants.RequestProtocolVersion]
	supportedVersions := user[constants.SupportedProtocolMajorVersion]

	if status == "" {
		return &Error{
			Message:    "status missing",
			Kind:       HeaderMissing,
			HeaderName: constants.Status,
		}
	}

	code, err := strconv.ParseInt(status, 10, 32)
	if err != nil {
		return &Error{
			Message:     "status is not a valid integer",
			Kind:        HeaderInvalid,
			HeaderName:  constants.Status,
			HeaderValue: status,
			NestedError: err,
		}
	}

	// No error, we're done.
	if code < 400 {
		return nil
	}

	e := &Error{Message: statusMessage, IsRemote: true, HTTPStatusCode: int(code)}

	switch code {
	case 400, 415:
		switch {
		case propertyName == "" && propertyValue == "":
			e.Kind = PayloadInvalid
		case propertyValue == "":
			e.Kind = HeaderMissing
			e.HeaderName = propertyName
		default:
			e.Kind = HeaderInvalid
			e.HeaderName = propertyName
			e.HeaderValue = propertyValue
		}
	case 408:
		to, err := duration.Parse(propertyValue)
		if err != nil {
			return &Error{
				Message:     "invalid timeout value",
				Kind:        HeaderInvalid,
				HeaderName:  constants.InvalidPropertyValue,
				HeaderValue: propertyValue,
				NestedError: err,
			}
		}
		e.Kind = Timeout
		e.TimeoutName = propertyName
		e.TimeoutValue = to.ToTimeDuration()
	case 500:
		appErr := user[constants.IsApplicationError]
		switch {
		case appErr != "" && appErr != "false":
			e.Kind = ExecutionException
			e.InApplication = true
		case propertyName != "":
			e.Kind = InternalLogicError
			e.PropertyName = propertyName
		default:
			e.Kind = UnknownError
		}
	case 503:
		e.Kind = StateInvalid
		e.PropertyName = propertyName
	case 505:
		e.Kind = UnsupportedResponseVersion
		e.ProtocolVersion = protocolVersion
		e.SupportedMajorProtocolVersions = version.ParseSupported(supportedVersions)
	default:
		// Treat unknown status as an unknown error, but otherwise allow them.
		e.Kind = UnknownError
		e.PropertyName = propertyName
		if propertyValue != "" {
			e.PropertyValue = propertyValue
		}
	}

	return e
}

func (r *result) props() map[string]string {
	props := make(map[string]string, 5)

	props[constants.Status] = fmt.Sprint(r.status)

	props[constants.StatusMessage] = r.message
	if r.application {
		props[constants.IsApplicationError] = "true"
	}

	if r.name != "" {
		props[constants.InvalidPropertyName] = r.name
		if r.value != nil {
			props[constants.InvalidPropertyValue] = fmt.Sprint(r.value)
		}
	}

	if r.version != "" {
		props[constants.RequestProtocolVersion] = r.version
		props[constants.SupportedProtocolMajorVersion] = version.SerializeSupported(
			r.supportedVersions,
		)
	}

	return props
}
