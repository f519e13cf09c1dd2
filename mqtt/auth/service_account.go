// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package auth

import "os"

// ServiceAccountToken implements a Provider that authenticates with a
// Kubernetes-style service account token read from a file on disk. It does
// not support reauthentication: once the initial token is sent, the
// connection is expected to live out its session without a second exchange.
type ServiceAccountToken struct {
	filename string
}

// NewServiceAccountToken creates a new service account token auth provider
// that reads the token from filename on each authentication attempt.
func NewServiceAccountToken(filename string) *ServiceAccountToken {
	return &ServiceAccountToken{filename: filename}
}

func (sat *ServiceAccountToken) InitiateAuth(reauth bool) (*Values, error) {
	if reauth {
		// TODO: remove this error when reauthentication is implemented.
		return nil, ErrUnexpected
	}

	token, err := os.ReadFile(sat.filename)
	if err != nil {
		return nil, err
	}
	return &Values{
		AuthMethod: "K8S-SAT",
		AuthData:   token,
	}, nil
}

func (*ServiceAccountToken) ContinueAuth(*Values) (*Values, error) {
	return nil, ErrUnexpected
}

func (*ServiceAccountToken) AuthSuccess(func()) {
	// TODO: start a timer or a file watcher to reauthenticate before the
	// token expires. Not strictly necessary for correctness, since the
	// broker will simply disconnect the client when the token expires and
	// the session client will reconnect with a freshly read token.
}
