/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package downstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// CredentialErrorKind classifies why credentials for a cluster could not be turned into a client.
type CredentialErrorKind string

const (
	// NotFound means the kubeconfig material does not exist (yet).
	NotFound CredentialErrorKind = "NotFound"
	// InvalidFormat means the kubeconfig material exists but cannot be used to build a client.
	InvalidFormat CredentialErrorKind = "InvalidFormat"
	// ConnectError means a client was built but the API server could not be reached with it.
	ConnectError CredentialErrorKind = "ConnectError"
)

// CredentialError is returned by resolvers; it wraps the underlying cause.
type CredentialError struct {
	Kind      CredentialErrorKind
	ClusterID string
	Err       error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials for cluster %q: %s: %v", e.ClusterID, e.Kind, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

func newCredentialError(kind CredentialErrorKind, clusterID string, err error) error {
	return &CredentialError{Kind: kind, ClusterID: clusterID, Err: err}
}

// KindOf returns the CredentialErrorKind carried by err, if any.
func KindOf(err error) (CredentialErrorKind, bool) {
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		return credErr.Kind, true
	}
	return "", false
}

// IsNotFound reports whether err is a CredentialError of kind NotFound.
func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == NotFound
}

// IsInvalidFormat reports whether err is a CredentialError of kind InvalidFormat.
func IsInvalidFormat(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == InvalidFormat
}

// IsConnectError reports whether err is a CredentialError of kind ConnectError.
func IsConnectError(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == ConnectError
}
