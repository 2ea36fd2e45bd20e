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

package copier

import "k8s.io/apimachinery/pkg/types"

// Reason explains a failed copy.
type Reason string

const (
	// ReasonClusterUnreachable means no working client could be obtained.
	ReasonClusterUnreachable Reason = "ClusterUnreachable"
	// ReasonNamespaceCreateFailed means the target namespace could not be read or created.
	ReasonNamespaceCreateFailed Reason = "NamespaceCreateFailed"
	// ReasonWriteFailed means the secret could not be created or updated.
	ReasonWriteFailed Reason = "WriteFailed"
	// ReasonUnauthorized means the downstream API server rejected the credentials.
	ReasonUnauthorized Reason = "Unauthorized"
)

// Transient reports whether a retry may succeed without operator action.
func (r Reason) Transient() bool {
	return r != ReasonUnauthorized
}

// Action is what a successful copy did downstream.
type Action string

const (
	ActionCreated   Action = "Created"
	ActionUpdated   Action = "Updated"
	ActionUnchanged Action = "Unchanged"
)

// Outcome is the result of copying one secret into one cluster.
// Reason is empty on success.
type Outcome struct {
	ClusterID string
	Secret    types.NamespacedName
	Action    Action
	Reason    Reason
	Err       error
}

// Failed reports whether the copy failed.
func (o Outcome) Failed() bool {
	return o.Reason != ""
}

func (o Outcome) result() string {
	if o.Failed() {
		return string(o.Reason)
	}
	return string(o.Action)
}
