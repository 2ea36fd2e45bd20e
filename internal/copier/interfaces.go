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

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ClientGetter provides downstream clients keyed by cluster id.
// downstream.Cache is the production implementation.
type ClientGetter interface {
	// Get returns a client for the cluster, resolving credentials when needed.
	Get(ctx context.Context, clusterID string) (client.Client, error)

	// Invalidate forgets the client for the cluster so the next Get resolves again.
	Invalidate(clusterID string)
}
