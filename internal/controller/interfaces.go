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

package controller

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"outrider/internal/cluster"
	"outrider/internal/copier"
)

// Copier writes one secret into one downstream cluster.
type Copier interface {
	Copy(ctx context.Context, secret *corev1.Secret, target cluster.DownstreamCluster) copier.Outcome
}

// ClientInvalidator forgets cached downstream clients.
type ClientInvalidator interface {
	Invalidate(clusterID string)
}
