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

// Package copier writes a source secret into a downstream cluster.
package copier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"outrider/internal/cluster"
	"outrider/internal/metrics"
)

// Engine copies secrets into downstream clusters.
type Engine struct {
	clients          ClientGetter
	defaultNamespace string
}

// NewEngine returns an Engine writing into defaultNamespace unless a secret overrides it.
func NewEngine(clients ClientGetter, defaultNamespace string) *Engine {
	return &Engine{
		clients:          clients,
		defaultNamespace: defaultNamespace,
	}
}

// Copy makes the downstream copy of secret match the source. It never
// touches the source cluster and is safe to repeat.
func (e *Engine) Copy(ctx context.Context, secret *corev1.Secret, target cluster.DownstreamCluster) Outcome {
	config := parseConfig(secret, e.defaultNamespace)
	source := client.ObjectKeyFromObject(secret)
	logger := log.FromContext(ctx).WithValues(
		"cluster", target.ID,
		"dst", config.TargetNamespace+"/"+config.TargetName,
	)

	targetClient, err := e.clients.Get(ctx, target.ID)
	if err != nil {
		// Failed resolutions are never cached, nothing to invalidate.
		return e.record(failure(target.ID, source, ReasonClusterUnreachable, err))
	}

	if err := ensureNamespace(ctx, targetClient, config.TargetNamespace); err != nil {
		return e.fail(ctx, target.ID, source, ReasonNamespaceCreateFailed, err)
	}

	action, err := upsert(ctx, targetClient, buildPayload(secret, config))
	if err != nil {
		return e.fail(ctx, target.ID, source, ReasonWriteFailed, err)
	}

	logger.V(1).Info("Secret copied", "action", action)
	return e.record(Outcome{ClusterID: target.ID, Secret: source, Action: action})
}

func (e *Engine) fail(ctx context.Context, clusterID string, source types.NamespacedName, reason Reason, err error) Outcome {
	if staleClient(err) {
		log.FromContext(ctx).V(1).Info("Dropping cached client", "cluster", clusterID, "reason", err.Error())
		e.clients.Invalidate(clusterID)
	}
	return e.record(failure(clusterID, source, reason, err))
}

func (e *Engine) record(outcome Outcome) Outcome {
	metrics.Copies.WithLabelValues(outcome.ClusterID, outcome.result()).Inc()
	return outcome
}

func failure(clusterID string, source types.NamespacedName, reason Reason, err error) Outcome {
	if unauthorized(err) {
		reason = ReasonUnauthorized
	}
	return Outcome{ClusterID: clusterID, Secret: source, Reason: reason, Err: err}
}

func unauthorized(err error) bool {
	return apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err)
}

// staleClient reports errors after which the cached client should be rebuilt.
func staleClient(err error) bool {
	if unauthorized(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsServerTimeout(err) ||
		apierrors.IsServiceUnavailable(err) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func ensureNamespace(ctx context.Context, c client.Client, name string) error {
	ns := &corev1.Namespace{}
	err := c.Get(ctx, types.NamespacedName{Name: name}, ns)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to check namespace %q: %w", name, err)
	}

	ns.Name = name
	if err := c.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %q: %w", name, err)
	}
	log.FromContext(ctx).Info("Created target namespace", "namespace", name)
	return nil
}

// upsert creates desired or overwrites the existing secret with it.
func upsert(ctx context.Context, c client.Client, desired *corev1.Secret) (Action, error) {
	key := client.ObjectKeyFromObject(desired)
	var action Action

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		existing := &corev1.Secret{}
		if err := c.Get(ctx, key, existing); err != nil {
			if !apierrors.IsNotFound(err) {
				return fmt.Errorf("failed to check existing secret: %w", err)
			}
			if err := c.Create(ctx, desired.DeepCopy()); err != nil {
				if apierrors.IsAlreadyExists(err) {
					// Lost a create race; retry as an update.
					return apierrors.NewConflict(corev1.Resource("secrets"), key.Name, err)
				}
				return fmt.Errorf("failed to create secret: %w", err)
			}
			action = ActionCreated
			return nil
		}

		if upToDate(existing, desired) {
			action = ActionUnchanged
			return nil
		}

		existing.Labels = desired.Labels
		existing.Annotations = desired.Annotations
		existing.Data = desired.Data
		existing.Type = desired.Type
		existing.Immutable = desired.Immutable
		if err := c.Update(ctx, existing); err != nil {
			if apierrors.IsConflict(err) {
				return err
			}
			return fmt.Errorf("failed to update secret: %w", err)
		}
		action = ActionUpdated
		return nil
	})

	return action, err
}

func upToDate(existing, desired *corev1.Secret) bool {
	return equality.Semantic.DeepEqual(existing.Labels, desired.Labels) &&
		equality.Semantic.DeepEqual(existing.Annotations, desired.Annotations) &&
		equality.Semantic.DeepEqual(existing.Data, desired.Data) &&
		existing.Type == desired.Type &&
		equality.Semantic.DeepEqual(existing.Immutable, desired.Immutable)
}
