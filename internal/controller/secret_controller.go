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
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"outrider/internal/cluster"
	"outrider/internal/copier"
)

const secretControllerName = "secret"

// SecretReconciler replicates an enabled secret into every ready downstream cluster.
type SecretReconciler struct {
	client.Client
	Copier                  Copier
	// KubeconfigNamespace holds both the provisioning clusters and their kubeconfig secrets.
	KubeconfigNamespace     string
	MaxConcurrentReconciles int
	MaxParallelCopies       int
}

// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch
// +kubebuilder:rbac:groups=provisioning.cattle.io,resources=clusters,verbs=get;list;watch

func (r *SecretReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	secret := &corev1.Secret{}
	if err := r.Get(ctx, req.NamespacedName, secret); err != nil {
		if errors.IsNotFound(err) {
			return Schedule(ctx, secretControllerName, skipped()), nil
		}
		return Schedule(ctx, secretControllerName,
			transientFailure(fmt.Errorf("failed to get secret %s: %w", req.NamespacedName, err))), nil
	}

	if !copier.IsEnabled(secret) {
		return Schedule(ctx, secretControllerName, skipped()), nil
	}

	clusters, err := cluster.ListEligible(ctx, r.Client, r.KubeconfigNamespace)
	if err != nil {
		return Schedule(ctx, secretControllerName, transientFailure(err)), nil
	}

	logger.Info("Reconciling secret", "secret", req.NamespacedName, "clusters", len(clusters))

	outcomes := copyAll(ctx, r.MaxParallelCopies, len(clusters), func(ctx context.Context, i int) copier.Outcome {
		return r.Copier.Copy(ctx, secret, clusters[i])
	})

	return Schedule(ctx, secretControllerName, Summarize(outcomes)), nil
}

// secretContentChanged reports whether data, type, labels or annotations differ.
func secretContentChanged(oldObj, newObj client.Object) bool {
	oldSecret, ok1 := oldObj.(*corev1.Secret)
	newSecret, ok2 := newObj.(*corev1.Secret)
	if !ok1 || !ok2 {
		return true
	}

	return !equality.Semantic.DeepEqual(oldSecret.Data, newSecret.Data) ||
		oldSecret.Type != newSecret.Type ||
		!equality.Semantic.DeepEqual(oldSecret.Labels, newSecret.Labels) ||
		!equality.Semantic.DeepEqual(oldSecret.Annotations, newSecret.Annotations)
}

func enabledSecretPredicate() predicate.Funcs {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return copier.IsEnabled(e.Object)
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			if !copier.IsEnabled(e.ObjectNew) {
				return false
			}
			return secretContentChanged(e.ObjectOld, e.ObjectNew)
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return false
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return copier.IsEnabled(e.Object)
		},
	}
}

// SetupWithManager sets up the controller with the Manager
func (r *SecretReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named(secretControllerName).
		For(&corev1.Secret{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: r.MaxConcurrentReconciles,
		}).
		WithEventFilter(enabledSecretPredicate()).
		Complete(r)
}
