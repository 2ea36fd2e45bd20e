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
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"outrider/internal/cluster"
	"outrider/internal/copier"
)

const clusterControllerName = "cluster"

// ClusterReconciler replicates every enabled secret into a cluster once it is ready.
type ClusterReconciler struct {
	client.Client
	Copier                  Copier
	Clients                 ClientInvalidator
	// KubeconfigNamespace holds both the provisioning clusters and their kubeconfig secrets.
	KubeconfigNamespace     string
	MaxConcurrentReconciles int
	MaxParallelCopies       int
}

// +kubebuilder:rbac:groups=provisioning.cattle.io,resources=clusters,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch

func (r *ClusterReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	if req.Namespace != r.KubeconfigNamespace {
		return Schedule(ctx, clusterControllerName, skipped()), nil
	}

	obj := cluster.New()
	if err := r.Get(ctx, req.NamespacedName, obj); err != nil {
		if errors.IsNotFound(err) {
			r.Clients.Invalidate(req.Name)
			logger.Info("Cluster removed, dropped cached client", "cluster", req.Name)
			return Schedule(ctx, clusterControllerName, skipped()), nil
		}
		return Schedule(ctx, clusterControllerName,
			transientFailure(fmt.Errorf("failed to get cluster %s: %w", req.NamespacedName, err))), nil
	}

	target := cluster.FromUnstructured(obj)
	if target.Local {
		logger.V(1).Info("Skipping local cluster")
		return Schedule(ctx, clusterControllerName, skipped()), nil
	}
	if !target.Ready {
		return Schedule(ctx, clusterControllerName, notReady()), nil
	}

	secrets, err := r.enabledSecrets(ctx)
	if err != nil {
		return Schedule(ctx, clusterControllerName, transientFailure(err)), nil
	}

	logger.Info("Reconciling cluster", "cluster", target.ID, "secrets", len(secrets))

	outcomes := copyAll(ctx, r.MaxParallelCopies, len(secrets), func(ctx context.Context, i int) copier.Outcome {
		return r.Copier.Copy(ctx, &secrets[i], target)
	})

	return Schedule(ctx, clusterControllerName, Summarize(outcomes)), nil
}

func (r *ClusterReconciler) enabledSecrets(ctx context.Context) ([]corev1.Secret, error) {
	list := &corev1.SecretList{}
	if err := r.List(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	enabled := make([]corev1.Secret, 0, len(list.Items))
	for i := range list.Items {
		if copier.IsEnabled(&list.Items[i]) {
			enabled = append(enabled, list.Items[i])
		}
	}
	return enabled, nil
}

// clusterForKubeconfig maps a {cluster}-kubeconfig secret to its cluster and
// drops the cached client so rotated credentials are picked up. Only clusters
// in the kubeconfig namespace are reconciled, so the secret's namespace is the
// cluster's namespace.
func (r *ClusterReconciler) clusterForKubeconfig(ctx context.Context, obj client.Object) []reconcile.Request {
	if obj.GetNamespace() != r.KubeconfigNamespace || !strings.HasSuffix(obj.GetName(), cluster.KubeconfigSecretSuffix) {
		return nil
	}

	clusterID := strings.TrimSuffix(obj.GetName(), cluster.KubeconfigSecretSuffix)
	if clusterID == "" {
		return nil
	}

	r.Clients.Invalidate(clusterID)
	log.FromContext(ctx).V(1).Info("Kubeconfig changed", "cluster", clusterID)

	return []reconcile.Request{{NamespacedName: types.NamespacedName{
		Namespace: obj.GetNamespace(),
		Name:      clusterID,
	}}}
}

// kubeconfigHandler enqueues the cluster of a changed kubeconfig secret through
// the work queue rate limiter so bursts of rotations are spread out.
func (r *ClusterReconciler) kubeconfigHandler() handler.Funcs {
	enqueue := func(ctx context.Context, obj client.Object, q workqueue.TypedRateLimitingInterface[reconcile.Request]) {
		for _, req := range r.clusterForKubeconfig(ctx, obj) {
			q.AddRateLimited(req)
		}
	}

	return handler.Funcs{
		CreateFunc: func(ctx context.Context, e event.CreateEvent, q workqueue.TypedRateLimitingInterface[reconcile.Request]) {
			enqueue(ctx, e.Object, q)
		},
		UpdateFunc: func(ctx context.Context, e event.UpdateEvent, q workqueue.TypedRateLimitingInterface[reconcile.Request]) {
			enqueue(ctx, e.ObjectNew, q)
		},
		DeleteFunc: func(ctx context.Context, e event.DeleteEvent, q workqueue.TypedRateLimitingInterface[reconcile.Request]) {
			enqueue(ctx, e.Object, q)
		},
	}
}

// clusterChanged ignores status churn that does not affect readiness or addressing.
func clusterChanged(e event.UpdateEvent) bool {
	if e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration() {
		return true
	}

	oldCluster, ok1 := e.ObjectOld.(*unstructured.Unstructured)
	newCluster, ok2 := e.ObjectNew.(*unstructured.Unstructured)
	if !ok1 || !ok2 {
		return true
	}

	before := cluster.FromUnstructured(oldCluster)
	after := cluster.FromUnstructured(newCluster)
	return before.Ready != after.Ready || before.InternalName != after.InternalName
}

func (r *ClusterReconciler) inKubeconfigNamespace(obj client.Object) bool {
	return obj.GetNamespace() == r.KubeconfigNamespace
}

// SetupWithManager sets up the controller with the Manager
func (r *ClusterReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named(clusterControllerName).
		For(cluster.New(), builder.WithPredicates(
			predicate.NewPredicateFuncs(r.inKubeconfigNamespace),
			predicate.Funcs{UpdateFunc: clusterChanged},
		)).
		Watches(&corev1.Secret{},
			r.kubeconfigHandler(),
			builder.WithPredicates(
				predicate.NewPredicateFuncs(r.inKubeconfigNamespace),
				predicate.ResourceVersionChangedPredicate{},
			),
		).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: r.MaxConcurrentReconciles,
			RateLimiter:             newRateLimiter(),
		}).
		Complete(r)
}
