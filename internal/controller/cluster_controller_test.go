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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"outrider/internal/copier"
	"outrider/test/mocks"
)

var _ = Describe("ClusterReconciler", func() {
	var (
		ctx         context.Context
		scheme      *runtime.Scheme
		mockCtrl    *gomock.Controller
		mockClients *mocks.MockClientGetter
	)

	newReconciler := func(objs ...client.Object) *ClusterReconciler {
		return &ClusterReconciler{
			Client:              fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build(),
			Copier:              copier.NewEngine(mockClients, defaultNamespace),
			Clients:             mockClients,
			KubeconfigNamespace: fleetNamespace,
			MaxParallelCopies:   2,
		}
	}

	request := func(name string) ctrl.Request {
		return ctrl.Request{NamespacedName: types.NamespacedName{Namespace: fleetNamespace, Name: name}}
	}

	BeforeEach(func() {
		ctx = context.Background()
		scheme = newScheme()
		mockCtrl = gomock.NewController(GinkgoT())
		mockClients = mocks.NewMockClientGetter(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Describe("Reconcile", func() {
		It("should drop the cached client when the cluster is gone", func() {
			r := newReconciler()
			mockClients.EXPECT().Invalidate("c1").Times(1)

			result, err := r.Reconcile(ctx, request("c1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
		})

		It("should ignore clusters outside the kubeconfig namespace", func() {
			other := newProvisioningCluster("c1", true)
			other.SetNamespace("fleet-other")
			r := newReconciler(other, newSecret(fleetNamespace, "db-creds", enabled()))

			result, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{
				Namespace: "fleet-other",
				Name:      "c1",
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
		})

		It("should skip the local cluster", func() {
			r := newReconciler(
				newProvisioningCluster("local", true),
				newSecret(fleetNamespace, "db-creds", enabled()),
			)

			result, err := r.Reconcile(ctx, request("local"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
		})

		It("should retry a cluster that is not ready in 30s", func() {
			r := newReconciler(
				newProvisioningCluster("c2", false),
				newSecret(fleetNamespace, "db-creds", enabled()),
			)

			result, err := r.Reconcile(ctx, request("c2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(notReadyRequeue))
		})

		It("should copy every enabled secret into a ready cluster", func() {
			target := fake.NewClientBuilder().Build()
			mockClients.EXPECT().Get(gomock.Any(), "c1").Return(target, nil).AnyTimes()
			r := newReconciler(
				newProvisioningCluster("c1", true),
				newSecret(fleetNamespace, "db-creds", enabled()),
				newSecret("apps", "api-token", enabled(copier.AnnotationNamespace, "apps")),
				newSecret("default", "plain", nil),
			)

			result, err := r.Reconcile(ctx, request("c1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(successRequeue))

			Expect(target.Get(ctx, types.NamespacedName{Namespace: defaultNamespace, Name: "db-creds"}, &corev1.Secret{})).To(Succeed())
			Expect(target.Get(ctx, types.NamespacedName{Namespace: "apps", Name: "api-token"}, &corev1.Secret{})).To(Succeed())
			err = target.Get(ctx, types.NamespacedName{Namespace: defaultNamespace, Name: "plain"}, &corev1.Secret{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("should treat secret listing errors as transient", func() {
			r := newReconciler()
			r.Client = fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(newProvisioningCluster("c1", true)).
				WithInterceptorFuncs(interceptor.Funcs{
					List: func(ctx context.Context, c client.WithWatch, list client.ObjectList, opts ...client.ListOption) error {
						return apierrors.NewTimeoutError("list timed out", 1)
					},
				}).Build()

			result, err := r.Reconcile(ctx, request("c1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(transientRequeue))
		})
	})

	Describe("scenario: one ready and one provisioning cluster", func() {
		It("should copy into c1 only and keep retrying c2", func() {
			c1 := fake.NewClientBuilder().Build()
			mockClients.EXPECT().Get(gomock.Any(), "c1").Return(c1, nil).AnyTimes()
			objs := []client.Object{
				newProvisioningCluster("c1", true),
				newProvisioningCluster("c2", false),
				newSecret(fleetNamespace, "db-creds", enabled()),
			}

			secrets := &SecretReconciler{
				Client:              fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build(),
				Copier:              copier.NewEngine(mockClients, defaultNamespace),
				KubeconfigNamespace: fleetNamespace,
				MaxParallelCopies:   2,
			}
			result, err := secrets.Reconcile(ctx, request("db-creds"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(successRequeue))
			Expect(c1.Get(ctx, types.NamespacedName{Namespace: defaultNamespace, Name: "db-creds"}, &corev1.Secret{})).To(Succeed())

			clusters := newReconciler(objs...)
			for i := 0; i < 3; i++ {
				result, err = clusters.Reconcile(ctx, request("c2"))
				Expect(err).NotTo(HaveOccurred())
				Expect(result.RequeueAfter).To(Equal(notReadyRequeue))
			}
		})
	})

	Describe("clusterForKubeconfig", func() {
		var r *ClusterReconciler

		BeforeEach(func() {
			r = newReconciler()
		})

		It("should map a kubeconfig secret to its cluster and drop the cached client", func() {
			mockClients.EXPECT().Invalidate("c1").Times(1)

			requests := r.clusterForKubeconfig(ctx, newSecret(fleetNamespace, "c1-kubeconfig", nil))
			Expect(requests).To(ConsistOf(request("c1")))
		})

		It("should ignore secrets in other namespaces", func() {
			Expect(r.clusterForKubeconfig(ctx, newSecret("default", "c1-kubeconfig", nil))).To(BeEmpty())
		})

		It("should ignore other secrets", func() {
			Expect(r.clusterForKubeconfig(ctx, newSecret(fleetNamespace, "db-creds", nil))).To(BeEmpty())
			Expect(r.clusterForKubeconfig(ctx, newSecret(fleetNamespace, "-kubeconfig", nil))).To(BeEmpty())
		})
	})

	Describe("kubeconfigHandler", func() {
		var (
			r     *ClusterReconciler
			queue workqueue.TypedRateLimitingInterface[reconcile.Request]
		)

		BeforeEach(func() {
			r = newReconciler()
			queue = workqueue.NewTypedRateLimitingQueue(newRateLimiter())
		})

		AfterEach(func() {
			queue.ShutDown()
		})

		It("should enqueue rotations through the rate limiter", func() {
			mockClients.EXPECT().Invalidate("c1").Times(2)
			h := r.kubeconfigHandler()
			kubeconfig := newSecret(fleetNamespace, "c1-kubeconfig", nil)

			h.Create(ctx, event.CreateEvent{Object: kubeconfig}, queue)
			Expect(queue.NumRequeues(request("c1"))).To(Equal(1))

			h.Update(ctx, event.UpdateEvent{ObjectOld: kubeconfig, ObjectNew: kubeconfig}, queue)
			Expect(queue.NumRequeues(request("c1"))).To(Equal(2))

			Eventually(queue.Len, "5s").Should(Equal(1))
			item, _ := queue.Get()
			Expect(item).To(Equal(request("c1")))
			queue.Done(item)
		})

		It("should enqueue the cluster when its kubeconfig is deleted", func() {
			mockClients.EXPECT().Invalidate("c1")

			r.kubeconfigHandler().Delete(ctx, event.DeleteEvent{Object: newSecret(fleetNamespace, "c1-kubeconfig", nil)}, queue)
			Expect(queue.NumRequeues(request("c1"))).To(Equal(1))
		})

		It("should not enqueue unrelated secrets", func() {
			r.kubeconfigHandler().Create(ctx, event.CreateEvent{Object: newSecret(fleetNamespace, "db-creds", nil)}, queue)
			Expect(queue.NumRequeues(request("db-creds"))).To(Equal(0))
			Consistently(queue.Len, "100ms").Should(Equal(0))
		})
	})

	Describe("clusterChanged", func() {
		It("should ignore status churn", func() {
			oldObj := newProvisioningCluster("c1", true)
			newObj := oldObj.DeepCopy()
			newObj.Object["status"].(map[string]interface{})["observedGeneration"] = int64(3)
			Expect(clusterChanged(event.UpdateEvent{ObjectOld: oldObj, ObjectNew: newObj})).To(BeFalse())
		})

		It("should fire when the cluster becomes ready", func() {
			Expect(clusterChanged(event.UpdateEvent{
				ObjectOld: newProvisioningCluster("c1", false),
				ObjectNew: newProvisioningCluster("c1", true),
			})).To(BeTrue())
		})

		It("should fire on spec changes", func() {
			oldObj := newProvisioningCluster("c1", true)
			newObj := oldObj.DeepCopy()
			newObj.SetGeneration(2)
			Expect(clusterChanged(event.UpdateEvent{ObjectOld: oldObj, ObjectNew: newObj})).To(BeTrue())
		})

		It("should fire for non-cluster objects", func() {
			Expect(clusterChanged(event.UpdateEvent{
				ObjectOld: &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "a"}},
				ObjectNew: &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "a"}},
			})).To(BeTrue())
		})
	})
})
