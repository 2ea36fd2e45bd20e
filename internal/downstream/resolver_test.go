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
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"outrider/internal/cluster"
)

var _ = Describe("KubeconfigResolver", func() {
	var (
		ctx       context.Context
		scheme    *runtime.Scheme
		handshake func(*rest.Config) error
		seen      []*rest.Config
	)

	newResolver := func(objs ...runtime.Object) *KubeconfigResolver {
		reader := fake.NewClientBuilder().WithScheme(scheme).WithRuntimeObjects(objs...).Build()
		r := NewKubeconfigResolver(reader, "fleet-default", scheme)
		r.Handshake = func(cfg *rest.Config) error {
			seen = append(seen, cfg)
			return handshake(cfg)
		}
		return r
	}

	kubeconfigSecret := func(data map[string][]byte) *corev1.Secret {
		return &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: "c1-kubeconfig", Namespace: "fleet-default"},
			Data:       data,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		scheme = newScheme()
		seen = nil
		handshake = func(*rest.Config) error { return nil }
	})

	It("should build a client from the kubeconfig secret", func() {
		r := newResolver(kubeconfigSecret(map[string][]byte{KubeconfigKey: []byte(testKubeconfig)}))

		c, err := r.Resolve(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).NotTo(BeNil())
		Expect(seen).To(HaveLen(1))
		Expect(seen[0].Host).To(Equal("https://c1.example.invalid:6443"))
		Expect(seen[0].BearerToken).To(Equal("secret-token"))
	})

	It("should return NotFound when the secret does not exist", func() {
		r := newResolver()

		_, err := r.Resolve(ctx, "c1")
		Expect(IsNotFound(err)).To(BeTrue())
		Expect(seen).To(BeEmpty())
	})

	It("should return NotFound when the value key is missing", func() {
		r := newResolver(kubeconfigSecret(map[string][]byte{"other": []byte(testKubeconfig)}))

		_, err := r.Resolve(ctx, "c1")
		Expect(IsNotFound(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("kubeconfig not found"))
	})

	It("should return NotFound when the value key is empty", func() {
		r := newResolver(kubeconfigSecret(map[string][]byte{KubeconfigKey: {}}))

		_, err := r.Resolve(ctx, "c1")
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("should return InvalidFormat for a malformed kubeconfig", func() {
		r := newResolver(kubeconfigSecret(map[string][]byte{KubeconfigKey: []byte("not a kubeconfig")}))

		_, err := r.Resolve(ctx, "c1")
		Expect(IsInvalidFormat(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("failed to parse kubeconfig"))
		Expect(seen).To(BeEmpty())
	})

	It("should return ConnectError when the handshake fails", func() {
		refused := errors.New("connection refused")
		handshake = func(*rest.Config) error { return refused }
		r := newResolver(kubeconfigSecret(map[string][]byte{KubeconfigKey: []byte(testKubeconfig)}))

		_, err := r.Resolve(ctx, "c1")
		Expect(IsConnectError(err)).To(BeTrue())
		Expect(errors.Is(err, refused)).To(BeTrue())

		var credErr *CredentialError
		Expect(errors.As(err, &credErr)).To(BeTrue())
		Expect(credErr.ClusterID).To(Equal("c1"))
	})

	It("should only read from the configured namespace", func() {
		secret := kubeconfigSecret(map[string][]byte{KubeconfigKey: []byte(testKubeconfig)})
		secret.Namespace = "elsewhere"
		r := newResolver(secret)

		_, err := r.Resolve(ctx, "c1")
		Expect(IsNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("ProxyResolver", func() {
	var (
		ctx    context.Context
		scheme *runtime.Scheme
		seen   []*rest.Config
	)

	newResolver := func(host string, objs ...runtime.Object) *ProxyResolver {
		reader := fake.NewClientBuilder().WithScheme(scheme).WithRuntimeObjects(objs...).Build()
		r := NewProxyResolver(reader, "fleet-default", &rest.Config{Host: host, BearerToken: "admin"}, scheme)
		r.Handshake = func(cfg *rest.Config) error {
			seen = append(seen, cfg)
			return nil
		}
		return r
	}

	provisioningCluster := func(internalName string) *unstructured.Unstructured {
		u := cluster.New()
		u.SetName("c1")
		u.SetNamespace("fleet-default")
		if internalName != "" {
			u.Object["status"] = map[string]interface{}{"clusterName": internalName}
		}
		return u
	}

	BeforeEach(func() {
		ctx = context.Background()
		scheme = newScheme()
		seen = nil
	})

	It("should route through the Rancher proxy of the internal cluster name", func() {
		r := newResolver("https://rancher.example.invalid/k8s/clusters/local", provisioningCluster("c-m-abc"))

		c, err := r.Resolve(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).NotTo(BeNil())
		Expect(seen).To(HaveLen(1))
		Expect(seen[0].Host).To(Equal("https://rancher.example.invalid/k8s/clusters/c-m-abc"))
		Expect(seen[0].BearerToken).To(Equal("admin"))
		Expect(r.Config.Host).To(Equal("https://rancher.example.invalid/k8s/clusters/local"))
	})

	It("should return NotFound when the cluster has no internal name", func() {
		r := newResolver("https://rancher.example.invalid/k8s/clusters/local", provisioningCluster(""))

		_, err := r.Resolve(ctx, "c1")
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("should return NotFound when the cluster does not exist", func() {
		r := newResolver("https://rancher.example.invalid/k8s/clusters/local")

		_, err := r.Resolve(ctx, "c1")
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("should return InvalidFormat when the manager is not reached through the proxy", func() {
		r := newResolver("https://10.0.0.1:6443", provisioningCluster("c-m-abc"))

		_, err := r.Resolve(ctx, "c1")
		Expect(IsInvalidFormat(err)).To(BeTrue())
		Expect(seen).To(BeEmpty())
	})
})

var _ = DescribeTable("proxyHost",
	func(host, expected string, ok bool) {
		got, err := proxyHost(host, "c-m-abc")
		if !ok {
			Expect(err).To(HaveOccurred())
			return
		}
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(expected))
	},
	Entry("plain suffix", "https://r.example/k8s/clusters/local", "https://r.example/k8s/clusters/c-m-abc", true),
	Entry("trailing slash", "https://r.example/k8s/clusters/local/", "https://r.example/k8s/clusters/c-m-abc", true),
	Entry("direct api server", "https://r.example:6443", "", false),
	Entry("other cluster", "https://r.example/k8s/clusters/c-m-xyz", "", false),
)

var _ = Describe("kubeconfigFromSecret", func() {
	It("should extract the kubeconfig from the value key", func() {
		secret := &corev1.Secret{Data: map[string][]byte{KubeconfigKey: []byte("kubeconfig-content")}}
		Expect(kubeconfigFromSecret(secret)).To(Equal([]byte("kubeconfig-content")))
	})

	It("should return nil if the value key is missing", func() {
		secret := &corev1.Secret{Data: map[string][]byte{"other-key": []byte("some-content")}}
		Expect(kubeconfigFromSecret(secret)).To(BeNil())
	})

	It("should return nil for nil data", func() {
		Expect(kubeconfigFromSecret(&corev1.Secret{})).To(BeNil())
	})
})
