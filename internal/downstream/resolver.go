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

// Package downstream builds and caches API clients for downstream clusters.
package downstream

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"outrider/internal/cluster"
)

// KubeconfigKey is the data key Rancher stores the kubeconfig under.
const KubeconfigKey = "value"

const rancherLocalProxyPath = "/k8s/clusters/" + cluster.LocalName

// Resolver turns a cluster id into a ready-to-use client. Implementations must not cache.
type Resolver interface {
	Resolve(ctx context.Context, clusterID string) (client.Client, error)
}

// HandshakeFunc verifies that a REST config can reach its API server.
type HandshakeFunc func(cfg *rest.Config) error

// DiscoveryHandshake asks the API server for its version.
func DiscoveryHandshake(cfg *rest.Config) error {
	dc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return err
	}
	_, err = dc.ServerVersion()
	return err
}

// KubeconfigResolver reads {cluster}-kubeconfig secrets from the manager cluster.
type KubeconfigResolver struct {
	Reader    client.Reader
	Namespace string
	Scheme    *runtime.Scheme
	Handshake HandshakeFunc
}

// NewKubeconfigResolver returns a resolver reading kubeconfig secrets from namespace.
func NewKubeconfigResolver(reader client.Reader, namespace string, scheme *runtime.Scheme) *KubeconfigResolver {
	return &KubeconfigResolver{
		Reader:    reader,
		Namespace: namespace,
		Scheme:    scheme,
		Handshake: DiscoveryHandshake,
	}
}

func (r *KubeconfigResolver) Resolve(ctx context.Context, clusterID string) (client.Client, error) {
	key := types.NamespacedName{
		Namespace: r.Namespace,
		Name:      cluster.DownstreamCluster{ID: clusterID}.KubeconfigSecretName(),
	}

	log.FromContext(ctx).V(1).Info("Resolving downstream credentials", "cluster", clusterID, "secret", key)

	secret := &corev1.Secret{}
	if err := r.Reader.Get(ctx, key, secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, newCredentialError(NotFound, clusterID, errors.Wrapf(err, "kubeconfig secret %s", key))
		}
		return nil, errors.Wrapf(err, "error retrieving kubeconfig secret %s", key)
	}

	kubeconfig := kubeconfigFromSecret(secret)
	if kubeconfig == nil {
		return nil, newCredentialError(NotFound, clusterID,
			errors.Errorf("kubeconfig not found in secret %s under key %q", key, KubeconfigKey))
	}

	cfg, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, newCredentialError(InvalidFormat, clusterID, errors.Wrap(err, "failed to parse kubeconfig"))
	}

	return connect(clusterID, cfg, r.Scheme, r.Handshake)
}

// kubeconfigFromSecret returns nil when the key is absent or empty.
func kubeconfigFromSecret(secret *corev1.Secret) []byte {
	data := secret.Data[KubeconfigKey]
	if len(data) == 0 {
		return nil
	}
	return data
}

// ProxyResolver reaches downstream clusters through the Rancher API proxy of
// the manager's own REST config, rewriting /k8s/clusters/local to the
// cluster's internal name. Used for testing against a single Rancher endpoint.
type ProxyResolver struct {
	Reader    client.Reader
	Namespace string
	Config    *rest.Config
	Scheme    *runtime.Scheme
	Handshake HandshakeFunc
}

// NewProxyResolver returns a resolver deriving downstream configs from cfg.
func NewProxyResolver(reader client.Reader, namespace string, cfg *rest.Config, scheme *runtime.Scheme) *ProxyResolver {
	return &ProxyResolver{
		Reader:    reader,
		Namespace: namespace,
		Config:    cfg,
		Scheme:    scheme,
		Handshake: DiscoveryHandshake,
	}
}

func (r *ProxyResolver) Resolve(ctx context.Context, clusterID string) (client.Client, error) {
	obj := cluster.New()
	key := types.NamespacedName{Namespace: r.Namespace, Name: clusterID}
	if err := r.Reader.Get(ctx, key, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, newCredentialError(NotFound, clusterID, errors.Wrapf(err, "provisioning cluster %s", key))
		}
		return nil, errors.Wrapf(err, "error retrieving provisioning cluster %s", key)
	}

	internalName := cluster.FromUnstructured(obj).InternalName
	if internalName == "" {
		return nil, newCredentialError(NotFound, clusterID, errors.New("cluster has no status.clusterName yet"))
	}

	host, err := proxyHost(r.Config.Host, internalName)
	if err != nil {
		return nil, newCredentialError(InvalidFormat, clusterID, err)
	}

	cfg := rest.CopyConfig(r.Config)
	cfg.Host = host

	log.FromContext(ctx).V(1).Info("Using Rancher proxy for downstream cluster", "cluster", clusterID, "host", host)

	return connect(clusterID, cfg, r.Scheme, r.Handshake)
}

func proxyHost(host, internalName string) (string, error) {
	trimmed := strings.TrimSuffix(host, "/")
	if !strings.HasSuffix(trimmed, rancherLocalProxyPath) {
		return "", errors.Errorf("host %q does not point at the Rancher proxy path %s", host, rancherLocalProxyPath)
	}
	return strings.TrimSuffix(trimmed, cluster.LocalName) + internalName, nil
}

func connect(clusterID string, cfg *rest.Config, scheme *runtime.Scheme, handshake HandshakeFunc) (client.Client, error) {
	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, newCredentialError(InvalidFormat, clusterID, errors.Wrap(err, "failed to create client"))
	}

	if handshake != nil {
		if err := handshake(cfg); err != nil {
			return nil, newCredentialError(ConnectError, clusterID, errors.Wrap(err, "handshake failed"))
		}
	}

	return c, nil
}
