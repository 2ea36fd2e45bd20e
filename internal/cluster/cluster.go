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

// Package cluster models Rancher provisioning clusters as copy targets.
package cluster

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	// LocalName is the name Rancher gives the manager cluster itself.
	LocalName = "local"

	// KubeconfigSecretSuffix is appended to the cluster name to locate its kubeconfig secret.
	KubeconfigSecretSuffix = "-kubeconfig"

	conditionReady = "Ready"
)

// GroupVersionKind of the Rancher provisioning Cluster resource.
var GroupVersionKind = schema.GroupVersionKind{
	Group:   "provisioning.cattle.io",
	Version: "v1",
	Kind:    "Cluster",
}

// DownstreamCluster is the part of a provisioning Cluster the copy path cares about.
type DownstreamCluster struct {
	// ID is the provisioning Cluster name.
	ID        string
	Namespace string
	// InternalName is status.clusterName, the management id (c-xxxxx) used by the Rancher proxy.
	InternalName string
	Ready        bool
	Local        bool
}

// KubeconfigSecretName returns the name of the secret holding this cluster's kubeconfig.
func (c DownstreamCluster) KubeconfigSecretName() string {
	return c.ID + KubeconfigSecretSuffix
}

// Eligible reports whether the cluster may receive copies.
func (c DownstreamCluster) Eligible() bool {
	return c.Ready && !c.Local
}

// New returns an empty provisioning Cluster object usable as a watch or get target.
func New() *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(GroupVersionKind)
	return u
}

// NewList returns an empty provisioning Cluster list.
func NewList() *unstructured.UnstructuredList {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(GroupVersionKind.GroupVersion().WithKind(GroupVersionKind.Kind + "List"))
	return list
}

// FromUnstructured extracts a DownstreamCluster from a provisioning Cluster object.
func FromUnstructured(u *unstructured.Unstructured) DownstreamCluster {
	internalName, _, _ := unstructured.NestedString(u.Object, "status", "clusterName")

	return DownstreamCluster{
		ID:           u.GetName(),
		Namespace:    u.GetNamespace(),
		InternalName: internalName,
		Ready:        isReady(u),
		Local:        u.GetName() == LocalName,
	}
}

// isReady prefers the Ready condition and falls back to status.ready for
// clusters that have not published conditions yet.
func isReady(u *unstructured.Unstructured) bool {
	conditions, found, err := unstructured.NestedSlice(u.Object, "status", "conditions")
	if err == nil && found {
		for _, c := range conditions {
			condition, ok := c.(map[string]interface{})
			if !ok || condition["type"] != conditionReady {
				continue
			}
			return condition["status"] == "True"
		}
	}

	ready, _, _ := unstructured.NestedBool(u.Object, "status", "ready")
	return ready
}

// ListEligible lists provisioning clusters in namespace and keeps the
// ready, non-local ones, ordered by ID. Cluster names are unique within a
// namespace, so the ID is a safe key for credentials and cached clients.
func ListEligible(ctx context.Context, reader client.Reader, namespace string) ([]DownstreamCluster, error) {
	list := NewList()
	if err := reader.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, errors.Wrap(err, "error listing provisioning clusters")
	}

	clusters := make([]DownstreamCluster, 0, len(list.Items))
	for i := range list.Items {
		c := FromUnstructured(&list.Items[i])
		if c.Eligible() {
			clusters = append(clusters, c)
		}
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })

	return clusters, nil
}
