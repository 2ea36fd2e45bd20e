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

const (
	// AnnotationPrefix is shared by every annotation outrider reads.
	// Annotations with this prefix are never copied downstream.
	AnnotationPrefix = "outrider.geeko.me/"

	// AnnotationEnabled marks a secret for replication. Only the value "true" enables it.
	AnnotationEnabled = AnnotationPrefix + "enabled"

	// AnnotationNamespace overrides the downstream namespace.
	AnnotationNamespace = AnnotationPrefix + "namespace"
)

const (
	// AnnotationLastApplied is written by kubectl apply and is dropped from copies.
	AnnotationLastApplied = "kubectl.kubernetes.io/last-applied-configuration"

	// LabelManagedBy marks downstream copies.
	LabelManagedBy = "app.kubernetes.io/managed-by"

	// ManagedByValue is the LabelManagedBy value set on copies.
	ManagedByValue = "outrider"
)
