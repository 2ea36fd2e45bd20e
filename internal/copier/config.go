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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// CopyConfig describes where a secret lands downstream.
type CopyConfig struct {
	TargetNamespace string
	TargetName      string
}

// IsEnabled reports whether obj carries outrider.geeko.me/enabled: "true".
func IsEnabled(obj metav1.Object) bool {
	return obj.GetAnnotations()[AnnotationEnabled] == "true"
}

// TargetNamespace returns the override annotation when set, otherwise defaultNamespace.
func TargetNamespace(secret *corev1.Secret, defaultNamespace string) string {
	if ns := secret.Annotations[AnnotationNamespace]; ns != "" {
		return ns
	}
	return defaultNamespace
}

func parseConfig(secret *corev1.Secret, defaultNamespace string) CopyConfig {
	return CopyConfig{
		TargetNamespace: TargetNamespace(secret, defaultNamespace),
		TargetName:      secret.Name,
	}
}
