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
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// buildPayload returns the downstream form of source. Server-owned metadata
// (resource version, uid, owner references, managed fields) is never carried.
func buildPayload(source *corev1.Secret, config CopyConfig) *corev1.Secret {
	src := source.DeepCopy()

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        config.TargetName,
			Namespace:   config.TargetNamespace,
			Labels:      copyLabels(src.Labels),
			Annotations: filterAnnotationsForCopy(src.Annotations),
		},
		Type:      src.Type,
		Data:      src.Data,
		Immutable: src.Immutable,
	}
}

func copyLabels(lbls map[string]string) map[string]string {
	result := make(map[string]string, len(lbls)+1)
	for k, v := range lbls {
		result[k] = v
	}
	result[LabelManagedBy] = ManagedByValue
	return result
}

// filterAnnotationsForCopy drops outrider and kubectl bookkeeping annotations.
func filterAnnotationsForCopy(annotations map[string]string) map[string]string {
	if annotations == nil {
		return nil
	}

	result := make(map[string]string, len(annotations))
	for k, v := range annotations {
		if strings.HasPrefix(k, AnnotationPrefix) || k == AnnotationLastApplied {
			continue
		}
		result[k] = v
	}
	return result
}
