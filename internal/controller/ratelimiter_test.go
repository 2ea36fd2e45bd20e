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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

var _ = Describe("newRateLimiter", func() {
	req := reconcile.Request{NamespacedName: types.NamespacedName{Namespace: fleetNamespace, Name: "c1"}}

	It("should back off repeated enqueues of the same item", func() {
		limiter := newRateLimiter()

		Expect(limiter.When(req)).To(Equal(time.Second))
		Expect(limiter.When(req)).To(Equal(2 * time.Second))
		Expect(limiter.When(req)).To(Equal(4 * time.Second))
		Expect(limiter.NumRequeues(req)).To(Equal(3))
	})

	It("should start over once the item is forgotten", func() {
		limiter := newRateLimiter()

		limiter.When(req)
		limiter.When(req)
		limiter.Forget(req)

		Expect(limiter.NumRequeues(req)).To(Equal(0))
		Expect(limiter.When(req)).To(Equal(time.Second))
	})

	It("should track items independently", func() {
		limiter := newRateLimiter()
		other := reconcile.Request{NamespacedName: types.NamespacedName{Namespace: fleetNamespace, Name: "c2"}}

		limiter.When(req)
		limiter.When(req)

		Expect(limiter.When(other)).To(Equal(time.Second))
	})
})
