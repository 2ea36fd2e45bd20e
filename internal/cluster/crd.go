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

package cluster

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/discovery"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	defaultPollInterval    = 10 * time.Second
	defaultMaxPollInterval = 60 * time.Second
)

// CRDWaiter blocks until the provisioning Cluster resource is served by the API server.
type CRDWaiter struct {
	Discovery       discovery.DiscoveryInterface
	PollInterval    time.Duration
	MaxPollInterval time.Duration
}

// NewCRDWaiter returns a waiter polling every 10s, doubling up to 60s.
func NewCRDWaiter(disc discovery.DiscoveryInterface) *CRDWaiter {
	return &CRDWaiter{
		Discovery:       disc,
		PollInterval:    defaultPollInterval,
		MaxPollInterval: defaultMaxPollInterval,
	}
}

// Wait polls discovery until the resource is available or ctx is done.
func (w *CRDWaiter) Wait(ctx context.Context) error {
	logger := log.FromContext(ctx).WithValues("groupVersion", GroupVersionKind.GroupVersion().String())

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = w.PollInterval
	expBackoff.MaxInterval = w.MaxPollInterval
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0
	expBackoff.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		available, err := w.available()
		if err != nil {
			return struct{}{}, err
		}
		if !available {
			return struct{}{}, fmt.Errorf("resource %s not yet available", GroupVersionKind.Kind)
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(time.Duration(math.MaxInt64)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Info("Waiting for provisioning Cluster CRD", "reason", err.Error(), "retryIn", next)
		}),
	)
	if err != nil {
		return errors.Wrap(err, "error waiting for provisioning Cluster CRD")
	}

	logger.Info("Provisioning Cluster CRD is available")
	return nil
}

func (w *CRDWaiter) available() (bool, error) {
	resources, err := w.Discovery.ServerResourcesForGroupVersion(GroupVersionKind.GroupVersion().String())
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "error discovering provisioning resources")
	}

	for _, r := range resources.APIResources {
		if r.Kind == GroupVersionKind.Kind {
			return true, nil
		}
	}
	return false, nil
}
