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

// Package metrics holds the Prometheus collectors exported by the operator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "outrider"

var (
	// DownstreamClients is the number of cached downstream clients.
	DownstreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "downstream_clients",
		Help:      "Number of downstream cluster clients currently cached.",
	})

	// CredentialResolutions counts credential resolutions by result.
	CredentialResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_resolutions_total",
		Help:      "Downstream credential resolutions by result.",
	}, []string{"result"})

	// Copies counts copy attempts by cluster and result.
	Copies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "copies_total",
		Help:      "Secret copy attempts by downstream cluster and result.",
	}, []string{"cluster", "result"})

	// ReconcileReports counts scheduler decisions by controller and report kind.
	ReconcileReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_reports_total",
		Help:      "Reconcile pass reports by controller and kind.",
	}, []string{"controller", "kind"})
)

func init() {
	metrics.Registry.MustRegister(
		DownstreamClients,
		CredentialResolutions,
		Copies,
		ReconcileReports,
	)
}
