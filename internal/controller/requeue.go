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
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"outrider/internal/copier"
	"outrider/internal/metrics"
)

const (
	// Requeue delays per report kind
	successRequeue   = 5 * time.Minute
	transientRequeue = 60 * time.Second
	notReadyRequeue  = 30 * time.Second
	permanentRequeue = 5 * time.Minute
)

// ReportKind classifies the result of one reconcile pass.
type ReportKind string

const (
	ReportSuccess   ReportKind = "Success"
	ReportTransient ReportKind = "Transient"
	ReportNotReady  ReportKind = "NotReady"
	ReportPermanent ReportKind = "Permanent"
	ReportSkipped   ReportKind = "Skipped"
)

// Report is the aggregated result of one reconcile pass.
type Report struct {
	Kind     ReportKind
	Outcomes []copier.Outcome
	// Err aggregates every failure of the pass.
	Err error
}

// Summarize folds per-cluster outcomes into a report. Transient failures win
// over permanent ones so the shorter retry applies.
func Summarize(outcomes []copier.Outcome) Report {
	report := Report{Kind: ReportSuccess, Outcomes: outcomes}

	var errs []error
	for _, o := range outcomes {
		if !o.Failed() {
			continue
		}
		errs = append(errs, o.Err)
		switch {
		case o.Reason.Transient():
			report.Kind = ReportTransient
		case report.Kind != ReportTransient:
			report.Kind = ReportPermanent
		}
	}
	report.Err = utilerrors.NewAggregate(errs)
	return report
}

func skipped() Report {
	return Report{Kind: ReportSkipped}
}

func notReady() Report {
	return Report{Kind: ReportNotReady}
}

func transientFailure(err error) Report {
	return Report{Kind: ReportTransient, Err: err}
}

// Schedule logs the failures of report and turns it into a requeue decision.
// It never yields an error so controller-runtime's own backoff does not
// override the delays.
func Schedule(ctx context.Context, controllerName string, report Report) ctrl.Result {
	logger := log.FromContext(ctx)
	metrics.ReconcileReports.WithLabelValues(controllerName, string(report.Kind)).Inc()

	for _, o := range report.Outcomes {
		if o.Failed() {
			logger.Error(o.Err, "Failed to copy secret",
				"cluster", o.ClusterID,
				"secret", o.Secret,
				"reason", o.Reason,
			)
		}
	}

	switch report.Kind {
	case ReportSuccess:
		logger.V(1).Info("Reconcile succeeded", "copies", len(report.Outcomes), "requeueAfter", successRequeue)
		return ctrl.Result{RequeueAfter: successRequeue}
	case ReportTransient:
		if len(report.Outcomes) == 0 && report.Err != nil {
			logger.Error(report.Err, "Reconcile failed")
		}
		logger.Info("Scheduling retry", "delay", transientRequeue)
		return ctrl.Result{RequeueAfter: transientRequeue}
	case ReportNotReady:
		logger.Info("Cluster not ready, scheduling retry", "delay", notReadyRequeue)
		return ctrl.Result{RequeueAfter: notReadyRequeue}
	case ReportPermanent:
		logger.Error(report.Err, "Downstream cluster rejected credentials", "delay", permanentRequeue)
		return ctrl.Result{RequeueAfter: permanentRequeue}
	default:
		return ctrl.Result{}
	}
}
