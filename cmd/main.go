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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/discovery"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"outrider/internal/cluster"
	"outrider/internal/config"
	"outrider/internal/controller"
	"outrider/internal/copier"
	"outrider/internal/downstream"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	// +kubebuilder:scaffold:scheme
}

type options struct {
	metricsAddr          string
	probeAddr            string
	enableLeaderElection bool
	zap                  zap.Options
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{
		zap: zap.Options{TimeEncoder: zapcore.ISO8601TimeEncoder},
	}

	cmd := &cobra.Command{
		Use:          "outrider",
		Short:        "Replicates annotated secrets from the Rancher manager into downstream clusters",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zap.New(zap.UseFlagOptions(&opts.zap))
			ctrl.SetLogger(logger)
			klog.SetLogger(logger)

			return run(ctrl.SetupSignalHandler(), opts)
		},
	}

	bindFlags(cmd.Flags(), opts)
	return cmd
}

func bindFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flags.StringVar(&opts.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flags.BoolVar(&opts.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.zap.BindFlags(goFlags)
	flags.AddGoFlagSet(goFlags)
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		setupLog.Error(err, "invalid configuration")
		return err
	}
	setupLog.Info("Loaded configuration",
		"defaultTargetNamespace", cfg.DefaultTargetNamespace,
		"kubeconfigNamespace", cfg.KubeconfigNamespace,
		"testingMode", cfg.TestingMode,
	)

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		setupLog.Error(err, "unable to load manager kubeconfig")
		return err
	}

	if err := waitForClusterCRD(log.IntoContext(ctx, setupLog), restConfig); err != nil {
		return err
	}

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: opts.metricsAddr},
		HealthProbeBindAddress: opts.probeAddr,
		LeaderElection:         opts.enableLeaderElection,
		LeaderElectionID:       "outrider.geeko.me",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	clients := downstream.NewCache(newResolver(cfg, mgr.GetClient(), restConfig, setupLog), clock.RealClock{})
	engine := copier.NewEngine(clients, cfg.DefaultTargetNamespace)

	if err := (&controller.SecretReconciler{
		Client:                  mgr.GetClient(),
		Copier:                  engine,
		KubeconfigNamespace:     cfg.KubeconfigNamespace,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		MaxParallelCopies:       cfg.MaxParallelCopies,
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Secret")
		return err
	}

	if err := (&controller.ClusterReconciler{
		Client:                  mgr.GetClient(),
		Copier:                  engine,
		Clients:                 clients,
		KubeconfigNamespace:     cfg.KubeconfigNamespace,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		MaxParallelCopies:       cfg.MaxParallelCopies,
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Cluster")
		return err
	}
	// +kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}

func waitForClusterCRD(ctx context.Context, restConfig *rest.Config) error {
	disc, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("unable to create discovery client: %w", err)
	}

	setupLog.Info("Waiting for provisioning cluster resource", "gvk", cluster.GroupVersionKind.String())
	if err := cluster.NewCRDWaiter(disc).Wait(ctx); err != nil {
		return fmt.Errorf("provisioning cluster resource never became available: %w", err)
	}
	return nil
}

func newResolver(cfg config.Config, reader client.Reader, restConfig *rest.Config, logger logr.Logger) downstream.Resolver {
	if cfg.TestingMode {
		logger.Info("Testing mode: reaching downstream clusters through the Rancher proxy", "host", restConfig.Host)
		return downstream.NewProxyResolver(reader, cfg.KubeconfigNamespace, restConfig, scheme)
	}
	return downstream.NewKubeconfigResolver(reader, cfg.KubeconfigNamespace, scheme)
}
