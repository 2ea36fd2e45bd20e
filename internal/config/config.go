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

// Package config loads the operator configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process-wide configuration. It is built once at startup and
// handed to the reconcilers by value.
type Config struct {
	// DefaultTargetNamespace is where secrets land downstream unless overridden per secret.
	DefaultTargetNamespace string `envconfig:"DEFAULT_TARGET_NAMESPACE" required:"true"`
	// KubeconfigNamespace holds the provisioning clusters and the {cluster}-kubeconfig secrets
	// Rancher writes next to them. Clusters in other namespaces are not replicated to.
	KubeconfigNamespace string `envconfig:"KUBECONFIG_NAMESPACE" default:"fleet-default"`
	// TestingMode reaches downstream clusters through the Rancher proxy of the manager's own
	// kubeconfig instead of the stored kubeconfig secrets.
	TestingMode bool `envconfig:"TESTING_MODE" default:"false"`
	// MaxConcurrentReconciles bounds in-flight reconciles per controller.
	MaxConcurrentReconciles int `envconfig:"MAX_CONCURRENT_RECONCILES" default:"4"`
	// MaxParallelCopies bounds copy tasks running at once within a single reconcile.
	MaxParallelCopies int `envconfig:"MAX_PARALLEL_COPIES" default:"8"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks values envconfig cannot express as tags.
func (c Config) Validate() error {
	if c.DefaultTargetNamespace == "" {
		return fmt.Errorf("DEFAULT_TARGET_NAMESPACE must not be empty")
	}
	if c.KubeconfigNamespace == "" {
		return fmt.Errorf("KUBECONFIG_NAMESPACE must not be empty")
	}
	if c.MaxConcurrentReconciles < 1 {
		return fmt.Errorf("MAX_CONCURRENT_RECONCILES must be at least 1, got %d", c.MaxConcurrentReconciles)
	}
	if c.MaxParallelCopies < 1 {
		return fmt.Errorf("MAX_PARALLEL_COPIES must be at least 1, got %d", c.MaxParallelCopies)
	}
	return nil
}
