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

// Package mocks contains generated mock implementations for testing.
//
// IMPORTANT: Do not edit mock_*.go files manually!
// Use `go generate ./test/mocks` to regenerate.
//
// Mocks are generated from production interfaces:
//   - internal/downstream/resolver.go → Resolver
//   - internal/copier/interfaces.go → ClientGetter
package mocks

//go:generate mockgen -source=../../internal/downstream/resolver.go -destination=mock_resolver.go -package=mocks
//go:generate mockgen -source=../../internal/copier/interfaces.go -destination=mock_client_getter.go -package=mocks

import (
	// Import mock package to ensure it's in go.mod
	_ "go.uber.org/mock/gomock"
)
