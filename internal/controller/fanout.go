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

	"golang.org/x/sync/errgroup"

	"outrider/internal/copier"
)

// copyAll runs copyOne for indexes [0, n) with at most limit in flight.
// Failures are carried in the outcomes, never short-circuit the others.
func copyAll(ctx context.Context, limit, n int, copyOne func(ctx context.Context, i int) copier.Outcome) []copier.Outcome {
	outcomes := make([]copier.Outcome, n)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			outcomes[i] = copyOne(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
