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

package downstream

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"outrider/internal/metrics"
)

const resolvedOK = "ok"

type entry struct {
	client    client.Client
	createdAt time.Time
}

// Cache hands out one client per downstream cluster, resolving lazily.
// Entries live until Invalidate is called for their cluster id.
type Cache struct {
	resolver Resolver
	clock    clock.PassiveClock

	mu      sync.RWMutex
	entries map[string]entry
	// generations is bumped by Invalidate; resolves started under an older
	// generation are neither shared with later callers nor stored.
	generations map[string]uint64

	inflight singleflight.Group
}

// NewCache returns an empty cache backed by resolver.
func NewCache(resolver Resolver, clk clock.PassiveClock) *Cache {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Cache{
		resolver:    resolver,
		clock:       clk,
		entries:     make(map[string]entry),
		generations: make(map[string]uint64),
	}
}

// Get returns the cached client for clusterID or resolves a new one.
// Resolution errors are returned unchanged and nothing is stored.
func (c *Cache) Get(ctx context.Context, clusterID string) (client.Client, error) {
	if e, ok := c.lookup(clusterID); ok {
		return e.client, nil
	}

	generation := c.generation(clusterID)
	key := clusterID + "/" + strconv.FormatUint(generation, 10)

	v, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		if e, ok := c.lookup(clusterID); ok {
			return e.client, nil
		}

		cl, err := c.resolver.Resolve(ctx, clusterID)
		if err != nil {
			metrics.CredentialResolutions.WithLabelValues(resolutionResult(err)).Inc()
			return nil, err
		}
		metrics.CredentialResolutions.WithLabelValues(resolvedOK).Inc()

		if !c.store(clusterID, generation, cl) {
			log.FromContext(ctx).V(1).Info("Discarded client resolved before invalidation", "cluster", clusterID)
			return cl, nil
		}
		log.FromContext(ctx).V(1).Info("Cached downstream client", "cluster", clusterID)
		return cl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(client.Client), nil
}

// Invalidate drops the entry for clusterID. The next Get resolves again,
// even when a resolve for the id is still in flight.
func (c *Cache) Invalidate(clusterID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[clusterID]++
	if _, ok := c.entries[clusterID]; !ok {
		return
	}
	delete(c.entries, clusterID)
	metrics.DownstreamClients.Set(float64(len(c.entries)))
}

// Len returns the number of cached clients.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CreatedAt returns when the entry for clusterID was stored.
func (c *Cache) CreatedAt(clusterID string) (time.Time, bool) {
	e, ok := c.lookup(clusterID)
	return e.createdAt, ok
}

func (c *Cache) lookup(clusterID string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[clusterID]
	return e, ok
}

func (c *Cache) generation(clusterID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[clusterID]
}

// store keeps cl unless clusterID was invalidated after generation was read.
func (c *Cache) store(clusterID string, generation uint64, cl client.Client) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[clusterID] != generation {
		return false
	}
	c.entries[clusterID] = entry{client: cl, createdAt: c.clock.Now()}
	metrics.DownstreamClients.Set(float64(len(c.entries)))
	return true
}

func resolutionResult(err error) string {
	if kind, ok := KindOf(err); ok {
		return string(kind)
	}
	return "error"
}
