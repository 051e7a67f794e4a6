// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flowstate

import (
	"context"
	"time"

	"github.com/riftlabs/riftmock/internal/metrics"
	"github.com/riftlabs/riftmock/internal/value"
)

// instrumentedStore wraps a Store and reports each operation to the metrics
// package, so Build's callers get counters for free regardless of backend.
type instrumentedStore struct {
	inner Store
}

// Instrument wraps s so every Get/Set/Increment/Delete is counted by kind.
// Observation is a no-op until metrics.Enable has been called.
func Instrument(s Store) Store {
	return &instrumentedStore{inner: s}
}

func (s *instrumentedStore) Get(ctx context.Context, flowID, key string) (value.Value, bool, error) {
	metrics.ObserveFlowStateOp("get")
	return s.inner.Get(ctx, flowID, key)
}

func (s *instrumentedStore) Set(ctx context.Context, flowID, key string, val value.Value, ttl time.Duration) error {
	metrics.ObserveFlowStateOp("set")
	return s.inner.Set(ctx, flowID, key, val, ttl)
}

func (s *instrumentedStore) Increment(ctx context.Context, flowID, key string, delta int64, ttl time.Duration) (int64, error) {
	metrics.ObserveFlowStateOp("increment")
	return s.inner.Increment(ctx, flowID, key, delta, ttl)
}

func (s *instrumentedStore) Delete(ctx context.Context, flowID string) error {
	metrics.ObserveFlowStateOp("delete")
	return s.inner.Delete(ctx, flowID)
}

// Sweep forwards to inner's Sweep if it has one (MemoryStore does; RedisStore
// relies on native key TTLs instead), so wrapping a Store for metrics never
// silently disables the registry reaper's expiry sweep.
func (s *instrumentedStore) Sweep() int {
	if sweeper, ok := s.inner.(interface{ Sweep() int }); ok {
		return sweeper.Sweep()
	}
	return 0
}
