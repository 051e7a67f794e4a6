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

// Package flowstate implements the flow-scoped key/value store that fault
// scripts and the `should_inject` contract read and mutate across requests
// belonging to the same flow.
package flowstate

import (
	"context"
	"sync"
	"time"

	"github.com/riftlabs/riftmock/internal/value"
)

// Store is the flow-state contract: per-flow key/value storage with TTL
// expiry and an atomic increment used by probabilistic fault counters.
type Store interface {
	// Get returns the current value for (flowID, key), or ok=false if absent
	// or expired.
	Get(ctx context.Context, flowID, key string) (value.Value, bool, error)

	// Set stores val for (flowID, key). ttl<=0 means no expiry.
	Set(ctx context.Context, flowID, key string, val value.Value, ttl time.Duration) error

	// Increment atomically adds delta to the integer stored at (flowID, key)
	// (treating an absent key as 0) and returns the resulting value. ttl<=0
	// on first creation means no expiry; the ttl is not refreshed on
	// subsequent increments of an already-present key.
	Increment(ctx context.Context, flowID, key string, delta int64, ttl time.Duration) (int64, error)

	// Delete removes every key recorded for flowID.
	Delete(ctx context.Context, flowID string) error
}

type memEntry struct {
	val     value.Value
	expires time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryStore is the in-process Store backend, the default when no
// --flowstate-backend is configured. Grounded on the teacher's sync.Map-based
// Store (core/store.go): a fast-path Load before taking the per-flow lock.
type MemoryStore struct {
	flows sync.Map // flowID -> *flowBucket
}

type flowBucket struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemoryStore returns an empty in-memory flow-state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) bucket(flowID string) *flowBucket {
	if v, ok := s.flows.Load(flowID); ok {
		return v.(*flowBucket)
	}
	b := &flowBucket{entries: make(map[string]memEntry)}
	actual, _ := s.flows.LoadOrStore(flowID, b)
	return actual.(*flowBucket)
}

func (s *MemoryStore) Get(_ context.Context, flowID, key string) (value.Value, bool, error) {
	b := s.bucket(flowID)
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok || e.expired(time.Now()) {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *MemoryStore) Set(_ context.Context, flowID, key string, val value.Value, ttl time.Duration) error {
	b := s.bucket(flowID)
	b.mu.Lock()
	defer b.mu.Unlock()
	e := memEntry{val: val}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	b.entries[key] = e
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, flowID, key string, delta int64, ttl time.Duration) (int64, error) {
	b := s.bucket(flowID)
	b.mu.Lock()
	defer b.mu.Unlock()
	var cur int64
	if e, ok := b.entries[key]; ok && !e.expired(time.Now()) {
		if n, ok := asInt64(e.val); ok {
			cur = n
		}
	}
	cur += delta
	e := memEntry{val: float64(cur)}
	if existing, ok := b.entries[key]; ok && !existing.expires.IsZero() && !existing.expired(time.Now()) {
		e.expires = existing.expires
	} else if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	b.entries[key] = e
	return cur, nil
}

func (s *MemoryStore) Delete(_ context.Context, flowID string) error {
	s.flows.Delete(flowID)
	return nil
}

// Sweep removes expired entries from every flow bucket and drops flows left
// with nothing in them. Intended to be called periodically by the imposter
// supervisor's background reaper (internal/registry), mirroring the
// teacher's eviction loop in core/worker.go.
func (s *MemoryStore) Sweep() (flowsDropped int) {
	now := time.Now()
	s.flows.Range(func(k, v interface{}) bool {
		b := v.(*flowBucket)
		b.mu.Lock()
		for key, e := range b.entries {
			if e.expired(now) {
				delete(b.entries, key)
			}
		}
		empty := len(b.entries) == 0
		b.mu.Unlock()
		if empty {
			s.flows.Delete(k)
			flowsDropped++
		}
		return true
	})
	return flowsDropped
}

func asInt64(v value.Value) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	default:
		return 0, false
	}
}
