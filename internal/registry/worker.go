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

package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper drops expired state and reports how many entries it dropped. A
// single flowstate.Store implements this directly; admin.API implements it
// by aggregating over every imposter's bound store, since each imposter may
// run its own flow-state backend.
type Sweeper interface {
	Sweep() int
}

// Worker is the background reaper: it sweeps expired flow-state entries and
// forces termination of imposters that have overrun their drain grace
// period. Grounded on the teacher's core/worker.go: two ticker-driven loops
// started together and stopped together via a closed stopChan plus
// WaitGroup, the same shape as commitLoop/evictionLoop.
type Worker struct {
	registry      *Registry
	flows         Sweeper
	sweepInterval time.Duration
	drainInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	stopped       uint32
}

// NewWorker configures a reaper over registry and flows.
func NewWorker(registry *Registry, flows Sweeper, sweepInterval, drainInterval time.Duration) *Worker {
	return &Worker{
		registry:      registry,
		flows:         flows,
		sweepInterval: sweepInterval,
		drainInterval: drainInterval,
		stopChan:      make(chan struct{}),
	}
}

// Start launches the sweep and drain-enforcement goroutines.
func (w *Worker) Start() {
	fmt.Println("riftmock: starting background reaper...")
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.sweepLoop()
	}()
	go func() {
		defer w.wg.Done()
		w.drainLoop()
	}()
}

// Stop gracefully stops the reaper, blocking until both loops exit.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	fmt.Println("riftmock: stopping background reaper...")
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) sweepLoop() {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runSweepCycle()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) runSweepCycle() {
	if w.flows == nil {
		return
	}
	if dropped := w.flows.Sweep(); dropped > 0 {
		fmt.Printf("riftmock: flow-state sweep dropped %d expired flow(s)\n", dropped)
	}
}

func (w *Worker) drainLoop() {
	ticker := time.NewTicker(w.drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runDrainCycle()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) runDrainCycle() {
	var expired []*Imposter
	w.registry.ForEach(func(imp *Imposter) {
		if imp.DrainExpired() {
			expired = append(expired, imp)
		}
	})
	for _, imp := range expired {
		fmt.Printf("riftmock: forcing termination of imposter on port %d after drain grace expired\n", imp.Port)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = Close(ctx, imp)
		cancel()
		imp.MarkTerminated()
		w.registry.Delete(imp.Port)
	}
}
