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

// Package registry implements the Imposter Supervisor: the lifecycle state
// machine, the port-keyed concurrent registry, listener bind/drain, and the
// background reaper worker that sweeps expired flow-state and enforces
// drain-grace timeouts.
package registry

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/stub"
)

// State is a position in the imposter lifecycle state machine:
// Pending -> Listening -> Draining -> Terminated.
type State int32

const (
	StatePending State = iota
	StateListening
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateListening:
		return "Listening"
	case StateDraining:
		return "Draining"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Imposter is a single programmable listener: a port, protocol, set of
// stubs, a default response, and recorded requests.
type Imposter struct {
	Port            int
	Host            string
	Protocol        string // http|https
	Name            string
	ServiceName     string
	ServiceInfo     string
	RecordRequests  bool
	RecordMatches   bool
	AllowCORS       bool
	DefaultResponse *record.Response
	Key             string // PEM private key, https only
	Cert            string // PEM certificate, https only
	CACert          string
	MutualAuth      bool
	FlowStateBackend string // inmemory|redis, from _rift.flowState.backend

	state    int32 // atomic State
	mu       sync.RWMutex
	stubs    []*stub.Stub
	server   *http.Server
	listener net.Listener

	requestCount int64 // atomic
	savedMu      sync.Mutex
	saved        []*record.Request
	maxSaved     int

	warningsMu sync.Mutex
	warnings   []stub.Warning

	drainDeadlineNanos int64 // atomic unix-nano; set when MarkDraining succeeds
}

// NewImposter constructs a Pending imposter bound to no listener yet.
func NewImposter(port int, protocol, name string) *Imposter {
	return &Imposter{
		Port:     port,
		Protocol: protocol,
		Name:     name,
		state:    int32(StatePending),
		maxSaved: 10000,
	}
}

// SetWarnings replaces the analyzer warnings cached for this imposter's
// current stub list, surfaced via the `_rift.warnings` admin view.
func (imp *Imposter) SetWarnings(w []stub.Warning) {
	imp.warningsMu.Lock()
	imp.warnings = w
	imp.warningsMu.Unlock()
}

// Warnings returns the last-computed analyzer warnings.
func (imp *Imposter) Warnings() []stub.Warning {
	imp.warningsMu.Lock()
	defer imp.warningsMu.Unlock()
	out := make([]stub.Warning, len(imp.warnings))
	copy(out, imp.warnings)
	return out
}

// State returns the current lifecycle state.
func (imp *Imposter) State() State {
	return State(atomic.LoadInt32(&imp.state))
}

// transition attempts to move the imposter to next, returning false if the
// current state doesn't permit it. The permitted edges are
// Pending->Listening, Listening->Draining, Draining->Terminated, and
// Pending->Terminated (an imposter that never finished binding).
func (imp *Imposter) transition(from, to State) bool {
	return atomic.CompareAndSwapInt32(&imp.state, int32(from), int32(to))
}

// MarkListening transitions Pending -> Listening once the listener is bound.
func (imp *Imposter) MarkListening() bool {
	return imp.transition(StatePending, StateListening)
}

// MarkDraining transitions Listening -> Draining and records the deadline by
// which the reaper forces termination. The stub mutation methods do not
// check the state, so they still apply while Draining.
func (imp *Imposter) MarkDraining() bool {
	ok := imp.transition(StateListening, StateDraining)
	if ok {
		atomic.StoreInt64(&imp.drainDeadlineNanos, time.Now().Add(drainGrace).UnixNano())
	}
	return ok
}

// DrainExpired reports whether this imposter has been Draining past its
// grace deadline.
func (imp *Imposter) DrainExpired() bool {
	if imp.State() != StateDraining {
		return false
	}
	deadline := atomic.LoadInt64(&imp.drainDeadlineNanos)
	return deadline != 0 && time.Now().UnixNano() >= deadline
}

// MarkTerminated transitions Draining -> Terminated, or Pending ->
// Terminated if the imposter never finished binding.
func (imp *Imposter) MarkTerminated() bool {
	if imp.transition(StateDraining, StateTerminated) {
		return true
	}
	return imp.transition(StatePending, StateTerminated)
}

// Stubs returns a snapshot of the current stub list.
func (imp *Imposter) Stubs() []*stub.Stub {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	out := make([]*stub.Stub, len(imp.stubs))
	copy(out, imp.stubs)
	return out
}

// SetStubs replaces the stub list wholesale (PUT /imposters/:port/stubs).
func (imp *Imposter) SetStubs(stubs []*stub.Stub) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.stubs = stubs
}

// AddStub appends a stub (POST /imposters/:port/stubs), returning its index.
func (imp *Imposter) AddStub(s *stub.Stub) int {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.stubs = append(imp.stubs, s)
	return len(imp.stubs) - 1
}

// InsertStubBefore inserts s immediately before index i under the stub lock,
// used by the proxy recorder to synthesize stubs ahead of the matched proxy
// stub.
func (imp *Imposter) InsertStubBefore(i int, s *stub.Stub) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.stubs = stub.InsertBefore(imp.stubs, i, s)
}

// RemoveStubAt deletes the stub at index i (DELETE /imposters/:port/stubs/:index).
func (imp *Imposter) RemoveStubAt(i int) bool {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if i < 0 || i >= len(imp.stubs) {
		return false
	}
	imp.stubs = append(imp.stubs[:i], imp.stubs[i+1:]...)
	return true
}

// IncrementRequestCount bumps the numberOfRequests counter.
func (imp *Imposter) IncrementRequestCount() {
	atomic.AddInt64(&imp.requestCount, 1)
}

// RequestCount returns the current numberOfRequests value.
func (imp *Imposter) RequestCount() int64 {
	return atomic.LoadInt64(&imp.requestCount)
}

// RecordRequest appends req to the saved-requests ring if RecordRequests is
// enabled, evicting the oldest entry once maxSaved is reached.
func (imp *Imposter) RecordRequest(req *record.Request) {
	if !imp.RecordRequests {
		return
	}
	imp.savedMu.Lock()
	defer imp.savedMu.Unlock()
	imp.saved = append(imp.saved, req)
	if len(imp.saved) > imp.maxSaved {
		imp.saved = imp.saved[len(imp.saved)-imp.maxSaved:]
	}
}

// SavedRequests returns a snapshot of recorded requests.
func (imp *Imposter) SavedRequests() []*record.Request {
	imp.savedMu.Lock()
	defer imp.savedMu.Unlock()
	out := make([]*record.Request, len(imp.saved))
	copy(out, imp.saved)
	return out
}

// ClearSavedRequests empties the saved-requests ring and resets the counter,
// mirroring go-tartuffe's ResetRequestCount.
func (imp *Imposter) ClearSavedRequests() {
	imp.savedMu.Lock()
	imp.saved = nil
	imp.savedMu.Unlock()
	atomic.StoreInt64(&imp.requestCount, 0)
}

// ClearGeneratedStubs removes every stub synthesized by proxyOnce/
// proxyAlways recording, leaving admin-declared stubs untouched.
func (imp *Imposter) ClearGeneratedStubs() {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	kept := imp.stubs[:0]
	for _, s := range imp.stubs {
		if !s.Generated {
			kept = append(kept, s)
		}
	}
	imp.stubs = kept
}

// drainGrace bounds how long in-flight requests get before the reaper
// forces termination once an imposter enters Draining.
var drainGrace = 5 * time.Second
