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

package admin

import (
	"net/http"
	"sync"

	"github.com/riftlabs/riftmock/internal/engine/logging"
	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/pipeline"
	"github.com/riftlabs/riftmock/internal/predicate"
	"github.com/riftlabs/riftmock/internal/registry"
	"github.com/riftlabs/riftmock/internal/scripting"
)

// API is the admin HTTP surface: imposter/stub CRUD, config export/import,
// request-log access, and the live request stream. It owns the imposter
// registry and binds/unbinds data-plane listeners as imposters are created
// and destroyed. Grounded on etalazz-vsa's api/server.go registration shape
// and getmockd-mockd's pkg/admin/handlers.go endpoint surface.
type API struct {
	Registry *registry.Registry
	Scripts  *scripting.Registry
	Pipeline *pipeline.Pipeline
	Log      *logging.Logger

	// AllowInjection gates any stub that would run operator-supplied script
	// code (inject predicates/responses, should_inject faults, decorate
	// behaviors). Defaults to true; the cmd/riftmock entrypoint wires this
	// to the --allow-injection flag.
	AllowInjection bool

	// DefaultFlowStateBackend and DefaultFlowStateOptions seed bindFlowState
	// for imposters that don't configure their own `_rift.flowState` backend.
	// Set from engine.Config's FlowStateBackend and FlowStateRedis* fields;
	// "" (memory) if unset.
	DefaultFlowStateBackend string
	DefaultFlowStateOptions flowstate.Options

	portRangeLow  int
	portRangeHigh int

	flowsMu sync.Mutex
	flows   map[int]flowstate.Store

	logMu      sync.Mutex
	logEntries []logEntry
}

// NewAPI wires an API against a fresh imposter registry and the shared
// script/pipeline infrastructure every imposter's data-plane handler uses.
func NewAPI(log *logging.Logger) *API {
	if log == nil {
		log = logging.Default()
	}
	scripts := scripting.NewRegistry()
	return &API{
		Registry:       registry.NewRegistry(),
		Scripts:        scripts,
		Pipeline:       pipeline.NewPipeline(scripts),
		Log:            log,
		AllowInjection: true,
		portRangeLow:   20000,
		portRangeHigh:  30000,
		flows:          make(map[int]flowstate.Store),
	}
}

// Router builds the admin mux. Routes follow Go 1.22+ ServeMux's
// method-and-path-pattern syntax.
func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /imposters", a.handleCreateImposter)
	mux.HandleFunc("GET /imposters", a.handleListImposters)
	mux.HandleFunc("PUT /imposters", a.handleReplaceImposters)
	mux.HandleFunc("DELETE /imposters", a.handleDeleteImposters)

	mux.HandleFunc("GET /imposters/{port}", a.handleGetImposter)
	mux.HandleFunc("DELETE /imposters/{port}", a.handleDeleteImposter)

	mux.HandleFunc("POST /imposters/{port}/stubs", a.handleAddStub)
	mux.HandleFunc("PUT /imposters/{port}/stubs", a.handleReplaceStubs)
	mux.HandleFunc("PUT /imposters/{port}/stubs/{index}", a.handleReplaceStubAt)
	mux.HandleFunc("DELETE /imposters/{port}/stubs/{index}", a.handleDeleteStubAt)

	mux.HandleFunc("DELETE /imposters/{port}/savedRequests", a.handleClearSavedRequests)
	mux.HandleFunc("DELETE /imposters/{port}/savedProxyResponses", a.handleClearSavedProxyResponses)
	mux.HandleFunc("GET /imposters/{port}/requests/stream", a.handleStreamRequests)

	mux.HandleFunc("GET /config", a.handleExportConfig)
	mux.HandleFunc("PUT /config", a.handleImportConfig)
	mux.HandleFunc("POST /config", a.handleImportConfig)

	mux.HandleFunc("GET /logs", a.handleLogs)

	return mux
}

// bindFlowState resolves and caches the flow-state backend for one
// imposter's port, per its `_rift.flowState` configuration, defaulting to
// in-memory. Bound once at imposter-creation time and reused across the
// imposter's lifetime so flow state survives stub mutations.
func (a *API) bindFlowState(port int, cfg *FlowStateConfigDTO) flowstate.Store {
	backend := a.DefaultFlowStateBackend
	opts := a.DefaultFlowStateOptions
	if cfg != nil && cfg.Backend != "" {
		backend = cfg.Backend
		opts = flowstate.Options{}
		if cfg.Redis != nil {
			opts.RedisAddr = cfg.Redis.URL
			opts.RedisPrefix = cfg.Redis.KeyPrefix
		}
	}
	store, err := flowstate.Build(backend, opts)
	if err != nil {
		a.Log.Warnf("flow-state backend %q unavailable, falling back to memory: %v", backend, err)
		store, _ = flowstate.Build("memory", flowstate.Options{})
	}
	a.flowsMu.Lock()
	a.flows[port] = store
	a.flowsMu.Unlock()
	return store
}

// unbindFlowState drops the cached store for port once its imposter is
// deleted.
func (a *API) unbindFlowState(port int) {
	a.flowsMu.Lock()
	delete(a.flows, port)
	a.flowsMu.Unlock()
}

func (a *API) evaluator() *predicate.Evaluator {
	return predicate.NewEvaluator(a.Scripts)
}

// Sweep drops expired flow-state entries across every bound imposter store,
// satisfying registry.Sweeper. Each imposter may run its own backend (one
// imposter on Redis, another in-memory), so this fans out rather than
// sweeping a single shared store.
func (a *API) Sweep() int {
	a.flowsMu.Lock()
	stores := make([]flowstate.Store, 0, len(a.flows))
	for _, s := range a.flows {
		stores = append(stores, s)
	}
	a.flowsMu.Unlock()

	dropped := 0
	for _, s := range stores {
		if sweeper, ok := s.(interface{ Sweep() int }); ok {
			dropped += sweeper.Sweep()
		}
	}
	return dropped
}
