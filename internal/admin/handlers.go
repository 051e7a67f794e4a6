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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riftlabs/riftmock/internal/engine/errs"
	"github.com/riftlabs/riftmock/internal/metrics"
	"github.com/riftlabs/riftmock/internal/registry"
	"github.com/riftlabs/riftmock/internal/stub"
)

// writeJSON marshals v as the response body at the given status, grounded on
// getmockd-mockd's pkg/admin/handlers.go writeJSON helper.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a Mountebank-shaped {errors:[{code,message}]} body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]string{{"code": code, "message": message}},
	})
}

// writeAPIError maps an internal error to an HTTP status via the typed
// errors in internal/engine/errs.
func writeAPIError(w http.ResponseWriter, err error) {
	var valErr *errs.ValidationError
	var conflictErr *errs.PortConflict
	var notFoundErr *errs.NotFoundError
	var scriptErr *errs.ScriptRuntimeError
	var upstreamErr *errs.UpstreamError

	switch {
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, "bad data", valErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusBadRequest, "port conflict", conflictErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, "not found", notFoundErr.Error())
	case errors.As(err, &scriptErr):
		writeError(w, http.StatusInternalServerError, "script error", scriptErr.Error())
	case errors.As(err, &upstreamErr):
		status := http.StatusBadGateway
		if upstreamErr.TimedOut {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, "upstream error", upstreamErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func pathPort(r *http.Request) (int, error) {
	raw := r.PathValue("port")
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewValidationError(fmt.Sprintf("invalid port %q", raw))
	}
	return port, nil
}

func boolQuery(r *http.Request, name string) bool {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	return v == "true" || v == "1"
}

// refreshImposterGauge syncs the live imposter-count metric to the registry's
// current size. Called after every create/delete/replace so the gauge never
// drifts from reality.
func (a *API) refreshImposterGauge() {
	metrics.SetImposterCount(len(a.Registry.Ports()))
}

// checkInjectionAllowed rejects stubs that would execute operator-supplied
// script code when a.AllowInjection is false.
func (a *API) checkInjectionAllowed(stubs []*stub.Stub) error {
	if a.AllowInjection || !stub.UsesInjection(stubs) {
		return nil
	}
	return errs.NewValidationError("injection is disabled on this server (allowInjection=false)")
}

// handleCreateImposter handles POST /imposters: decodes the body, allocates
// an ephemeral port if port==0, binds the data-plane listener, and registers
// the imposter and its stubs.
func (a *API) handleCreateImposter(w http.ResponseWriter, r *http.Request) {
	var dto ImposterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, errs.WrapValidation("malformed imposter JSON", err))
		return
	}

	imp, stubs, err := decodeImposter(dto)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if err := a.checkInjectionAllowed(stubs); err != nil {
		writeAPIError(w, err)
		return
	}

	if imp.Port == 0 {
		port, err := registry.AllocateEphemeralPort(a.portRangeLow, a.portRangeHigh)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		imp.Port = port
	}

	if err := a.Registry.Create(imp); err != nil {
		writeAPIError(w, &errs.PortConflict{Port: imp.Port})
		return
	}

	imp.SetStubs(stubs)
	imp.SetWarnings(stub.Analyze(stubs))

	var flowCfg *FlowStateConfigDTO
	if dto.Rift != nil {
		flowCfg = dto.Rift.FlowState
	}
	flows := a.bindFlowState(imp.Port, flowCfg)

	handler := NewDataPlaneHandler(imp, a.evaluator(), a.Pipeline, flows, a.Log)
	if err := registry.Bind(imp, handler); err != nil {
		a.Registry.Delete(imp.Port)
		a.unbindFlowState(imp.Port)
		writeAPIError(w, err)
		return
	}

	a.logEvent("info", "created imposter on port %d (%s)", imp.Port, imp.Protocol)
	a.refreshImposterGauge()
	writeJSON(w, http.StatusCreated, encodeImposter(imp, imp.Stubs(), false, false))
}

// handleListImposters handles GET /imposters, honoring ?replayable= and
// ?removeProxies= the same way the single-imposter GET does.
func (a *API) handleListImposters(w http.ResponseWriter, r *http.Request) {
	replayable := boolQuery(r, "replayable")
	removeProxies := boolQuery(r, "removeProxies")

	ports := a.Registry.Ports()
	sort.Ints(ports)
	out := make([]ImposterDTO, 0, len(ports))
	for _, p := range ports {
		imp, ok := a.Registry.Get(p)
		if !ok {
			continue
		}
		out = append(out, encodeImposter(imp, imp.Stubs(), replayable, removeProxies))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imposters": out})
}

// handleReplaceImposters handles PUT /imposters: tears down every currently
// registered imposter and replaces them with the posted collection.
func (a *API) handleReplaceImposters(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Imposters []ImposterDTO `json:"imposters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, errs.WrapValidation("malformed imposters collection", err))
		return
	}

	a.teardownAll(r.Context())

	created := make([]ImposterDTO, 0, len(body.Imposters))
	for _, dto := range body.Imposters {
		imp, stubs, err := decodeImposter(dto)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		if err := a.checkInjectionAllowed(stubs); err != nil {
			writeAPIError(w, err)
			return
		}
		if imp.Port == 0 {
			port, err := registry.AllocateEphemeralPort(a.portRangeLow, a.portRangeHigh)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			imp.Port = port
		}
		if err := a.Registry.Create(imp); err != nil {
			writeAPIError(w, &errs.PortConflict{Port: imp.Port})
			return
		}
		imp.SetStubs(stubs)
		imp.SetWarnings(stub.Analyze(stubs))

		var flowCfg *FlowStateConfigDTO
		if dto.Rift != nil {
			flowCfg = dto.Rift.FlowState
		}
		flows := a.bindFlowState(imp.Port, flowCfg)
		handler := NewDataPlaneHandler(imp, a.evaluator(), a.Pipeline, flows, a.Log)
		if err := registry.Bind(imp, handler); err != nil {
			a.Registry.Delete(imp.Port)
			writeAPIError(w, err)
			return
		}
		created = append(created, encodeImposter(imp, imp.Stubs(), false, false))
	}
	a.logEvent("info", "replaced imposter set, %d imposter(s) now registered", len(created))
	a.refreshImposterGauge()
	writeJSON(w, http.StatusOK, map[string]interface{}{"imposters": created})
}

// handleDeleteImposters handles DELETE /imposters: drains and removes every
// registered imposter.
func (a *API) handleDeleteImposters(w http.ResponseWriter, r *http.Request) {
	a.teardownAll(r.Context())
	a.logEvent("info", "deleted all imposters")
	a.refreshImposterGauge()
	writeJSON(w, http.StatusOK, map[string]interface{}{"imposters": []ImposterDTO{}})
}

func (a *API) teardownAll(ctx context.Context) {
	for _, p := range a.Registry.Ports() {
		if imp, ok := a.Registry.Get(p); ok {
			registry.Close(ctx, imp)
			imp.MarkTerminated()
			a.Registry.Delete(p)
			a.unbindFlowState(p)
		}
	}
}

// handleGetImposter handles GET /imposters/:port.
func (a *API) handleGetImposter(w http.ResponseWriter, r *http.Request) {
	port, err := pathPort(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	imp, ok := a.Registry.Get(port)
	if !ok {
		writeAPIError(w, errs.NewNotFoundError(fmt.Sprintf("imposter on port %d", port)))
		return
	}
	replayable := boolQuery(r, "replayable")
	removeProxies := boolQuery(r, "removeProxies")
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), replayable, removeProxies))
}

// handleDeleteImposter handles DELETE /imposters/:port.
func (a *API) handleDeleteImposter(w http.ResponseWriter, r *http.Request) {
	port, err := pathPort(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	imp, ok := a.Registry.Get(port)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	registry.Close(r.Context(), imp)
	imp.MarkTerminated()
	a.Registry.Delete(port)
	a.unbindFlowState(port)
	a.logEvent("info", "deleted imposter on port %d", port)
	a.refreshImposterGauge()
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), false, false))
}

func (a *API) requireImposter(w http.ResponseWriter, r *http.Request) (*registry.Imposter, bool) {
	port, err := pathPort(r)
	if err != nil {
		writeAPIError(w, err)
		return nil, false
	}
	imp, ok := a.Registry.Get(port)
	if !ok {
		writeAPIError(w, errs.NewNotFoundError(fmt.Sprintf("imposter on port %d", port)))
		return nil, false
	}
	return imp, true
}

// handleAddStub handles POST /imposters/:port/stubs: appends one stub,
// optionally at a given index if the body names one (Mountebank's `index`
// insertion field), re-running the analyzer afterward.
func (a *API) handleAddStub(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}
	var body struct {
		StubDTO
		Index *int `json:"index,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, errs.WrapValidation("malformed stub JSON", err))
		return
	}
	s, err := decodeStub(body.StubDTO)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if err := a.checkInjectionAllowed([]*stub.Stub{s}); err != nil {
		writeAPIError(w, err)
		return
	}
	if body.Index != nil {
		stubs := imp.Stubs()
		if *body.Index < 0 || *body.Index > len(stubs) {
			writeAPIError(w, errs.NewValidationError(fmt.Sprintf("stub index %d out of range", *body.Index)))
			return
		}
		if *body.Index == len(stubs) {
			imp.AddStub(s)
		} else {
			imp.InsertStubBefore(*body.Index, s)
		}
	} else {
		imp.AddStub(s)
	}
	imp.SetWarnings(stub.Analyze(imp.Stubs()))
	writeJSON(w, http.StatusCreated, encodeImposter(imp, imp.Stubs(), false, false))
}

// handleReplaceStubs handles PUT /imposters/:port/stubs: replaces the whole
// stub list.
func (a *API) handleReplaceStubs(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}
	var body struct {
		Stubs []StubDTO `json:"stubs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, errs.WrapValidation("malformed stubs collection", err))
		return
	}
	stubs := make([]*stub.Stub, 0, len(body.Stubs))
	for _, sdto := range body.Stubs {
		s, err := decodeStub(sdto)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		stubs = append(stubs, s)
	}
	if err := a.checkInjectionAllowed(stubs); err != nil {
		writeAPIError(w, err)
		return
	}
	imp.SetStubs(stubs)
	imp.SetWarnings(stub.Analyze(stubs))
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), false, false))
}

func pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewValidationError(fmt.Sprintf("invalid stub index %q", raw))
	}
	return i, nil
}

// handleReplaceStubAt handles PUT /imposters/:port/stubs/:index: replaces a
// single stub in place.
func (a *API) handleReplaceStubAt(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}
	idx, err := pathIndex(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	var dto StubDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, errs.WrapValidation("malformed stub JSON", err))
		return
	}
	s, err := decodeStub(dto)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if err := a.checkInjectionAllowed([]*stub.Stub{s}); err != nil {
		writeAPIError(w, err)
		return
	}
	stubs := imp.Stubs()
	if idx < 0 || idx >= len(stubs) {
		writeAPIError(w, errs.NewNotFoundError(fmt.Sprintf("stub %d on imposter %d", idx, imp.Port)))
		return
	}
	stubs[idx] = s
	imp.SetStubs(stubs)
	imp.SetWarnings(stub.Analyze(stubs))
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), false, false))
}

// handleDeleteStubAt handles DELETE /imposters/:port/stubs/:index.
func (a *API) handleDeleteStubAt(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}
	idx, err := pathIndex(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if !imp.RemoveStubAt(idx) {
		writeAPIError(w, errs.NewNotFoundError(fmt.Sprintf("stub %d on imposter %d", idx, imp.Port)))
		return
	}
	imp.SetWarnings(stub.Analyze(imp.Stubs()))
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), false, false))
}

// handleClearSavedRequests handles DELETE /imposters/:port/savedRequests.
func (a *API) handleClearSavedRequests(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}
	imp.ClearSavedRequests()
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), false, false))
}

// handleClearSavedProxyResponses handles DELETE
// /imposters/:port/savedProxyResponses: drops every stub synthesized by
// proxyOnce/proxyAlways recording, leaving admin-declared stubs untouched.
func (a *API) handleClearSavedProxyResponses(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}
	imp.ClearGeneratedStubs()
	imp.SetWarnings(stub.Analyze(imp.Stubs()))
	writeJSON(w, http.StatusOK, encodeImposter(imp, imp.Stubs(), false, false))
}

// handleStreamRequests handles GET /imposters/:port/requests/stream: an SSE
// feed of newly recorded requests, polling the imposter's saved-requests ring
// on a fixed interval. Grounded on getmockd-mockd's handleStreamRequests.
func (a *API) handleStreamRequests(w http.ResponseWriter, r *http.Request) {
	imp, ok := a.requireImposter(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok2 := w.(http.Flusher)
	if !ok2 {
		writeError(w, http.StatusInternalServerError, "sse_error", "streaming not supported")
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"imposterPort\": %d}\n\n", imp.Port)
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saved := imp.SavedRequests()
			if len(saved) <= lastCount {
				continue
			}
			for _, req := range saved[lastCount:] {
				encoded, err := json.Marshal(encodeRequest(req))
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: request\ndata: %s\n\n", encoded)
			}
			lastCount = len(saved)
			flusher.Flush()
		}
	}
}

// configDocument is the wire shape of GET/POST /config: the full imposter
// collection plus an optional replace/dryRun directive on import.
type configDocument struct {
	Imposters []ImposterDTO `json:"imposters"`
	Replace   bool          `json:"replace,omitempty"`
	DryRun    bool          `json:"dryRun,omitempty"`
}

// handleExportConfig handles GET /config, supporting ?format=yaml alongside
// the default JSON rendering. Grounded on getmockd-mockd's handleExportConfig.
func (a *API) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	ports := a.Registry.Ports()
	sort.Ints(ports)
	doc := configDocument{Imposters: make([]ImposterDTO, 0, len(ports))}
	for _, p := range ports {
		imp, ok := a.Registry.Get(p)
		if !ok {
			continue
		}
		doc.Imposters = append(doc.Imposters, encodeImposter(imp, imp.Stubs(), false, false))
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		out, err := yaml.Marshal(doc)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// decodeImportBody sniffs Content-Type for a "yaml" substring to choose the
// decoder, capping the body at 10MB. Only the wrapped {imposters: [...]}
// document is accepted; a bare imposters array does not decode.
func decodeImportBody(w http.ResponseWriter, r *http.Request) (configDocument, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var doc configDocument
	isYAML := strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "yaml")

	dec := func(v interface{}) error {
		if isYAML {
			return yaml.NewDecoder(r.Body).Decode(v)
		}
		return json.NewDecoder(r.Body).Decode(v)
	}

	if err := dec(&doc); err != nil {
		return configDocument{}, errs.WrapValidation("malformed config document", err)
	}
	return doc, nil
}

// handleImportConfig handles PUT/POST /config: replaces or merges the
// registered imposter set from an uploaded document, honoring ?replace= and
// ?dryRun= query overrides of the body's own fields. Grounded on
// getmockd-mockd's handleImportConfig.
func (a *API) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeImportBody(w, r)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	replace := doc.Replace
	if v := r.URL.Query().Get("replace"); v != "" {
		replace = v == "true" || v == "1"
	}
	dryRun := doc.DryRun
	if v := r.URL.Query().Get("dryRun"); v != "" {
		dryRun = v == "true" || v == "1"
	}

	for _, dto := range doc.Imposters {
		_, stubs, err := decodeImposter(dto)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		if err := a.checkInjectionAllowed(stubs); err != nil {
			writeAPIError(w, err)
			return
		}
	}

	if dryRun {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"dryRun":        true,
			"imposterCount": len(doc.Imposters),
			"wouldReplace":  replace,
		})
		return
	}

	if replace {
		a.teardownAll(r.Context())
	}

	created := make([]ImposterDTO, 0, len(doc.Imposters))
	for _, dto := range doc.Imposters {
		imp, stubs, err := decodeImposter(dto)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		if err := a.checkInjectionAllowed(stubs); err != nil {
			writeAPIError(w, err)
			return
		}
		if imp.Port == 0 {
			port, err := registry.AllocateEphemeralPort(a.portRangeLow, a.portRangeHigh)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			imp.Port = port
		}
		if err := a.Registry.Create(imp); err != nil {
			writeAPIError(w, &errs.PortConflict{Port: imp.Port})
			return
		}
		imp.SetStubs(stubs)
		imp.SetWarnings(stub.Analyze(stubs))

		var flowCfg *FlowStateConfigDTO
		if dto.Rift != nil {
			flowCfg = dto.Rift.FlowState
		}
		flows := a.bindFlowState(imp.Port, flowCfg)
		handler := NewDataPlaneHandler(imp, a.evaluator(), a.Pipeline, flows, a.Log)
		if err := registry.Bind(imp, handler); err != nil {
			a.Registry.Delete(imp.Port)
			writeAPIError(w, err)
			return
		}
		created = append(created, encodeImposter(imp, imp.Stubs(), false, false))
	}

	a.logEvent("info", "imported config: %d imposter(s), replace=%v", len(created), replace)
	a.refreshImposterGauge()
	writeJSON(w, http.StatusOK, map[string]interface{}{"imposters": created})
}

// logEntry is one server-level event surfaced via GET /logs.
type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// logEvent records a server-level event at both the process logger and the
// in-memory ring GET /logs serves, mirroring Mountebank's own logs.json
// endpoint.
func (a *API) logEvent(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case "warn":
		a.Log.Warnf("%s", msg)
	case "error":
		a.Log.Errorf("%s", msg)
	default:
		a.Log.Infof("%s", msg)
	}

	a.logMu.Lock()
	a.logEntries = append(a.logEntries, logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   msg,
	})
	const maxLogEntries = 5000
	if len(a.logEntries) > maxLogEntries {
		a.logEntries = a.logEntries[len(a.logEntries)-maxLogEntries:]
	}
	a.logMu.Unlock()
}

// handleLogs handles GET /logs[?startIndex=&endIndex=], per Mountebank's
// logs.json slice semantics.
func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.logMu.Lock()
	entries := append([]logEntry(nil), a.logEntries...)
	a.logMu.Unlock()

	start := 0
	end := len(entries)
	if v := r.URL.Query().Get("startIndex"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			start = n
		}
	}
	if v := r.URL.Query().Get("endIndex"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n < end {
			end = n + 1
		}
	}
	if start > len(entries) {
		start = len(entries)
	}
	if end > len(entries) {
		end = len(entries)
	}
	if start > end {
		start = end
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries[start:end]})
}
