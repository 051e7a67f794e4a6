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
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riftlabs/riftmock/internal/engine/logging"
	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/metrics"
	"github.com/riftlabs/riftmock/internal/pipeline"
	"github.com/riftlabs/riftmock/internal/predicate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/registry"
	"github.com/riftlabs/riftmock/internal/stub"
)

// debugHeader is the data-plane short-circuit trigger: the matcher runs but
// cursors do not advance and nothing is recorded. The header name is matched
// case-insensitively by net/http.Header.Get already; the value is trimmed and
// compared against "true"/"1" case-insensitively.
const debugHeader = "X-Rift-Debug"
const debugResponseHeader = "X-Rift-Debug-Response"

// DataPlaneHandler serves the mock HTTP surface for one imposter: predicate
// matching, response pipeline execution, and fault delivery. Grounded on
// go-tartuffe's Server.ServeHTTP dispatch (match -> fault|proxy|inject|is ->
// behaviors -> merge-with-default -> write).
type DataPlaneHandler struct {
	Imposter  *registry.Imposter
	Evaluator *predicate.Evaluator
	Pipeline  *pipeline.Pipeline
	Flows     flowstate.Store
	Log       *logging.Logger
}

func NewDataPlaneHandler(imp *registry.Imposter, ev *predicate.Evaluator, p *pipeline.Pipeline, flows flowstate.Store, log *logging.Logger) *DataPlaneHandler {
	if log == nil {
		log = logging.Default()
	}
	return &DataPlaneHandler{Imposter: imp, Evaluator: ev, Pipeline: p, Flows: flows, Log: log}
}

func (h *DataPlaneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions && h.Imposter.AllowCORS {
		if registry.HandleCORSPreflight(w, r) {
			return
		}
	}

	req, err := record.FromHTTP(r)
	if err != nil {
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}

	debug := isDebugRequest(r)
	start := time.Now()

	stubs := h.Imposter.Stubs()
	idx, matched := h.matchStub(r.Context(), stubs, req)

	if debug {
		h.writeDebugReport(w, stubs, req, idx, matched)
		return
	}

	metrics.ObserveRequest(h.Imposter.Protocol, matched)
	defer func() { metrics.ObserveLatency(time.Since(start)) }()

	h.Imposter.IncrementRequestCount()
	h.Imposter.RecordRequest(req)

	if !matched {
		h.writeResponse(w, r, pipeline.MergeWithDefault(&record.Response{StatusCode: 200, Headers: &record.Headers{}}, h.Imposter.DefaultResponse))
		return
	}

	matchedStub := stubs[idx]
	resp, _ := matchedStub.NextResponse()
	if resp == nil {
		h.writeResponse(w, r, pipeline.MergeWithDefault(&record.Response{StatusCode: 200, Headers: &record.Headers{}}, h.Imposter.DefaultResponse))
		return
	}

	flowID := flowIDFor(r, h.Imposter.Port)
	outcome, generated, err := h.Pipeline.Execute(r.Context(), resp, req, h.Flows, flowID)
	if err != nil {
		h.Log.Errorf("imposter %d: pipeline error: %v", h.Imposter.Port, err)
		if resp.Script != "" {
			metrics.ObserveScriptError(resp.Engine)
		}
		http.Error(w, "internal mock error", http.StatusInternalServerError)
		return
	}

	if generated != nil {
		h.recordProxyStub(resp.Proxy, idx, generated)
	}

	switch outcome.Kind {
	case pipeline.OutcomeFault:
		metrics.ObserveFault(outcome.FaultKind)
		if err := pipeline.WriteFault(w, outcome.FaultKind); err != nil {
			h.Log.Warnf("imposter %d: fault delivery: %v", h.Imposter.Port, err)
		}
	default:
		if outcome.Latency > 0 {
			h.sleep(r.Context(), outcome.Latency)
		}
		h.writeResponse(w, r, pipeline.MergeWithDefault(outcome.Response, h.Imposter.DefaultResponse))
	}
}

func (h *DataPlaneHandler) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (h *DataPlaneHandler) matchStub(ctx context.Context, stubs []*stub.Stub, req *record.Request) (int, bool) {
	for i, s := range stubs {
		ok, err := s.Matches(ctx, h.Evaluator, req)
		if err != nil {
			h.Log.Warnf("imposter %d: stub %s predicate error: %v", h.Imposter.Port, s.ID, err)
			continue
		}
		if ok {
			return i, true
		}
	}
	return 0, false
}

func (h *DataPlaneHandler) recordProxyStub(cfg *stub.ProxyConfig, matchedIndex int, generated *stub.Stub) {
	if cfg == nil {
		return
	}
	switch cfg.Mode {
	case "proxyOnce", "proxyAlways":
		generated.Generated = true
		h.Imposter.InsertStubBefore(matchedIndex, generated)
	}
}

func (h *DataPlaneHandler) writeResponse(w http.ResponseWriter, r *http.Request, resp *record.Response) {
	if h.Imposter.AllowCORS {
		registry.ApplyCORSHeaders(w, r)
	}

	statusCode := 200
	if resp != nil && resp.StatusCode != 0 {
		statusCode = resp.StatusCode
	}

	if resp != nil && resp.Headers != nil {
		for _, k := range resp.Headers.Keys() {
			for _, v := range resp.Headers.Values(k) {
				w.Header().Add(k, v)
			}
		}
	}

	if statusCode == http.StatusNoContent {
		// A 204 carries no body; strip any framing headers a stub's Is/inject
		// response set so the client doesn't wait on a body that never comes.
		w.Header().Del("Content-Length")
		w.Header().Del("Transfer-Encoding")
		w.WriteHeader(statusCode)
		return
	}

	if w.Header().Get("Content-Type") == "" && resp != nil && resp.Body != nil {
		switch resp.Body.(type) {
		case string:
			w.Header().Set("Content-Type", "text/plain")
		default:
			w.Header().Set("Content-Type", "application/json")
		}
	}

	w.WriteHeader(statusCode)

	if resp == nil || resp.Body == nil {
		return
	}
	if len(resp.RawBody) > 0 {
		w.Write(resp.RawBody)
		return
	}
	switch body := resp.Body.(type) {
	case string:
		w.Write([]byte(body))
	case []byte:
		w.Write(body)
	default:
		if encoded, err := json.Marshal(body); err == nil {
			w.Write(encoded)
		}
	}
}

// isDebugRequest reports whether the request carries the debug short-circuit
// header: ASCII-case-insensitive header name (net/http already folds this),
// value trimmed and compared case-insensitively against "true"/"1".
func isDebugRequest(r *http.Request) bool {
	v := strings.TrimSpace(r.Header.Get(debugHeader))
	return strings.EqualFold(v, "true") || v == "1"
}

func (h *DataPlaneHandler) writeDebugReport(w http.ResponseWriter, stubs []*stub.Stub, req *record.Request, idx int, matched bool) {
	report := map[string]interface{}{
		"request": map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
			"query":  req.QueryObject(),
			"headers": func() map[string]string {
				out := map[string]string{}
				for _, k := range req.Headers.Keys() {
					v, _ := req.Headers.Get(k)
					out[k] = v
				}
				return out
			}(),
			"body": req.Body,
		},
		"imposter": map[string]interface{}{
			"port":     h.Imposter.Port,
			"protocol": h.Imposter.Protocol,
			"stubs":    len(stubs),
		},
		"matched": matched,
	}
	if matched {
		s := stubs[idx]
		report["stubIndex"] = idx
		report["stubId"] = s.ID
		report["predicates"] = fmt.Sprintf("%d predicate(s)", len(s.Predicates))
	} else {
		report["reason"] = "no stub predicate matched"
		var summaries []string
		for i, s := range stubs {
			summaries = append(summaries, fmt.Sprintf("stub %d (%s): %d predicate(s)", i, s.ID, len(s.Predicates)))
		}
		report["stubs"] = summaries
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(debugResponseHeader, "true")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}

// flowIDFor derives the flow-state namespace for a request: an explicit
// X-Rift-Flow-Id header when the client supplies one, otherwise the caller's
// address scoped to this imposter's port so unrelated imposters never share
// flow state. Scripts may still choose their own keys within that namespace.
func flowIDFor(r *http.Request, port int) string {
	if id := strings.TrimSpace(r.Header.Get("X-Rift-Flow-Id")); id != "" {
		return id
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strconv.Itoa(port) + ":" + host
}
