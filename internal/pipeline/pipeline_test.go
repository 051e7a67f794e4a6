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

package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/scripting"
	"github.com/riftlabs/riftmock/internal/stub"
)

func newTestRequest() *record.Request {
	return &record.Request{
		Method:  "GET",
		Path:    "/widgets",
		Query:   map[string][]string{},
		Headers: record.NewHeaders(http.Header{"X-Echo": []string{"hello"}}),
	}
}

func TestPipeline_ExecuteIsResponse(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind: stub.ResponseIs,
		Is: &record.Response{
			StatusCode: 201,
			Headers:    record.NewHeaders(http.Header{}),
			Body:       "created",
		},
	}
	outcome, genStub, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if genStub != nil {
		t.Fatalf("expected no generated stub for an is-response")
	}
	if outcome.Kind != OutcomeRespond {
		t.Fatalf("expected OutcomeRespond, got %v", outcome.Kind)
	}
	if outcome.Response.StatusCode != 201 {
		t.Fatalf("expected status 201, got %d", outcome.Response.StatusCode)
	}
}

func TestPipeline_ExecuteFaultShortCircuits(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind:  stub.ResponseIs,
		Is:    &record.Response{StatusCode: 200, Headers: record.NewHeaders(http.Header{})},
		Fault: &stub.FaultConfig{Kind: FaultConnectionResetByPeer},
	}
	outcome, _, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Kind != OutcomeFault {
		t.Fatalf("expected OutcomeFault, got %v", outcome.Kind)
	}
	if outcome.FaultKind != FaultConnectionResetByPeer {
		t.Fatalf("expected fault kind %q, got %q", FaultConnectionResetByPeer, outcome.FaultKind)
	}
}

func TestPipeline_ExecuteLatencyFaultAddsDelay(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind:  stub.ResponseIs,
		Is:    &record.Response{StatusCode: 200, Headers: record.NewHeaders(http.Header{})},
		Fault: &stub.FaultConfig{Latency: &stub.LatencyFault{Probability: 1, Ms: 50}},
	}
	outcome, _, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Kind != OutcomeRespond {
		t.Fatalf("expected OutcomeRespond after a latency-only fault, got %v", outcome.Kind)
	}
	if outcome.Latency < 50*time.Millisecond {
		t.Fatalf("expected recorded latency >= 50ms, got %v", outcome.Latency)
	}
}

func TestPipeline_ExecuteErrorFaultShortCircuits(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind:  stub.ResponseIs,
		Is:    &record.Response{StatusCode: 200, Headers: record.NewHeaders(http.Header{})},
		Fault: &stub.FaultConfig{Error: &stub.ErrorFault{Probability: 1, Status: 503, Body: "down for maintenance"}},
	}
	outcome, _, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Kind != OutcomeRespond {
		t.Fatalf("expected OutcomeRespond for an error fault, got %v", outcome.Kind)
	}
	if outcome.Response.StatusCode != 503 {
		t.Fatalf("expected status 503, got %d", outcome.Response.StatusCode)
	}
}

func TestPipeline_ExecuteWithCopyBehavior(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind: stub.ResponseIs,
		Is:   &record.Response{StatusCode: 200, Headers: record.NewHeaders(http.Header{})},
		Behaviors: []stub.Behavior{
			{Kind: "copy", Config: map[string]interface{}{"from": "X-Echo", "into": "X-Echoed"}},
		},
	}
	outcome, _, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got, ok := outcome.Response.Headers.Get("X-Echoed"); !ok || got != "hello" {
		t.Fatalf("expected copied header X-Echoed=hello, got %q (ok=%v)", got, ok)
	}
}

func TestPipeline_ExecuteWithWaitBehavior(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind: stub.ResponseIs,
		Is:   &record.Response{StatusCode: 200, Headers: record.NewHeaders(http.Header{})},
		Behaviors: []stub.Behavior{
			{Kind: "wait", Config: map[string]interface{}{"milliseconds": float64(5)}},
		},
	}
	start := time.Now()
	_, _, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatalf("expected wait behavior to delay execution")
	}
}

func TestPipeline_ExecuteRejectsShellTransform(t *testing.T) {
	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind: stub.ResponseIs,
		Is:   &record.Response{StatusCode: 200, Headers: record.NewHeaders(http.Header{})},
		Behaviors: []stub.Behavior{
			{Kind: "shellTransform", Config: map[string]interface{}{"command": "rm -rf /"}},
		},
	}
	_, _, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err == nil {
		t.Fatalf("expected shellTransform to be refused")
	}
}

func TestPipeline_ProxyTransparentDoesNotSynthesizeStub(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind: stub.ResponseProxy,
		Proxy: &stub.ProxyConfig{
			To:   upstream.URL,
			Mode: "proxyTransparent",
		},
	}
	outcome, genStub, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if genStub != nil {
		t.Fatalf("expected proxyTransparent to never synthesize a stub")
	}
	if outcome.Response.StatusCode != 200 {
		t.Fatalf("expected proxied status 200, got %d", outcome.Response.StatusCode)
	}
}

func TestPipeline_ProxyOnceSynthesizesStub(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))
	defer upstream.Close()

	p := NewPipeline(scripting.NewRegistry())
	resp := &stub.Response{
		Kind: stub.ResponseProxy,
		Proxy: &stub.ProxyConfig{
			To:   upstream.URL,
			Mode: "proxyOnce",
		},
	}
	outcome, genStub, err := p.Execute(context.Background(), resp, newTestRequest(), flowstate.NewMemoryStore(), "flow-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if genStub == nil {
		t.Fatalf("expected proxyOnce to synthesize a replay stub")
	}
	if outcome.Response.StatusCode != 201 {
		t.Fatalf("expected proxied status 201, got %d", outcome.Response.StatusCode)
	}

	if len(genStub.Predicates) == 0 {
		t.Fatalf("expected synthesized stub to carry at least one predicate")
	}
}

func TestMergeWithDefault_FillsZeroValues(t *testing.T) {
	resp := &record.Response{}
	def := &record.Response{StatusCode: 404, Headers: record.NewHeaders(http.Header{}), Body: "not found"}
	merged := MergeWithDefault(resp, def)
	if merged.StatusCode != 404 {
		t.Fatalf("expected status 404, got %d", merged.StatusCode)
	}
	if merged.Body != "not found" {
		t.Fatalf("expected default body to fill in, got %v", merged.Body)
	}
}
