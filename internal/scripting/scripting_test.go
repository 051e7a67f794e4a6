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

package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riftlabs/riftmock/internal/engine/errs"
	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
)

func TestRegistry_GetUnknownEngine(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("cobol"); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
}

func TestJSRuntime_EvaluatePredicate(t *testing.T) {
	cases := []struct {
		name string
		code string
		path string
		want bool
	}{
		{"matches path", "request.path === '/orders'", "/orders", true},
		{"does not match", "request.path === '/orders'", "/other", false},
	}
	rt := newJSRuntime()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &record.Request{Path: tc.path, Headers: &record.Headers{}}
			got, err := rt.EvaluatePredicate(context.Background(), tc.code, req)
			if err != nil {
				t.Fatalf("EvaluatePredicate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestJSRuntime_ValidateRequiresShouldInjectForFault(t *testing.T) {
	rt := newJSRuntime()
	if err := rt.Validate("1 + 1", PurposeFault); err == nil {
		t.Fatalf("expected error for fault script without should_inject")
	}
	if err := rt.Validate("function should_inject(request, flow_store) { return null }", PurposeFault); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestJSRuntime_EvaluateShouldInject_Latency(t *testing.T) {
	rt := newJSRuntime()
	flows := flowstate.NewMemoryStore()
	code := `function should_inject(request, flow_store) {
		flow_store.increment("hits", 1)
		return {inject: "latency", milliseconds: 50}
	}`
	req := &record.Request{Path: "/x", Headers: &record.Headers{}}
	res, err := rt.EvaluateShouldInject(context.Background(), code, req, flows, "flow-1")
	if err != nil {
		t.Fatalf("EvaluateShouldInject: %v", err)
	}
	if res.Kind != InjectLatency {
		t.Fatalf("expected InjectLatency, got %v", res.Kind)
	}
	if res.Latency.Milliseconds() != 50 {
		t.Fatalf("expected 50ms, got %v", res.Latency)
	}
	v, ok, err := flows.Get(context.Background(), "flow-1", "hits")
	if err != nil || !ok {
		t.Fatalf("expected hits recorded, ok=%v err=%v", ok, err)
	}
	if v != float64(1) {
		t.Fatalf("expected hits=1, got %v", v)
	}
}

func TestLuaRuntime_EvaluatePredicate(t *testing.T) {
	rt := newLuaRuntime()
	req := &record.Request{Method: "GET", Headers: &record.Headers{}}
	got, err := rt.EvaluatePredicate(context.Background(), `return request.method == "GET"`, req)
	if err != nil {
		t.Fatalf("EvaluatePredicate: %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
}

func TestExprRuntime_EvaluatePredicate(t *testing.T) {
	rt := newExprRuntime()
	req := &record.Request{Method: "POST", Headers: &record.Headers{}}
	got, err := rt.EvaluatePredicate(context.Background(), `Request.method == "POST"`, req)
	if err != nil {
		t.Fatalf("EvaluatePredicate: %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
}

func TestExprRuntime_ValidateRequiresFlowStoreReference(t *testing.T) {
	rt := newExprRuntime()
	if err := rt.Validate("1 == 1", PurposeFault); err == nil {
		t.Fatalf("expected error for fault script missing request/flow_store reference")
	}
}

func TestJSRuntime_EvaluateShouldInject_TimesOutOnInfiniteLoop(t *testing.T) {
	rt := newJSRuntime()
	flows := flowstate.NewMemoryStore()
	code := `function should_inject(request, flow_store) { while (true) {} }`
	req := &record.Request{Path: "/x", Headers: &record.Headers{}}

	start := time.Now()
	_, err := rt.EvaluateShouldInject(context.Background(), code, req, flows, "flow-1")
	elapsed := time.Since(start)

	var scriptErr *errs.ScriptRuntimeError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected a *errs.ScriptRuntimeError, got %T: %v", err, err)
	}
	if elapsed > Timeout+500*time.Millisecond {
		t.Fatalf("expected the call to abort near the %s deadline, took %s", Timeout, elapsed)
	}
}

func TestLuaRuntime_EvaluatePredicate_TimesOutOnInfiniteLoop(t *testing.T) {
	rt := newLuaRuntime()
	req := &record.Request{Path: "/x", Headers: &record.Headers{}}

	start := time.Now()
	_, err := rt.EvaluatePredicate(context.Background(), `while true do end`, req)
	elapsed := time.Since(start)

	var scriptErr *errs.ScriptRuntimeError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected a *errs.ScriptRuntimeError, got %T: %v", err, err)
	}
	if elapsed > Timeout+500*time.Millisecond {
		t.Fatalf("expected the call to abort near the %s deadline, took %s", Timeout, elapsed)
	}
}
