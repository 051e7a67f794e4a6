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

// Package scripting implements the multi-engine script runtime used by
// inject predicates, inject responses, decorate behaviors, and the fault
// injection should_inject contract.
package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/riftlabs/riftmock/internal/engine/errs"
	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/value"
)

// Engine names, selected per-stub by the "engine" field of an inject/fault
// script block.
const (
	EngineJavaScript = "javascript"
	EngineLua        = "lua"
	EngineRhai       = "rhai"
)

// ResultKind tags the shape of a ResultValue returned from a fault script's
// should_inject call.
type ResultKind int

const (
	// PassThrough means the script declined to inject anything; the
	// pipeline continues with the stub's own response.
	PassThrough ResultKind = iota
	// InjectResponse means the script returned a full response body/status
	// that should replace the stub's response.
	InjectResponse
	// InjectLatency means the script requested an added delay before the
	// response is written.
	InjectLatency
	// InjectError means the script requested the connection be aborted;
	// ErrKind selects how (pipeline.Execute maps it onto a TCP-level fault).
	// No HTTP error response is written.
	InjectError
)

// Result is the tagged outcome of invoking a should_inject script.
type Result struct {
	Kind     ResultKind
	Response *record.Response // set when Kind == InjectResponse
	Latency  time.Duration    // set when Kind == InjectLatency
	ErrKind  string           // set when Kind == InjectError: "tcp_reset" | "connection_close" | "garbage"
}

// Runtime executes validated script bodies against a request and flow store.
type Runtime interface {
	// Validate parses code and confirms it defines a callable
	// should_inject(request, flow_store) entry point (for fault scripts) or
	// is a syntactically valid expression/function body (for inject
	// predicates/responses/decorate). The javascript and lua engines run
	// the script's top level once to find should_inject; no request is
	// evaluated.
	Validate(code string, purpose Purpose) error

	// EvaluatePredicate runs an `inject` predicate script and returns
	// whether the request is considered a match.
	EvaluatePredicate(ctx context.Context, code string, req *record.Request) (bool, error)

	// EvaluateResponse runs an `inject` response script and returns the
	// response value it produces (typically an object coercible to a
	// record.Response by the pipeline).
	EvaluateResponse(ctx context.Context, code string, req *record.Request) (value.Value, error)

	// EvaluateDecorate runs a `decorate` behavior script, which receives
	// and returns a mutated response value.
	EvaluateDecorate(ctx context.Context, code string, req *record.Request, resp value.Value) (value.Value, error)

	// EvaluateShouldInject runs the should_inject(request, flow_store)
	// fault contract and returns its tagged Result.
	EvaluateShouldInject(ctx context.Context, code string, req *record.Request, flows flowstate.Store, flowID string) (Result, error)
}

// Purpose distinguishes why a script is being validated, since the
// should_inject function-form requirement only applies to fault scripts.
type Purpose int

const (
	PurposePredicate Purpose = iota
	PurposeResponse
	PurposeDecorate
	PurposeFault
)

// Timeout bounds every script invocation's wall-clock budget, regardless of
// engine. Scripts that do not return within this window are aborted and the
// call returns a ScriptRuntimeError-wrapped deadline error.
const Timeout = 1 * time.Second

// Registry selects a Runtime by engine name.
type Registry struct {
	engines map[string]Runtime
}

// NewRegistry builds a Registry with the standard three engines wired:
// javascript (goja), lua (gopher-lua), rhai (expr-lang/expr, documented
// substitution — see DESIGN.md).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]Runtime{
			EngineJavaScript: newJSRuntime(),
			EngineLua:        newLuaRuntime(),
			EngineRhai:       newExprRuntime(),
		},
	}
}

// Get returns the Runtime for name, or an error if name is unknown.
func (r *Registry) Get(name string) (Runtime, error) {
	rt, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("scripting: unknown engine %q", name)
	}
	return rt, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, Timeout)
}

// watch runs onTimeout in its own goroutine if ctx is done before done is
// closed. Script VMs don't poll ctx on their own mid-loop, so this is what
// actually turns the withTimeout deadline into an aborted call: the caller
// arms the watch before starting the script and closes done (exactly once)
// when the call returns, win or lose the race.
func watch(ctx context.Context, done chan struct{}, onTimeout func()) {
	go func() {
		select {
		case <-ctx.Done():
			onTimeout()
		case <-done:
		}
	}()
}

// timeoutErr reports ctx's deadline (or an outer cancellation) as the reason
// a script call was aborted, wrapped the way every other script failure is.
func timeoutErr(engine string, ctx context.Context) error {
	return &errs.ScriptRuntimeError{
		Engine:     engine,
		Diagnostic: "script execution deadline exceeded",
		Cause:      ctx.Err(),
	}
}
