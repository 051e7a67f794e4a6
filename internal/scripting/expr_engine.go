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
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/value"
)

// exprRuntime backs the "rhai" engine name. There is no Go binding for
// Rust's rhai; expr-lang/expr is the pack's actual embedded-expression
// engine (getmockd-mockd depends on it), so it stands in here — a
// documented substitution (DESIGN.md), not a silent one.
//
// expr's grammar has no function-declaration syntax, so the fault-script
// "must be function form should_inject(request, flow_store)" rule is
// satisfied differently for this engine than for javascript/lua: rather than
// defining a callable, the rhai engine treats the whole script body as the
// should_inject expression itself, with the request bound as the environment
// identifier `Request` and the flow store as `FlowStore` (Get/Set/Increment
// methods). Validation enforces that the body mentions both (as `request` or
// `Request`, `flow_store` or `FlowStore`), which is the closest expr can come
// to rejecting a script that ignores the contract.
type exprRuntime struct{}

func newExprRuntime() *exprRuntime { return &exprRuntime{} }

// evalEnv is the environment type compiled programs are checked against and
// executed with.
type evalEnv struct {
	Request   value.Object
	Response  value.Value
	FlowStore *flowStoreEnv
}

type flowStoreEnv struct {
	ctx    context.Context
	flows  flowstate.Store
	flowID string
}

func (f *flowStoreEnv) Get(key string) value.Value {
	v, ok, err := f.flows.Get(f.ctx, f.flowID, key)
	if err != nil || !ok {
		return nil
	}
	return v
}

func (f *flowStoreEnv) Set(key string, val value.Value) bool {
	return f.flows.Set(f.ctx, f.flowID, key, val, 0) == nil
}

func (f *flowStoreEnv) Increment(key string, delta int64) int64 {
	n, _ := f.flows.Increment(f.ctx, f.flowID, key, delta, 0)
	return n
}

func (r *exprRuntime) Validate(code string, purpose Purpose) error {
	if purpose == PurposeFault {
		if !strings.Contains(code, "Request") && !strings.Contains(code, "request") {
			return fmt.Errorf("scripting: rhai fault script must reference request")
		}
		if !strings.Contains(code, "FlowStore") && !strings.Contains(code, "flow_store") {
			return fmt.Errorf("scripting: rhai fault script must reference flow_store")
		}
	}
	if _, err := expr.Compile(code, expr.Env(evalEnv{})); err != nil {
		return fmt.Errorf("scripting: rhai compile: %w", err)
	}
	return nil
}

func (r *exprRuntime) EvaluatePredicate(ctx context.Context, code string, req *record.Request) (bool, error) {
	v, err := r.run(ctx, code, req, nil, nil)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (r *exprRuntime) EvaluateResponse(ctx context.Context, code string, req *record.Request) (value.Value, error) {
	return r.run(ctx, code, req, nil, nil)
}

func (r *exprRuntime) EvaluateDecorate(ctx context.Context, code string, req *record.Request, resp value.Value) (value.Value, error) {
	return r.run(ctx, code, req, resp, nil)
}

// run compiles and evaluates code against env. expr's grammar has no
// unbounded loop construct and no interrupt hook, so unlike the javascript
// and lua engines this can't forcibly abort a runaway evaluation mid-flight;
// it instead races the evaluation (run in its own goroutine) against ctx's
// deadline and reports a timeout the instant the deadline fires, same as the
// other engines, at the cost of leaking that goroutine if expr.Run never
// returns.
func (r *exprRuntime) run(ctx context.Context, code string, req *record.Request, resp value.Value, fs *flowStoreEnv) (value.Value, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	env := evalEnv{Request: requestObject(req), Response: resp, FlowStore: fs}
	program, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("scripting: rhai compile: %w", err)
	}

	type outcome struct {
		out value.Value
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := expr.Run(program, env)
		done <- outcome{out, err}
	}()

	select {
	case <-ctx.Done():
		return nil, timeoutErr(EngineRhai, ctx)
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("scripting: rhai execution: %w", res.err)
		}
		return res.out, nil
	}
}

func (r *exprRuntime) EvaluateShouldInject(ctx context.Context, code string, req *record.Request, flows flowstate.Store, flowID string) (Result, error) {
	fs := &flowStoreEnv{ctx: ctx, flows: flows, flowID: flowID}
	out, err := r.run(ctx, code, req, nil, fs)
	if err != nil {
		return Result{}, fmt.Errorf("scripting: rhai should_inject: %w", err)
	}
	return decodeShouldInjectResult(out)
}
