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

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/value"
)

// jsRuntime is the javascript engine, grounded on go-tartuffe's jsEngine
// field (ExecuteResponse invoked against the inject script body). goja is
// the pack's javascript VM of choice for this exact role.
type jsRuntime struct{}

func newJSRuntime() *jsRuntime { return &jsRuntime{} }

func newVM() *goja.Runtime {
	vm := goja.New()
	reg := new(require.Registry)
	reg.Enable(vm)
	console.Enable(vm)
	return vm
}

func (j *jsRuntime) Validate(code string, purpose Purpose) error {
	vm := newVM()
	prog, err := goja.Compile("", code, true)
	if err != nil {
		return fmt.Errorf("scripting: javascript compile: %w", err)
	}
	if _, err := vm.RunProgram(prog); err != nil {
		return fmt.Errorf("scripting: javascript initial run: %w", err)
	}
	if purpose == PurposeFault {
		fn, ok := goja.AssertFunction(vm.Get("should_inject"))
		if !ok {
			return fmt.Errorf("scripting: javascript fault script must define function should_inject(request, flow_store)")
		}
		_ = fn
	}
	return nil
}

func (j *jsRuntime) EvaluatePredicate(ctx context.Context, code string, req *record.Request) (bool, error) {
	v, err := j.run(ctx, code, requestObject(req), nil)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// EvaluateResponse runs code as a plain synchronous inject: the script's
// final expression/statement is the response. Mountebank's callback-style
// completion (a script that stashes a `callback` argument and invokes it
// later, e.g. after an async op) is not accepted here — only the
// synchronous-return form.
func (j *jsRuntime) EvaluateResponse(ctx context.Context, code string, req *record.Request) (value.Value, error) {
	return j.run(ctx, code, requestObject(req), nil)
}

func (j *jsRuntime) EvaluateDecorate(ctx context.Context, code string, req *record.Request, resp value.Value) (value.Value, error) {
	return j.run(ctx, code, requestObject(req), resp)
}

// run compiles code, exposes `request` (and `response`, when non-nil) as
// globals, then evaluates the program's final expression/statement — the
// calling convention go-tartuffe's ExecuteResponse uses for inject scripts
// that are plain expressions rather than should_inject-style functions.
func (j *jsRuntime) run(ctx context.Context, code string, req value.Value, resp value.Value) (value.Value, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	vm := newVM()
	vm.Set("request", req)
	if resp != nil {
		vm.Set("response", resp)
	}
	prog, err := goja.Compile("", code, true)
	if err != nil {
		return nil, fmt.Errorf("scripting: javascript compile: %w", err)
	}

	done := make(chan struct{})
	watch(ctx, done, func() { vm.Interrupt("script execution deadline exceeded") })
	v, err := vm.RunProgram(prog)
	close(done)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutErr(EngineJavaScript, ctx)
		}
		return nil, fmt.Errorf("scripting: javascript execution: %w", err)
	}
	return v.Export(), nil
}

func (j *jsRuntime) EvaluateShouldInject(ctx context.Context, code string, req *record.Request, flows flowstate.Store, flowID string) (Result, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	vm := newVM()

	done := make(chan struct{})
	watch(ctx, done, func() { vm.Interrupt("script execution deadline exceeded") })
	defer close(done)

	prog, err := goja.Compile("", code, true)
	if err != nil {
		return Result{}, fmt.Errorf("scripting: javascript compile: %w", err)
	}
	if _, err := vm.RunProgram(prog); err != nil {
		if ctx.Err() != nil {
			return Result{}, timeoutErr(EngineJavaScript, ctx)
		}
		return Result{}, fmt.Errorf("scripting: javascript initial run: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get("should_inject"))
	if !ok {
		return Result{}, fmt.Errorf("scripting: javascript fault script must define should_inject(request, flow_store)")
	}

	flowStoreObj := newFlowStoreBridge(ctx, vm, flows, flowID)

	out, err := fn(goja.Undefined(), vm.ToValue(requestObject(req)), flowStoreObj)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, timeoutErr(EngineJavaScript, ctx)
		}
		return Result{}, fmt.Errorf("scripting: javascript should_inject: %w", err)
	}
	return decodeShouldInjectResult(out.Export())
}

// newFlowStoreBridge exposes flow_store.get/set/increment to the script as
// plain synchronous calls, blocking on the underlying Store for the
// duration of the script's single-threaded execution window.
func newFlowStoreBridge(ctx context.Context, vm *goja.Runtime, flows flowstate.Store, flowID string) goja.Value {
	obj := vm.NewObject()
	_ = obj.Set("get", func(key string) goja.Value {
		v, ok, err := flows.Get(ctx, flowID, key)
		if err != nil || !ok {
			return goja.Undefined()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("set", func(key string, val goja.Value) {
		_ = flows.Set(ctx, flowID, key, val.Export(), 0)
	})
	_ = obj.Set("increment", func(key string, delta int64) int64 {
		n, _ := flows.Increment(ctx, flowID, key, delta, 0)
		return n
	})
	return obj
}

func requestObject(req *record.Request) value.Object {
	if req == nil {
		return value.Object{}
	}
	obj := value.Object{
		"method":  req.Method,
		"path":    req.Path,
		"query":   req.QueryObject(),
		"body":    req.Body,
	}
	if req.Headers != nil {
		obj["headers"] = req.Headers.AsObject()
	}
	if req.RequestFrom != nil {
		obj["requestFrom"] = req.RequestFrom.String()
	}
	return obj
}

