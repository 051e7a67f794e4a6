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

	lua "github.com/yuin/gopher-lua"

	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/value"
)

// luaRuntime is the "lua" engine. gopher-lua is a named out-of-pack pick —
// no repo in the corpus embeds Lua — documented in DESIGN.md as the only
// realistic pure-Go Lua VM for this role.
type luaRuntime struct{}

func newLuaRuntime() *luaRuntime { return &luaRuntime{} }

func (l *luaRuntime) Validate(code string, purpose Purpose) error {
	L := lua.NewState()
	defer L.Close()
	fn, err := L.LoadString(code)
	if err != nil {
		return fmt.Errorf("scripting: lua compile: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("scripting: lua initial run: %w", err)
	}
	if purpose == PurposeFault {
		v := L.GetGlobal("should_inject")
		if v.Type() != lua.LTFunction {
			return fmt.Errorf("scripting: lua fault script must define function should_inject(request, flow_store)")
		}
	}
	return nil
}

func (l *luaRuntime) EvaluatePredicate(ctx context.Context, code string, req *record.Request) (bool, error) {
	v, err := l.run(ctx, code, req, nil)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// EvaluateResponse runs code as a plain synchronous inject: the script's
// return value is the response. Mountebank's callback-style completion
// (stashing and later invoking a callback argument) is not accepted here —
// only the synchronous-return form.
func (l *luaRuntime) EvaluateResponse(ctx context.Context, code string, req *record.Request) (value.Value, error) {
	return l.run(ctx, code, req, nil)
}

func (l *luaRuntime) EvaluateDecorate(ctx context.Context, code string, req *record.Request, resp value.Value) (value.Value, error) {
	return l.run(ctx, code, req, resp)
}

func (l *luaRuntime) run(ctx context.Context, code string, req *record.Request, resp value.Value) (value.Value, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	L.SetGlobal("request", toLuaValue(L, requestObject(req)))
	if resp != nil {
		L.SetGlobal("response", toLuaValue(L, resp))
	}

	fn, err := L.LoadString(code)
	if err != nil {
		return nil, fmt.Errorf("scripting: lua compile: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if ctx.Err() != nil {
			return nil, timeoutErr(EngineLua, ctx)
		}
		return nil, fmt.Errorf("scripting: lua execution: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return fromLuaValue(ret), nil
}

func (l *luaRuntime) EvaluateShouldInject(ctx context.Context, code string, req *record.Request, flows flowstate.Store, flowID string) (Result, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	fn, err := L.LoadString(code)
	if err != nil {
		return Result{}, fmt.Errorf("scripting: lua compile: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		if ctx.Err() != nil {
			return Result{}, timeoutErr(EngineLua, ctx)
		}
		return Result{}, fmt.Errorf("scripting: lua initial run: %w", err)
	}

	shouldInject := L.GetGlobal("should_inject")
	if shouldInject.Type() != lua.LTFunction {
		return Result{}, fmt.Errorf("scripting: lua fault script must define should_inject(request, flow_store)")
	}

	flowStoreTable := newLuaFlowStoreBridge(ctx, L, flows, flowID)

	if err := L.CallByParam(lua.P{
		Fn:      shouldInject,
		NRet:    1,
		Protect: true,
	}, toLuaValue(L, requestObject(req)), flowStoreTable); err != nil {
		if ctx.Err() != nil {
			return Result{}, timeoutErr(EngineLua, ctx)
		}
		return Result{}, fmt.Errorf("scripting: lua should_inject: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return decodeShouldInjectResult(fromLuaValue(ret))
}

func newLuaFlowStoreBridge(ctx context.Context, L *lua.LState, flows flowstate.Store, flowID string) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "get", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		v, ok, err := flows.Get(ctx, flowID, key)
		if err != nil || !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLuaValue(L, v))
		return 1
	}))
	L.SetField(tbl, "set", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		val := fromLuaValue(L.CheckAny(2))
		_ = flows.Set(ctx, flowID, key, val, 0)
		return 0
	}))
	L.SetField(tbl, "increment", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		delta := L.CheckInt64(2)
		n, _ := flows.Increment(ctx, flowID, key, delta, 0)
		L.Push(lua.LNumber(n))
		return 1
	}))
	return tbl
}

func toLuaValue(L *lua.LState, v value.Value) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case float64:
		return lua.LNumber(t)
	case string:
		return lua.LString(t)
	case value.Object:
		tbl := L.NewTable()
		for k, vv := range t {
			L.SetField(tbl, k, toLuaValue(L, vv))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, vv := range t {
			L.SetField(tbl, k, toLuaValue(L, vv))
		}
		return tbl
	case value.Array:
		tbl := L.NewTable()
		for i, vv := range t {
			L.RawSetInt(tbl, i+1, toLuaValue(L, vv))
		}
		return tbl
	case []interface{}:
		tbl := L.NewTable()
		for i, vv := range t {
			L.RawSetInt(tbl, i+1, toLuaValue(L, vv))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func fromLuaValue(v lua.LValue) value.Value {
	switch t := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(t)
	case lua.LNumber:
		return float64(t)
	case lua.LString:
		return string(t)
	case *lua.LTable:
		if t.Len() > 0 {
			arr := make(value.Array, 0, t.Len())
			t.ForEach(func(_, vv lua.LValue) {
				arr = append(arr, fromLuaValue(vv))
			})
			return arr
		}
		obj := value.Object{}
		t.ForEach(func(k, vv lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				obj[string(ks)] = fromLuaValue(vv)
			}
		})
		return obj
	default:
		return nil
	}
}
