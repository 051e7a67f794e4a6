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

// Package value provides the JSON-equivalent untyped container used
// throughout riftmock for request/response bodies, admin configuration, and
// script return values.
package value

import (
	"encoding/json"
	"fmt"
)

// Value is a JSON-equivalent sum of null/bool/number/string/array/object.
// It is represented with plain Go values so it composes naturally with
// encoding/json: nil, bool, float64, string, []interface{}, map[string]interface{}.
type Value = interface{}

// Object is the "mapping from string to Value" container.
type Object map[string]Value

// Array is the "ordered sequence of Value" container.
type Array []Value

// Parse decodes raw JSON bytes into a Value tree. An empty input decodes to nil.
func Parse(raw []byte) (Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v Value
	dec := json.NewDecoder(bytesReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("value: parse json: %w", err)
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers converts json.Number leaves into float64, matching the
// "numbers are IEEE-754 doubles; integer preservation is best-effort" contract.
func normalizeNumbers(v Value) Value {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0.0
		}
		return f
	case map[string]interface{}:
		for k, vv := range t {
			t[k] = normalizeNumbers(vv)
		}
		return t
	case []interface{}:
		for i, vv := range t {
			t[i] = normalizeNumbers(vv)
		}
		return t
	default:
		return v
	}
}

// AsObject attempts to view v as an Object, returning ok=false otherwise.
// Accepts both the named Object type and the plain map[string]interface{}
// form produced directly by encoding/json, since values flow through both.
func AsObject(v Value) (Object, bool) {
	switch t := v.(type) {
	case Object:
		return t, true
	case map[string]interface{}:
		return Object(t), true
	default:
		return nil, false
	}
}

// AsArray attempts to view v as an Array, returning ok=false otherwise.
// Accepts both the named Array type and the plain []interface{} form.
func AsArray(v Value) (Array, bool) {
	switch t := v.(type) {
	case Array:
		return t, true
	case []interface{}:
		return Array(t), true
	default:
		return nil, false
	}
}

// AsString coerces v to a string for use in leaf predicate comparisons.
// Numbers and booleans are rendered in their canonical textual form so that
// e.g. {"equals": {"query": {"id": "1"}}} can match a numeric body field.
func AsString(v Value) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	case float64:
		return formatNumber(t), true
	default:
		return "", false
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// IsEmpty reports whether v is an "empty" value for the purposes of the
// exists predicate: nil, empty string, empty array, empty object.
func IsEmpty(v Value) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	case Array:
		return len(t) == 0
	case Object:
		return len(t) == 0
	default:
		return false
	}
}

type byteReader struct {
	b []byte
	i int
}

func bytesReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, fmt.Errorf("EOF")
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
