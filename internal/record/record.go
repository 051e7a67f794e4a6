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

// Package record defines the immutable Request Record and mutable Response
// Record types that flow through the predicate engine and response pipeline.
package record

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riftlabs/riftmock/internal/value"
)

// Headers is a canonical header map: lookups are case-insensitive on the key,
// but the original casing of the first-seen key is preserved for wire
// emission. Multiple values for the same key are comma-joined on Get, mirroring
// net/http.Header.Get but keeping the pretty original key casing around.
type Headers struct {
	order []string
	keys  map[string]string // lower(key) -> original-cased key
	vals  map[string][]string
}

// NewHeaders builds a canonical Headers from a net/http.Header.
func NewHeaders(h http.Header) *Headers {
	hh := &Headers{
		keys: make(map[string]string, len(h)),
		vals: make(map[string][]string, len(h)),
	}
	for k, vs := range h {
		hh.Set(k, vs...)
	}
	return hh
}

// Set replaces all values for key, preserving the first-seen casing already
// recorded for that key (if any). Safe to call on a zero-valued Headers.
func (h *Headers) Set(key string, vals ...string) {
	h.ensureInit()
	lk := strings.ToLower(key)
	if _, ok := h.keys[lk]; !ok {
		h.keys[lk] = key
		h.order = append(h.order, lk)
	}
	h.vals[lk] = append([]string(nil), vals...)
}

// Add appends a value for key, creating it if absent. Safe to call on a
// zero-valued Headers.
func (h *Headers) Add(key, val string) {
	h.ensureInit()
	lk := strings.ToLower(key)
	if _, ok := h.keys[lk]; !ok {
		h.keys[lk] = key
		h.order = append(h.order, lk)
	}
	h.vals[lk] = append(h.vals[lk], val)
}

// ensureInit lazily allocates the backing maps so a bare &Headers{} literal
// (used throughout the codebase as an empty-headers shorthand) is writable.
func (h *Headers) ensureInit() {
	if h.keys == nil {
		h.keys = make(map[string]string)
	}
	if h.vals == nil {
		h.vals = make(map[string][]string)
	}
}

// Get returns the comma-joined values for key, and whether key was present.
func (h *Headers) Get(key string) (string, bool) {
	lk := strings.ToLower(key)
	vs, ok := h.vals[lk]
	if !ok {
		return "", false
	}
	return strings.Join(vs, ", "), true
}

// Values returns the raw multi-value slice for key.
func (h *Headers) Values(key string) []string {
	return h.vals[strings.ToLower(key)]
}

// Keys returns the original-cased keys in first-seen order.
func (h *Headers) Keys() []string {
	out := make([]string, 0, len(h.order))
	for _, lk := range h.order {
		out = append(out, h.keys[lk])
	}
	return out
}

// AsObject renders the headers as a value.Object for script/jsonpath access,
// comma-joining multi-valued headers the way Get does.
func (h *Headers) AsObject() value.Object {
	obj := make(value.Object, len(h.order))
	for _, lk := range h.order {
		obj[h.keys[lk]] = strings.Join(h.vals[lk], ", ")
	}
	return obj
}

// Clone returns a deep copy safe for independent mutation.
func (h *Headers) Clone() *Headers {
	out := &Headers{
		order: append([]string(nil), h.order...),
		keys:  make(map[string]string, len(h.keys)),
		vals:  make(map[string][]string, len(h.vals)),
	}
	for k, v := range h.keys {
		out.keys[k] = v
	}
	for k, vs := range h.vals {
		out.vals[k] = append([]string(nil), vs...)
	}
	return out
}

// Request is the immutable record of an inbound HTTP request as seen by the
// predicate engine, script runtime, and proxy recorder.
type Request struct {
	RequestFrom net.IP
	Method      string
	Path        string
	PathParams  map[string]string
	Query       url.Values
	Headers     *Headers
	Body        value.Value
	RawBody     []byte
	Timestamp   time.Time
}

// FromHTTP builds a Request record from a live *http.Request, reading and
// closing its body. The body is decoded as JSON when possible, falling back
// to the raw string, mirroring go-tartuffe's NewRequestFromHTTP.
func FromHTTP(r *http.Request) (*Request, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body.Close()

	var body value.Value
	if len(raw) > 0 {
		if parsed, err := value.Parse(raw); err == nil {
			body = parsed
		} else {
			body = string(raw)
		}
	}

	return &Request{
		RequestFrom: clientIP(r),
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Headers:     NewHeaders(r.Header),
		Body:        body,
		RawBody:     raw,
		Timestamp:   time.Now(),
	}, nil
}

// clientIP extracts the caller's address from RemoteAddr, falling back to
// treating the whole string as the address if it carries no port.
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// QueryObject renders Query as a value.Object, single-valuing keys with one
// entry and array-valuing keys with more than one, matching Mountebank's
// request.query JSON shape.
func (r *Request) QueryObject() value.Object {
	return valuesToObject(r.Query)
}

// FormObject parses RawBody as application/x-www-form-urlencoded and renders
// it the same way QueryObject renders the query string, so a "form" predicate
// target matches like "query" against the parsed body rather than the raw
// string. An unparseable or empty body yields an empty object.
func (r *Request) FormObject() value.Object {
	vals, err := url.ParseQuery(string(r.RawBody))
	if err != nil {
		return value.Object{}
	}
	return valuesToObject(vals)
}

func valuesToObject(vals url.Values) value.Object {
	obj := make(value.Object, len(vals))
	for k, vs := range vals {
		if len(vs) == 1 {
			obj[k] = vs[0]
		} else {
			arr := make(value.Array, len(vs))
			for i, v := range vs {
				arr[i] = v
			}
			obj[k] = arr
		}
	}
	return obj
}

// Response is the mutable record produced by the response pipeline before it
// is written to the wire. Behaviors operate on this in place.
type Response struct {
	StatusCode int
	Headers    *Headers
	Body       value.Value
	RawBody    []byte
}

// Clone returns a deep-enough copy for a cycling stub to hand out repeatedly
// without behaviors on one request mutating the canonical stored response.
func (r *Response) Clone() *Response {
	out := &Response{StatusCode: r.StatusCode, RawBody: append([]byte(nil), r.RawBody...)}
	if r.Headers != nil {
		out.Headers = r.Headers.Clone()
	}
	out.Body = cloneValue(r.Body)
	return out
}

func cloneValue(v value.Value) value.Value {
	switch t := v.(type) {
	case value.Object:
		out := make(value.Object, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case map[string]interface{}:
		out := make(value.Object, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case value.Array:
		out := make(value.Array, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	case []interface{}:
		out := make(value.Array, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}
