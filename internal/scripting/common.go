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
	"time"

	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/value"
)

// decodeShouldInjectResult interprets a should_inject return value, shared
// by every engine since the contract (spec.md's
// "_rift.script.code must be function form should_inject(request,
// flow_store)") is engine-agnostic: `{inject: "latency"|"error"|"response",
// ...}` or anything else/undefined meaning pass-through.
func decodeShouldInjectResult(v value.Value) (Result, error) {
	if v == nil {
		return Result{Kind: PassThrough}, nil
	}
	obj, ok := value.AsObject(v)
	if !ok {
		return Result{Kind: PassThrough}, nil
	}
	kind, _ := value.AsString(obj["inject"])
	switch kind {
	case "latency":
		var ms float64
		switch n := obj["milliseconds"].(type) {
		case float64:
			ms = n
		case int64:
			ms = float64(n)
		case int:
			ms = float64(n)
		}
		return Result{Kind: InjectLatency, Latency: msToDuration(ms)}, nil
	case "error":
		errKind, _ := value.AsString(obj["errorKind"])
		return Result{Kind: InjectError, ErrKind: errKind}, nil
	case "response":
		resp := decodeResponseValue(obj["response"])
		return Result{Kind: InjectResponse, Response: resp}, nil
	default:
		return Result{Kind: PassThrough}, nil
	}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// decodeResponseValue builds a record.Response from a script-returned
// object shaped like a Mountebank HTTPResponse (statusCode/headers/body).
func decodeResponseValue(v value.Value) *record.Response {
	obj, ok := value.AsObject(v)
	if !ok {
		return nil
	}
	resp := &record.Response{StatusCode: 200, Headers: &record.Headers{}}
	switch sc := obj["statusCode"].(type) {
	case float64:
		resp.StatusCode = int(sc)
	case int64:
		resp.StatusCode = int(sc)
	case int:
		resp.StatusCode = sc
	}
	if hdrs, ok := value.AsObject(obj["headers"]); ok {
		for k, hv := range hdrs {
			if s, ok := value.AsString(hv); ok {
				resp.Headers.Set(k, s)
			}
		}
	}
	resp.Body = obj["body"]
	return resp
}
