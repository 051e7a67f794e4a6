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

package predicate

import (
	"context"
	"testing"

	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/scripting"
	"github.com/riftlabs/riftmock/internal/value"
)

func newReq(method, path string, query map[string][]string, body value.Value) *record.Request {
	r := &record.Request{Method: method, Path: path, Headers: &record.Headers{}, Body: body}
	r.Query = query
	return r
}

func TestEvaluator_EqualsLeaf(t *testing.T) {
	cases := []struct {
		name string
		node Node
		req  *record.Request
		want bool
	}{
		{
			name: "method equals case-insensitive by default",
			node: Node{Operator: "equals", Target: TargetMethod, Expected: "get"},
			req:  newReq("GET", "/orders", nil, nil),
			want: true,
		},
		{
			name: "method equals case sensitive mismatch",
			node: Node{Operator: "equals", Target: TargetMethod, Expected: "get", CaseSensitive: true},
			req:  newReq("GET", "/orders", nil, nil),
			want: false,
		},
		{
			name: "path mismatch",
			node: Node{Operator: "equals", Target: TargetPath, Expected: "/nope"},
			req:  newReq("GET", "/orders", nil, nil),
			want: false,
		},
	}
	ev := NewEvaluator(scripting.NewRegistry())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ev.Match(context.Background(), tc.node, tc.req)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluator_ContainsStartsEndsWith(t *testing.T) {
	req := newReq("GET", "/orders/123", nil, nil)
	ev := NewEvaluator(scripting.NewRegistry())

	got, err := ev.Match(context.Background(), Node{Operator: "contains", Target: TargetPath, Expected: "ders"}, req)
	if err != nil || !got {
		t.Fatalf("contains: got=%v err=%v", got, err)
	}
	got, err = ev.Match(context.Background(), Node{Operator: "startsWith", Target: TargetPath, Expected: "/orders"}, req)
	if err != nil || !got {
		t.Fatalf("startsWith: got=%v err=%v", got, err)
	}
	got, err = ev.Match(context.Background(), Node{Operator: "endsWith", Target: TargetPath, Expected: "123"}, req)
	if err != nil || !got {
		t.Fatalf("endsWith: got=%v err=%v", got, err)
	}
}

func TestEvaluator_AndOrNot(t *testing.T) {
	req := newReq("GET", "/orders", nil, nil)
	ev := NewEvaluator(scripting.NewRegistry())

	and := Node{Operator: "and", Children: []Node{
		{Operator: "equals", Target: TargetMethod, Expected: "GET"},
		{Operator: "equals", Target: TargetPath, Expected: "/orders"},
	}}
	got, err := ev.Match(context.Background(), and, req)
	if err != nil || !got {
		t.Fatalf("and: got=%v err=%v", got, err)
	}

	not := Node{Operator: "not", Children: []Node{
		{Operator: "equals", Target: TargetPath, Expected: "/nope"},
	}}
	got, err = ev.Match(context.Background(), not, req)
	if err != nil || !got {
		t.Fatalf("not: got=%v err=%v", got, err)
	}

	or := Node{Operator: "or", Children: []Node{
		{Operator: "equals", Target: TargetPath, Expected: "/nope"},
		{Operator: "equals", Target: TargetPath, Expected: "/orders"},
	}}
	got, err = ev.Match(context.Background(), or, req)
	if err != nil || !got {
		t.Fatalf("or: got=%v err=%v", got, err)
	}
}

func TestEvaluator_ExistsLeaf(t *testing.T) {
	req := newReq("GET", "/orders", map[string][]string{"id": {"1"}}, nil)
	ev := NewEvaluator(scripting.NewRegistry())

	got, err := ev.Match(context.Background(), Node{Operator: "exists", Target: TargetQuery, Expected: true}, req)
	if err != nil || !got {
		t.Fatalf("exists true: got=%v err=%v", got, err)
	}

	empty := newReq("GET", "/orders", nil, nil)
	got, err = ev.Match(context.Background(), Node{Operator: "exists", Target: TargetQuery, Expected: false}, empty)
	if err != nil || !got {
		t.Fatalf("exists false on empty query: got=%v err=%v", got, err)
	}
}

func TestEvaluator_QueryNestedObjectMatch(t *testing.T) {
	req := newReq("GET", "/orders", map[string][]string{"status": {"open"}}, nil)
	ev := NewEvaluator(scripting.NewRegistry())

	node := Node{Operator: "equals", Target: TargetQuery, Expected: value.Object{"status": "open"}}
	got, err := ev.Match(context.Background(), node, req)
	if err != nil || !got {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestEvaluator_FormParsesURLEncodedBody(t *testing.T) {
	req := newReq("POST", "/orders", nil, "a=1&b=2")
	req.RawBody = []byte("a=1&b=2")
	ev := NewEvaluator(scripting.NewRegistry())

	node := Node{Operator: "equals", Target: TargetForm, Expected: value.Object{"a": "1"}}
	got, err := ev.Match(context.Background(), node, req)
	if err != nil || !got {
		t.Fatalf("got=%v err=%v", got, err)
	}

	missing := Node{Operator: "equals", Target: TargetForm, Expected: value.Object{"a": "2"}}
	got, err = ev.Match(context.Background(), missing, req)
	if err != nil || got {
		t.Fatalf("expected mismatch to be false, got=%v err=%v", got, err)
	}
}

func TestEvaluator_DeepEqualsBody(t *testing.T) {
	ev := NewEvaluator(scripting.NewRegistry())
	req := newReq("POST", "/orders", nil, value.Object{"id": "1", "qty": "2"})

	node := Node{Operator: "deepEquals", Target: TargetBody, Expected: value.Object{"id": "1", "qty": "2"}}
	got, err := ev.Match(context.Background(), node, req)
	if err != nil || !got {
		t.Fatalf("got=%v err=%v", got, err)
	}

	mismatched := Node{Operator: "deepEquals", Target: TargetBody, Expected: value.Object{"id": "1"}}
	got, err = ev.Match(context.Background(), mismatched, req)
	if err != nil || got {
		t.Fatalf("expected mismatch on field count, got=%v err=%v", got, err)
	}
}

func TestEvaluator_MatchesRegex(t *testing.T) {
	ev := NewEvaluator(scripting.NewRegistry())
	req := newReq("GET", "/orders/42", nil, nil)

	node := Node{Operator: "matches", Target: TargetPath, Expected: `^/orders/\d+$`}
	got, err := ev.Match(context.Background(), node, req)
	if err != nil || !got {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestEvaluator_InjectPredicate(t *testing.T) {
	ev := NewEvaluator(scripting.NewRegistry())
	req := newReq("DELETE", "/orders/1", nil, nil)

	node := Node{Operator: "inject", Engine: scripting.EngineJavaScript, Script: "request.method === 'DELETE'"}
	got, err := ev.Match(context.Background(), node, req)
	if err != nil || !got {
		t.Fatalf("got=%v err=%v", got, err)
	}
}
