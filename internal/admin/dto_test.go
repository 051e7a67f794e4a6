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

package admin

import (
	"encoding/json"
	"testing"

	"github.com/riftlabs/riftmock/internal/predicate"
)

func TestDecodePredicate_SingleTargetLeaf(t *testing.T) {
	raw := json.RawMessage(`{"equals": {"method": "GET"}, "caseSensitive": true}`)
	n, err := decodePredicate(raw)
	if err != nil {
		t.Fatalf("decodePredicate: %v", err)
	}
	if n.Operator != "equals" || n.Target != predicate.TargetMethod {
		t.Fatalf("got operator=%s target=%s", n.Operator, n.Target)
	}
	if n.Expected != "GET" {
		t.Fatalf("got expected=%v", n.Expected)
	}
	if !n.CaseSensitive {
		t.Fatalf("expected caseSensitive to propagate")
	}
}

func TestDecodePredicate_MultiTargetLeafBecomesAnd(t *testing.T) {
	raw := json.RawMessage(`{"equals": {"method": "GET", "path": "/x"}}`)
	n, err := decodePredicate(raw)
	if err != nil {
		t.Fatalf("decodePredicate: %v", err)
	}
	if n.Operator != "and" {
		t.Fatalf("expected implicit and, got %s", n.Operator)
	}
	if len(n.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(n.Children))
	}
}

func TestDecodePredicate_Compound(t *testing.T) {
	raw := json.RawMessage(`{"or": [{"equals": {"method": "GET"}}, {"equals": {"method": "POST"}}]}`)
	n, err := decodePredicate(raw)
	if err != nil {
		t.Fatalf("decodePredicate: %v", err)
	}
	if n.Operator != "or" || len(n.Children) != 2 {
		t.Fatalf("got operator=%s children=%d", n.Operator, len(n.Children))
	}
}

func TestDecodePredicate_Not(t *testing.T) {
	raw := json.RawMessage(`{"not": {"equals": {"method": "GET"}}}`)
	n, err := decodePredicate(raw)
	if err != nil {
		t.Fatalf("decodePredicate: %v", err)
	}
	if n.Operator != "not" || len(n.Children) != 1 {
		t.Fatalf("got operator=%s children=%d", n.Operator, len(n.Children))
	}
}

func TestDecodePredicate_Inject(t *testing.T) {
	raw := json.RawMessage(`{"inject": "function predicate(req) { return true; }", "engine": "lua"}`)
	n, err := decodePredicate(raw)
	if err != nil {
		t.Fatalf("decodePredicate: %v", err)
	}
	if n.Operator != "inject" || n.Engine != "lua" {
		t.Fatalf("got operator=%s engine=%s", n.Operator, n.Engine)
	}
}

func TestDecodePredicate_UnknownOperator(t *testing.T) {
	raw := json.RawMessage(`{"bogus": {"method": "GET"}}`)
	if _, err := decodePredicate(raw); err == nil {
		t.Fatalf("expected an error for an unrecognised operator")
	}
}

func TestDecodeStatusCode_IntOrString(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`200`, 200},
		{`"404"`, 404},
		{``, 0},
	}
	for _, c := range cases {
		got, err := decodeStatusCode(json.RawMessage(c.raw))
		if err != nil {
			t.Fatalf("decodeStatusCode(%q): %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("decodeStatusCode(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestDecodeBehaviors_ObjectForm(t *testing.T) {
	raw := json.RawMessage(`{"copy": {"from": "headers.X"}, "wait": {"ms": 10}}`)
	behaviors, err := decodeBehaviors(raw, nil)
	if err != nil {
		t.Fatalf("decodeBehaviors: %v", err)
	}
	if len(behaviors) != 2 {
		t.Fatalf("got %d behaviors, want 2", len(behaviors))
	}
}

func TestDecodeBehaviors_ArrayForm(t *testing.T) {
	raw := json.RawMessage(`[{"copy": {"from": "headers.X"}}, {"wait": {"ms": 10}}]`)
	behaviors, err := decodeBehaviors(raw, nil)
	if err != nil {
		t.Fatalf("decodeBehaviors: %v", err)
	}
	if len(behaviors) != 2 {
		t.Fatalf("got %d behaviors, want 2", len(behaviors))
	}
}

func TestDecodeResponse_RequiresExactlyOneKind(t *testing.T) {
	_, err := decodeResponse(ResponseDTO{})
	if err == nil {
		t.Fatalf("expected an error when no response kind is set")
	}

	is := &ResponseBodyDTO{StatusCode: json.RawMessage(`200`)}
	proxy := &ProxyDTO{To: "http://example.com"}
	_, err = decodeResponse(ResponseDTO{Is: is, Proxy: proxy})
	if err == nil {
		t.Fatalf("expected an error when two response kinds are set")
	}
}

func TestDecodeImposter_RejectsBadProtocolAndPort(t *testing.T) {
	if _, _, err := decodeImposter(ImposterDTO{Protocol: "ftp"}); err == nil {
		t.Fatalf("expected an error for an invalid protocol")
	}
	if _, _, err := decodeImposter(ImposterDTO{Port: 70000}); err == nil {
		t.Fatalf("expected an error for an out-of-range port")
	}
}

func TestDecodeImposter_RoundTripsStubsAndDefaultResponse(t *testing.T) {
	dto := ImposterDTO{
		Protocol: "http",
		Name:     "sample",
		DefaultResponse: &ResponseBodyDTO{
			StatusCode: json.RawMessage(`200`),
		},
		Stubs: []StubDTO{
			{
				Predicates: []json.RawMessage{json.RawMessage(`{"equals": {"method": "GET"}}`)},
				Responses: []ResponseDTO{
					{Is: &ResponseBodyDTO{StatusCode: json.RawMessage(`204`)}},
				},
			},
		},
	}
	imp, stubs, err := decodeImposter(dto)
	if err != nil {
		t.Fatalf("decodeImposter: %v", err)
	}
	if imp.Protocol != "http" || imp.Name != "sample" {
		t.Fatalf("got protocol=%s name=%s", imp.Protocol, imp.Name)
	}
	if imp.DefaultResponse == nil || imp.DefaultResponse.StatusCode != 200 {
		t.Fatalf("default response not decoded correctly: %+v", imp.DefaultResponse)
	}
	if len(stubs) != 1 || len(stubs[0].Predicates) != 1 {
		t.Fatalf("expected 1 stub with 1 predicate, got %d stubs", len(stubs))
	}
}
