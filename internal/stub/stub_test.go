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

package stub

import (
	"testing"

	"github.com/riftlabs/riftmock/internal/predicate"
	"github.com/riftlabs/riftmock/internal/record"
)

func TestStub_NextResponse_CyclesInOrder(t *testing.T) {
	s := NewStub("", nil, []Response{
		{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}},
		{Kind: ResponseIs, Is: &record.Response{StatusCode: 201}},
	})

	want := []int{200, 201, 200, 201}
	for i, w := range want {
		r, _ := s.NextResponse()
		if r.Is.StatusCode != w {
			t.Fatalf("call %d: got %d, want %d", i, r.Is.StatusCode, w)
		}
	}
}

func TestStub_NextResponse_RepeatHonored(t *testing.T) {
	s := NewStub("", nil, []Response{
		{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}, Repeat: 2},
		{Kind: ResponseIs, Is: &record.Response{StatusCode: 500}},
	})

	want := []int{200, 200, 500, 200, 200, 500}
	for i, w := range want {
		r, _ := s.NextResponse()
		if r.Is.StatusCode != w {
			t.Fatalf("call %d: got %d, want %d", i, r.Is.StatusCode, w)
		}
	}
}

func TestStub_NextResponse_SingleResponseSticks(t *testing.T) {
	s := NewStub("", nil, []Response{
		{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}},
	})
	for i := 0; i < 5; i++ {
		r, idx := s.NextResponse()
		if r.Is.StatusCode != 200 || idx != 0 {
			t.Fatalf("call %d: got status=%d idx=%d", i, r.Is.StatusCode, idx)
		}
	}
}

func TestAnalyze_FlagsCatchAllNotLast(t *testing.T) {
	stubs := []*Stub{
		NewStub("a", nil, []Response{{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}}}),
		NewStub("b", []predicate.Node{{Operator: "equals", Target: predicate.TargetPath, Expected: "/x"}}, []Response{{Kind: ResponseIs, Is: &record.Response{StatusCode: 404}}}),
	}
	warnings := Analyze(stubs)

	foundCatchAll, foundNotLast := false, false
	for _, w := range warnings {
		if w.Kind == "catch_all" && w.StubIndex == 0 {
			foundCatchAll = true
		}
		if w.Kind == "catch_all_not_last" && w.StubIndex == 0 {
			foundNotLast = true
		}
	}
	if !foundCatchAll || !foundNotLast {
		t.Fatalf("expected catch_all and catch_all_not_last warnings, got %+v", warnings)
	}
}

func TestAnalyze_FlagsExactDuplicate(t *testing.T) {
	preds := []predicate.Node{{Operator: "equals", Target: predicate.TargetPath, Expected: "/x"}}
	stubs := []*Stub{
		NewStub("a", preds, []Response{{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}}}),
		NewStub("b", preds, []Response{{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}}}),
	}
	warnings := Analyze(stubs)

	found := false
	for _, w := range warnings {
		if w.Kind == "exact_duplicate" && w.StubIndex == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected exact_duplicate warning, got %+v", warnings)
	}
}

func TestAnalyze_FlagsDuplicateID(t *testing.T) {
	stubs := []*Stub{
		NewStub("dup", []predicate.Node{{Operator: "equals", Target: predicate.TargetPath, Expected: "/a"}}, []Response{{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}}}),
		NewStub("dup", []predicate.Node{{Operator: "equals", Target: predicate.TargetPath, Expected: "/b"}}, []Response{{Kind: ResponseIs, Is: &record.Response{StatusCode: 200}}}),
	}
	warnings := Analyze(stubs)

	found := false
	for _, w := range warnings {
		if w.Kind == "duplicate_id" && w.StubIndex == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate_id warning, got %+v", warnings)
	}
}
