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

package registry

import (
	"testing"
	"time"
)

func TestImposter_LifecycleTransitions(t *testing.T) {
	imp := NewImposter(9000, "http", "test")
	if imp.State() != StatePending {
		t.Fatalf("expected Pending, got %v", imp.State())
	}
	if !imp.MarkListening() {
		t.Fatalf("expected Pending->Listening to succeed")
	}
	if imp.MarkListening() {
		t.Fatalf("expected repeated MarkListening to fail")
	}
	if !imp.MarkDraining() {
		t.Fatalf("expected Listening->Draining to succeed")
	}
	if !imp.MarkTerminated() {
		t.Fatalf("expected Draining->Terminated to succeed")
	}
	if imp.State() != StateTerminated {
		t.Fatalf("expected Terminated, got %v", imp.State())
	}
}

func TestImposter_DrainExpired(t *testing.T) {
	imp := NewImposter(9001, "http", "test")
	imp.MarkListening()

	old := drainGrace
	drainGrace = 5 * time.Millisecond
	defer func() { drainGrace = old }()

	imp.MarkDraining()
	if imp.DrainExpired() {
		t.Fatalf("should not be expired immediately")
	}
	time.Sleep(15 * time.Millisecond)
	if !imp.DrainExpired() {
		t.Fatalf("expected drain to have expired")
	}
}

func TestRegistry_CreateRejectsPortConflict(t *testing.T) {
	r := NewRegistry()
	imp1 := NewImposter(9002, "http", "a")
	if err := r.Create(imp1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	imp2 := NewImposter(9002, "http", "b")
	if err := r.Create(imp2); err == nil {
		t.Fatalf("expected port conflict error")
	}
}

func TestRegistry_CreateAllowsReuseAfterTermination(t *testing.T) {
	r := NewRegistry()
	imp1 := NewImposter(9003, "http", "a")
	if err := r.Create(imp1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	imp1.MarkListening()
	imp1.MarkDraining()
	imp1.MarkTerminated()
	r.Delete(9003)

	imp2 := NewImposter(9003, "http", "b")
	if err := r.Create(imp2); err != nil {
		t.Fatalf("expected reuse of freed port to succeed: %v", err)
	}
}

func TestImposter_StubsEmptyOnCreation(t *testing.T) {
	imp := NewImposter(9004, "http", "test")
	if got := imp.Stubs(); len(got) != 0 {
		t.Fatalf("expected no stubs initially, got %d", len(got))
	}
}
