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

package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPAccessControl_NoRestrictionsPassesThrough(t *testing.T) {
	h := newIPAccessControl(okHandler(), false, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with no restrictions, got %d", rec.Code)
	}
}

func TestIPAccessControl_LocalOnlyRejectsRemote(t *testing.T) {
	h := newIPAccessControl(okHandler(), true, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-loopback remote, got %d", rec.Code)
	}
}

func TestIPAccessControl_LocalOnlyAllowsLoopback(t *testing.T) {
	h := newIPAccessControl(okHandler(), true, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for loopback, got %d", rec.Code)
	}
}

func TestIPAccessControl_AllowListRestrictsToCIDR(t *testing.T) {
	h := newIPAccessControl(okHandler(), false, []string{"10.0.0.0/8"})

	inside := httptest.NewRequest(http.MethodGet, "/", nil)
	inside.RemoteAddr = "10.1.2.3:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, inside)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an address inside the allowed CIDR, got %d", rec.Code)
	}

	outside := httptest.NewRequest(http.MethodGet, "/", nil)
	outside.RemoteAddr = "203.0.113.5:1234"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, outside)
	if rec2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an address outside the allowed CIDR, got %d", rec2.Code)
	}
}

func TestIPAccessControl_AllowListAcceptsExactIP(t *testing.T) {
	h := newIPAccessControl(okHandler(), false, []string{"198.51.100.7"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:9999"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an exact-match allowed IP, got %d", rec.Code)
	}
}
