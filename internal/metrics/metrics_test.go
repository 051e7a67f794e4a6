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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEnable_TogglesEnabled(t *testing.T) {
	Enable(Config{Enabled: false})
	if Enabled() {
		t.Fatalf("expected Enabled() to be false after Enable(Config{Enabled: false})")
	}
	Enable(Config{Enabled: true})
	if !Enabled() {
		t.Fatalf("expected Enabled() to be true after Enable(Config{Enabled: true})")
	}
	Enable(Config{Enabled: false})
}

func TestObservers_NoopWhenDisabled(t *testing.T) {
	Enable(Config{Enabled: false})

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("http"))
	ObserveRequest("http", true)
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("http"))
	if before != after {
		t.Fatalf("expected no observation while disabled, went from %v to %v", before, after)
	}
}

func TestObserveRequest_IncrementsWhenEnabled(t *testing.T) {
	Enable(Config{Enabled: true})
	defer Enable(Config{Enabled: false})

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("https"))
	ObserveRequest("https", false)
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("https"))
	if after != before+1 {
		t.Fatalf("expected requestsTotal[https] to increment by 1, got %v -> %v", before, after)
	}
}

func TestObserveFault_IgnoresEmptyKind(t *testing.T) {
	Enable(Config{Enabled: true})
	defer Enable(Config{Enabled: false})

	before := testutil.CollectAndCount(faultsTotal)
	ObserveFault("")
	after := testutil.CollectAndCount(faultsTotal)
	if before != after {
		t.Fatalf("expected an empty fault kind to add no series, got %d -> %d", before, after)
	}

	ObserveFault("CONNECTION_RESET_BY_PEER")
	got := testutil.ToFloat64(faultsTotal.WithLabelValues("CONNECTION_RESET_BY_PEER"))
	if got != 1 {
		t.Fatalf("expected faultsTotal[CONNECTION_RESET_BY_PEER] == 1, got %v", got)
	}
}

func TestSetImposterCount_NoopWhenDisabled(t *testing.T) {
	Enable(Config{Enabled: true})
	SetImposterCount(5)
	if got := testutil.ToFloat64(imposterCount); got != 5 {
		t.Fatalf("expected gauge == 5, got %v", got)
	}
	Enable(Config{Enabled: false})
	SetImposterCount(9)
	if got := testutil.ToFloat64(imposterCount); got != 5 {
		t.Fatalf("expected gauge to stay 5 while disabled, got %v", got)
	}
}

func TestObserveLatency_RecordsWhenEnabled(t *testing.T) {
	Enable(Config{Enabled: true})
	defer Enable(Config{Enabled: false})

	sampleCount := func() uint64 {
		reg := prometheus.NewRegistry()
		reg.MustRegister(responseLatency)
		mfs, err := reg.Gather()
		if err != nil || len(mfs) != 1 || len(mfs[0].GetMetric()) != 1 {
			t.Fatalf("gather responseLatency: families=%d err=%v", len(mfs), err)
		}
		return mfs[0].GetMetric()[0].GetHistogram().GetSampleCount()
	}
	before := sampleCount()
	ObserveLatency(10 * time.Millisecond)
	after := sampleCount()
	if after != before+1 {
		t.Fatalf("expected responseLatency observation count to grow by 1, got %d -> %d", before, after)
	}
}
