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

// Package metrics provides opt-in Prometheus telemetry for the data plane:
// request/match counters, fault-injection counters, response latency, and a
// live imposter-count gauge. Safe to call from hot paths when disabled —
// every public function is a no-op until Enable is called.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the metrics module: Enabled gates every observer,
// MetricsAddr optionally starts a dedicated /metrics HTTP server.
type Config struct {
	Enabled     bool
	MetricsAddr string // e.g. ":9090"; empty disables the standalone endpoint
}

var enabled atomic.Bool

// Global-only metrics, no per-port/per-path labels, to avoid unbounded
// cardinality as imposters come and go.
var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riftmock_requests_total",
		Help: "Total data-plane requests received, labeled by protocol.",
	}, []string{"protocol"})

	matchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riftmock_stub_matches_total",
		Help: "Total requests that matched a stub vs fell through to the default response.",
	}, []string{"matched"})

	faultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riftmock_faults_injected_total",
		Help: "Total faults injected by kind.",
	}, []string{"kind"})

	scriptErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riftmock_script_errors_total",
		Help: "Total script runtime errors by engine.",
	}, []string{"engine"})

	responseLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "riftmock_response_latency_seconds",
		Help:    "End-to-end data-plane request handling latency.",
		Buckets: prometheus.DefBuckets,
	})

	imposterCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "riftmock_imposters_active",
		Help: "Number of imposters currently registered.",
	})

	flowStateOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riftmock_flowstate_operations_total",
		Help: "Total flow-state store operations by kind (get/set/increment/delete).",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(requestsTotal, matchesTotal, faultsTotal, scriptErrorsTotal, responseLatency, imposterCount, flowStateOpsTotal)
}

// Enable turns on metric collection and, if cfg.MetricsAddr is non-empty,
// starts a dedicated /metrics HTTP server in the background.
func Enable(cfg Config) {
	enabled.Store(cfg.Enabled)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether metric collection is active.
func Enabled() bool { return enabled.Load() }

// ObserveRequest records one data-plane request for protocol ("http" or
// "https") and whether it matched a stub.
func ObserveRequest(protocol string, matched bool) {
	if !enabled.Load() {
		return
	}
	requestsTotal.WithLabelValues(protocol).Inc()
	label := "false"
	if matched {
		label = "true"
	}
	matchesTotal.WithLabelValues(label).Inc()
}

// ObserveFault records one fault injection by kind
// (CONNECTION_RESET_BY_PEER, RANDOM_DATA_THEN_CLOSE, or a deterministic
// Mountebank fault name).
func ObserveFault(kind string) {
	if !enabled.Load() || kind == "" {
		return
	}
	faultsTotal.WithLabelValues(kind).Inc()
}

// ObserveScriptError records one script runtime failure for the given
// engine name.
func ObserveScriptError(engine string) {
	if !enabled.Load() {
		return
	}
	scriptErrorsTotal.WithLabelValues(engine).Inc()
}

// ObserveLatency records one request's end-to-end handling duration.
func ObserveLatency(d time.Duration) {
	if !enabled.Load() {
		return
	}
	responseLatency.Observe(d.Seconds())
}

// SetImposterCount updates the live imposter gauge.
func SetImposterCount(n int) {
	if !enabled.Load() {
		return
	}
	imposterCount.Set(float64(n))
}

// ObserveFlowStateOp records one flow-state store operation by kind.
func ObserveFlowStateOp(op string) {
	if !enabled.Load() {
		return
	}
	flowStateOpsTotal.WithLabelValues(op).Inc()
}

// startMetricsEndpoint exposes /metrics on addr in a background goroutine.
func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
