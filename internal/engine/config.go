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

// Package engine wires the value/record/flowstate/scripting/predicate/stub/
// pipeline/registry/admin/metrics packages into a single runnable server,
// the way cmd/ratelimiter-api/main.go wires core.Store/core.Worker/api.Server
// together — except here the wiring lives in a reusable package so
// cmd/riftmock/main.go stays a thin flag-to-Config translator.
package engine

import "time"

// Config is the single opaque configuration struct the core receives; the
// CLI/environment layer that produces it is out of scope for the core
// itself. Field set covers spec.md's enumeration (adminPort, adminHost,
// allowInjection, localOnly, ipAllowList, logLevel, metricsPort, dataDir,
// and flowStateBackendHandle as FlowStateBackend plus the FlowStateRedis*
// fields) and adds PostgresDSN, the two reaper intervals and ShutdownTimeout.
type Config struct {
	AdminHost string
	AdminPort int

	// AllowInjection gates inject predicates/responses, should_inject fault
	// scripts, and decorate behaviors across every imposter.
	AllowInjection bool

	// LocalOnly restricts the admin listener to loopback addresses,
	// regardless of AdminHost.
	LocalOnly bool

	// IPAllowList, if non-empty, restricts the admin listener to the given
	// IPs/CIDRs; an empty list allows any address LocalOnly doesn't already
	// exclude.
	IPAllowList []string

	LogLevel string

	// MetricsPort, if non-zero, starts a dedicated Prometheus /metrics
	// listener on that port.
	MetricsPort int

	// DataDir, if non-empty, is scanned at startup for one imposter per
	// *.json/*.yaml/*.yml file, loaded before the admin listener opens.
	DataDir string

	// FlowStateBackend and FlowStateRedis* select the default Flow-State
	// Store backend for imposters that don't configure their own
	// `_rift.flowState`; "" defaults to in-memory.
	FlowStateBackend     string
	FlowStateRedisAddr   string
	FlowStateRedisDB     int
	FlowStateRedisPrefix string

	// PostgresDSN, if non-empty, opens a *sql.DB backing "postgres"-type
	// lookup behavior datasources (§4.6). Left empty disables that source.
	PostgresDSN string

	// ReaperSweepInterval and ReaperDrainInterval tune the background
	// reaper's two loops (flow-state expiry sweep, imposter drain
	// enforcement). Both default to sensible values if zero.
	ReaperSweepInterval time.Duration
	ReaperDrainInterval time.Duration

	// ShutdownTimeout bounds how long graceful shutdown waits for in-flight
	// requests and imposter listeners to drain.
	ShutdownTimeout time.Duration
}

// withDefaults returns a copy of cfg with zero-valued tunables replaced by
// their production defaults, leaving an explicitly configured Config alone.
func (cfg Config) withDefaults() Config {
	if cfg.AdminPort == 0 {
		cfg.AdminPort = 2525 // Mountebank's own default admin port
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ReaperSweepInterval == 0 {
		cfg.ReaperSweepInterval = 30 * time.Second
	}
	if cfg.ReaperDrainInterval == 0 {
		cfg.ReaperDrainInterval = 5 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return cfg
}
