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
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/riftlabs/riftmock/internal/admin"
	"github.com/riftlabs/riftmock/internal/engine/logging"
	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/metrics"
	"github.com/riftlabs/riftmock/internal/registry"
)

// Engine wires the value/record/flowstate/scripting/predicate/stub/
// pipeline/registry/admin/metrics packages into one runnable server. Grounded
// on cmd/ratelimiter-api/main.go's construction order (telemetry, then core
// components, then the worker, then the HTTP server), moved into a package of
// its own so cmd/riftmock/main.go only has to translate flags into a Config.
type Engine struct {
	cfg    Config
	API    *admin.API
	Worker *registry.Worker
	Log    *logging.Logger
	server *http.Server
	db     *sql.DB
}

// New assembles an Engine from cfg. The only thing it starts is the
// dedicated /metrics listener, which metrics.Enable opens when MetricsPort is
// non-zero; the admin listener is not opened, no datadir is loaded, and no
// background reaper runs yet. Call ListenAndServe to do that.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	log := logging.New(nil, logging.ParseLevel(cfg.LogLevel))

	api := admin.NewAPI(log)
	api.AllowInjection = cfg.AllowInjection
	api.DefaultFlowStateBackend = cfg.FlowStateBackend
	api.DefaultFlowStateOptions = flowstate.Options{
		RedisAddr:   cfg.FlowStateRedisAddr,
		RedisDB:     cfg.FlowStateRedisDB,
		RedisPrefix: cfg.FlowStateRedisPrefix,
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		// riftmock never imports a concrete Postgres driver (the teacher's own
		// PostgresPersister doesn't either — it takes an already-open *sql.DB).
		// The deployer's own build must blank-import a driver registering under
		// the "postgres" name (github.com/lib/pq, or any pgx stdlib-compatible
		// shim) for this DSN to actually connect.
		opened, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("engine: open postgres lookup datasource: %w", err)
		}
		db = opened
		api.Pipeline.DB = db
	}

	metrics.Enable(metrics.Config{
		Enabled:     cfg.MetricsPort != 0,
		MetricsAddr: metricsAddr(cfg.MetricsPort),
	})

	worker := registry.NewWorker(api.Registry, api, cfg.ReaperSweepInterval, cfg.ReaperDrainInterval)

	handler := newIPAccessControl(api.Router(), cfg.LocalOnly, cfg.IPAllowList)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.AdminHost, cfg.AdminPort),
		Handler: handler,
	}

	return &Engine{cfg: cfg, API: api, Worker: worker, Log: log, server: server, db: db}, nil
}

func metricsAddr(port int) string {
	if port == 0 {
		return ""
	}
	return fmt.Sprintf(":%d", port)
}

// ListenAndServe loads DataDir (if configured), starts the background
// reaper, and blocks serving the admin HTTP API until Shutdown is called or
// the listener fails. Mirrors the teacher's worker.Start() + httpServer.
// ListenAndServe() sequencing in cmd/ratelimiter-api/main.go.
func (e *Engine) ListenAndServe() error {
	if e.cfg.DataDir != "" {
		if err := e.API.LoadDataDir(e.cfg.DataDir); err != nil {
			return fmt.Errorf("engine: load datadir: %w", err)
		}
	}

	e.Worker.Start()
	e.Log.Infof("admin API listening on %s", e.server.Addr)
	err := e.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the background reaper, gracefully drains the admin
// listener, then drains and terminates every registered imposter, all
// bounded by ctx. Mirrors worker.Stop() + httpServer.Shutdown(ctx).
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Worker.Stop()
	err := e.server.Shutdown(ctx)
	for _, port := range e.API.Registry.Ports() {
		if imp, ok := e.API.Registry.Get(port); ok {
			if closeErr := registry.Close(ctx, imp); closeErr != nil && err == nil {
				err = closeErr
			}
			imp.MarkTerminated()
		}
	}
	if e.db != nil {
		if closeErr := e.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
