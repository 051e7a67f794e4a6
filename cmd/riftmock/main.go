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

// Package main provides the entry point for the riftmock mock-server.
//
// It translates CLI flags into an engine.Config, hands that off to
// engine.New, and runs the admin HTTP API until an OS signal asks it to
// stop, at which point it drains in-flight requests and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/riftlabs/riftmock/internal/engine"
)

func main() {
	adminHost := flag.String("admin-host", "0.0.0.0", "Admin API bind host")
	adminPort := flag.Int("admin-port", 2525, "Admin API bind port")
	allowInjection := flag.Bool("allow-injection", true, "Allow inject predicates/responses, should_inject faults, and decorate behaviors")
	localOnly := flag.Bool("local-only", false, "Restrict the admin API to loopback addresses")
	ipAllowList := flag.String("ip-allow-list", "", "Comma-separated list of IPs/CIDRs allowed to reach the admin API (empty allows any, subject to --local-only)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	metricsPort := flag.Int("metrics-port", 0, "If non-zero, expose Prometheus /metrics on this port")
	dataDir := flag.String("data-dir", "", "If set, load one imposter per *.json/*.yaml file in this directory at startup")
	flowStateBackend := flag.String("flowstate-backend", "", "Default Flow-State Store backend for imposters with no _rift.flowState: memory (default) or redis")
	flowStateRedisAddr := flag.String("flowstate-redis-addr", "", "Redis address for the default flow-state backend")
	flowStateRedisDB := flag.Int("flowstate-redis-db", 0, "Redis DB index for the default flow-state backend")
	flowStateRedisPrefix := flag.String("flowstate-redis-prefix", "", "Redis key prefix for the default flow-state backend")
	postgresDSN := flag.String("postgres-dsn", "", "If set, opens a *sql.DB for \"postgres\"-type lookup behavior datasources (requires a driver registered under the \"postgres\" name in this build)")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "How long graceful shutdown waits for in-flight requests to drain")
	flag.Parse()

	var allowList []string
	if *ipAllowList != "" {
		for _, entry := range strings.Split(*ipAllowList, ",") {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				allowList = append(allowList, trimmed)
			}
		}
	}

	cfg := engine.Config{
		AdminHost:            *adminHost,
		AdminPort:            *adminPort,
		AllowInjection:       *allowInjection,
		LocalOnly:            *localOnly,
		IPAllowList:          allowList,
		LogLevel:             *logLevel,
		MetricsPort:          *metricsPort,
		DataDir:              *dataDir,
		FlowStateBackend:     *flowStateBackend,
		FlowStateRedisAddr:   *flowStateRedisAddr,
		FlowStateRedisDB:     *flowStateRedisDB,
		FlowStateRedisPrefix: *flowStateRedisPrefix,
		PostgresDSN:          *postgresDSN,
		ShutdownTimeout:      *shutdownTimeout,
	}

	e, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("riftmock: %v", err)
	}

	go func() {
		if err := e.ListenAndServe(); err != nil {
			log.Fatalf("riftmock: admin API: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("riftmock: shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("riftmock: shutdown: %v", err)
	}
	fmt.Println("riftmock: stopped.")
}
