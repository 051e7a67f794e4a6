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
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Bind starts imp's listener and HTTP server with handler serving requests,
// transitioning Pending -> Listening on success. Grounded on go-tartuffe's
// Manager.Start/startHTTPServer/startHTTPSServer dispatch.
func Bind(imp *Imposter, handler http.Handler) error {
	addr := fmt.Sprintf(":%d", imp.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("registry: bind port %d: %w", imp.Port, err)
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	isTLS := imp.Protocol == "https"
	if isTLS {
		tlsConfig, err := configureTLS(imp)
		if err != nil {
			ln.Close()
			return err
		}
		srv.TLSConfig = tlsConfig
	}

	imp.mu.Lock()
	imp.server = srv
	imp.listener = ln
	imp.mu.Unlock()

	if !imp.MarkListening() {
		ln.Close()
		return fmt.Errorf("registry: imposter on port %d was not Pending", imp.Port)
	}

	go func() {
		var err error
		if isTLS {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			fmt.Printf("riftmock: imposter on port %d: serve error: %v\n", imp.Port, err)
		}
	}()
	return nil
}

// Close drains and shuts down imp's HTTP server, transitioning it through
// Draining before the caller marks it Terminated.
func Close(ctx context.Context, imp *Imposter) error {
	imp.MarkDraining()

	imp.mu.RLock()
	srv := imp.server
	imp.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
