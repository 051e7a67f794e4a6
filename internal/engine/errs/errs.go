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

// Package errs defines the small set of typed errors the admin router and
// data-plane handler use to pick an HTTP status, mirroring the plain
// error-chain style the rest of riftmock follows (no custom framework, just
// types that implement error and wrap an underlying cause with fmt.Errorf).
package errs

import "fmt"

// ValidationError covers malformed admin JSON, unknown engine names, script
// parse failures, missing required fields, out-of-range ports, and invalid
// protocols. Surfaced as 400.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// NewValidationError builds a ValidationError with no wrapped cause.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// WrapValidation wraps cause in a ValidationError with an added message.
func WrapValidation(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

// PortConflict is raised when an admin mutation asks to bind a port already
// occupied by a live imposter. Surfaced as 400 naming the occupied port.
type PortConflict struct {
	Port int
}

func (e *PortConflict) Error() string {
	return fmt.Sprintf("port conflict: %d is already bound", e.Port)
}

// NotFoundError covers an admin GET/DELETE/PUT referencing an imposter, stub,
// or stub index that does not exist. Surfaced as 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

// NewNotFoundError builds a NotFoundError naming the missing resource.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ScriptRuntimeError covers a thrown exception, a deadline exceeded, or a
// memory/recursion limit breach inside the script runtime. Data-plane
// requests see a generic 500. The X-Rift-Debug report is built before any
// script runs, so it never carries a Diagnostic.
type ScriptRuntimeError struct {
	Engine     string
	Diagnostic string
	Cause      error
}

func (e *ScriptRuntimeError) Error() string {
	return fmt.Sprintf("script runtime (%s): %s", e.Engine, e.Diagnostic)
}

func (e *ScriptRuntimeError) Unwrap() error { return e.Cause }

// UpstreamError covers a proxy connect/timeout/TLS failure; TimedOut selects
// the message. The proxy path does not construct it: Forward returns upstream
// failures as plain wrapped errors, and the data plane answers them, like any
// other pipeline error, with a generic 500 (no 502 or 504).
type UpstreamError struct {
	TimedOut bool
	Cause    error
}

func (e *UpstreamError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("upstream: deadline exceeded: %v", e.Cause)
	}
	return fmt.Sprintf("upstream: connect failed: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// FlowStateUnavailable marks a remote flow-state backend as unreachable. The
// backends do not construct it; they return plain errors. The scripts'
// flow_store bridges turn a failed get into null, drop a failed set without
// logging it, and return 0 (not 1) from a failed increment.
type FlowStateUnavailable struct {
	Cause error
}

func (e *FlowStateUnavailable) Error() string {
	return fmt.Sprintf("flow-state backend unavailable: %v", e.Cause)
}

func (e *FlowStateUnavailable) Unwrap() error { return e.Cause }
