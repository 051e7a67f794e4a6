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
	"fmt"
	"net"
	"sync"
)

// Registry is the single-writer/many-reader collection of imposters, keyed
// by port. Grounded on the teacher's core/store.go Store: a sync.Map holding
// pointers plus a fast-path Load before the allocate-on-miss branch.
type Registry struct {
	imposters sync.Map // port -> *Imposter
	portMu    sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the imposter bound to port, if any.
func (r *Registry) Get(port int) (*Imposter, bool) {
	v, ok := r.imposters.Load(port)
	if !ok {
		return nil, false
	}
	return v.(*Imposter), true
}

// Create registers imp at its port, failing with an error if the port is
// already bound to a non-terminated imposter — the admin-facing
// PortConflict case.
func (r *Registry) Create(imp *Imposter) error {
	r.portMu.Lock()
	defer r.portMu.Unlock()
	if existing, ok := r.Get(imp.Port); ok && existing.State() != StateTerminated {
		return fmt.Errorf("registry: port %d already bound", imp.Port)
	}
	r.imposters.Store(imp.Port, imp)
	return nil
}

// Delete removes the imposter at port from the registry. Callers are
// expected to have already driven it through MarkDraining/MarkTerminated
// and closed its listener.
func (r *Registry) Delete(port int) {
	r.imposters.Delete(port)
}

// ForEach visits every registered imposter. f must not block for long, since
// it runs under the sync.Map's lock-free iteration (which tolerates
// concurrent mutation but not a slow callback holding up other goroutines).
func (r *Registry) ForEach(f func(*Imposter)) {
	r.imposters.Range(func(_, v interface{}) bool {
		f(v.(*Imposter))
		return true
	})
}

// Ports returns every currently registered port.
func (r *Registry) Ports() []int {
	var out []int
	r.ForEach(func(imp *Imposter) { out = append(out, imp.Port) })
	return out
}

// AllocateEphemeralPort scans the given range for a free TCP port, binding
// and immediately releasing a listener to confirm availability — used when
// an imposter is created with port=0.
func AllocateEphemeralPort(low, high int) (int, error) {
	for p := low; p <= high; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err != nil {
			continue
		}
		l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("registry: no free port in range %d-%d", low, high)
}
