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

package admin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/riftlabs/riftmock/internal/engine/errs"
	"github.com/riftlabs/riftmock/internal/registry"
	"github.com/riftlabs/riftmock/internal/stub"
)

// LoadDataDir loads every *.json/*.yaml/*.yml file in dir as a single
// imposter (one imposter per file, per spec.md's --datadir contract) and
// registers the union as the initial imposter set. Files are processed in
// sorted-name order for deterministic port allocation; a malformed file
// aborts the whole load rather than starting with a partial registry.
func (a *API) LoadDataDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("admin: read datadir %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".json" || ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("admin: read %q: %w", path, err)
		}

		var dto ImposterDTO
		isYAML := strings.ToLower(filepath.Ext(name)) != ".json"
		if isYAML {
			err = yaml.Unmarshal(raw, &dto)
		} else {
			err = json.Unmarshal(raw, &dto)
		}
		if err != nil {
			return fmt.Errorf("admin: decode %q: %w", path, err)
		}

		if err := a.createImposterFromDTO(dto); err != nil {
			return fmt.Errorf("admin: register imposter from %q: %w", path, err)
		}
		a.Log.Infof("loaded imposter on port %d from %s", dto.Port, path)
	}
	return nil
}

// createImposterFromDTO runs the same decode-allocate-bind sequence
// handleCreateImposter does over HTTP, reused here so datadir loading and
// the admin API stay in lockstep.
func (a *API) createImposterFromDTO(dto ImposterDTO) error {
	imp, stubs, err := decodeImposter(dto)
	if err != nil {
		return err
	}
	if err := a.checkInjectionAllowed(stubs); err != nil {
		return err
	}

	if imp.Port == 0 {
		port, err := registry.AllocateEphemeralPort(a.portRangeLow, a.portRangeHigh)
		if err != nil {
			return err
		}
		imp.Port = port
	}

	if err := a.Registry.Create(imp); err != nil {
		return &errs.PortConflict{Port: imp.Port}
	}

	imp.SetStubs(stubs)
	imp.SetWarnings(stub.Analyze(stubs))

	var flowCfg *FlowStateConfigDTO
	if dto.Rift != nil {
		flowCfg = dto.Rift.FlowState
	}
	flows := a.bindFlowState(imp.Port, flowCfg)

	handler := NewDataPlaneHandler(imp, a.evaluator(), a.Pipeline, flows, a.Log)
	if err := registry.Bind(imp, handler); err != nil {
		a.Registry.Delete(imp.Port)
		a.unbindFlowState(imp.Port)
		return err
	}

	a.refreshImposterGauge()
	return nil
}
