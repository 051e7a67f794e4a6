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

package stub

import "github.com/riftlabs/riftmock/internal/predicate"

// UsesInjection reports whether any stub in stubs exercises arbitrary script
// execution: an inject predicate, an inject response, a should_inject fault
// script, or a decorate behavior. The admin layer calls this to enforce
// allowInjection=false, refusing to register stubs that would otherwise run
// operator-supplied code.
func UsesInjection(stubs []*Stub) bool {
	for _, s := range stubs {
		if predicatesUseInjection(s.Predicates) {
			return true
		}
		for _, r := range s.Responses {
			if r.Kind == ResponseInject || r.Script != "" {
				return true
			}
			for _, b := range r.Behaviors {
				if b.Kind == "decorate" {
					return true
				}
			}
		}
	}
	return false
}

func predicatesUseInjection(nodes []predicate.Node) bool {
	for _, n := range nodes {
		if n.Operator == "inject" {
			return true
		}
		if predicatesUseInjection(n.Children) {
			return true
		}
	}
	return false
}
