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

// Package stub defines the Stub type, its response-cycling cursor, the
// first-match-wins Matcher, and the configuration Analyzer that flags
// duplicate/shadowed/catch-all stubs.
package stub

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/riftlabs/riftmock/internal/predicate"
	"github.com/riftlabs/riftmock/internal/record"
)

// ResponseKind tags how a stub response is produced.
type ResponseKind string

const (
	ResponseIs    ResponseKind = "is"
	ResponseProxy ResponseKind = "proxy"
	ResponseInject ResponseKind = "inject"
)

// Behavior is one entry of a response's behavior chain (copy/lookup/
// decorate/wait). The pipeline applies them in the fixed order copy, lookup,
// decorate, wait, whatever order they were declared in. repeat is not a
// behavior: the repeat count is the response-level Response.Repeat, and a
// "repeat" key inside _behaviors is not read as one.
type Behavior struct {
	Kind   string
	Config map[string]interface{}
}

// ProxyConfig configures a proxy response.
type ProxyConfig struct {
	To                  string
	Mode                string // proxyOnce|proxyAlways|proxyTransparent
	PredicateGenerators []predicate.Node
	DisableVerification bool
}

// FaultConfig configures the Rift probabilistic fault-injection extension
// (`_rift.fault`). Each of Latency/Error/TCP is independently optional and,
// when present, rolled against its own Probability on every match.
type FaultConfig struct {
	Latency *LatencyFault
	Error   *ErrorFault
	TCP     *TCPFault

	// Kind carries a Mountebank-style deterministic response-level fault
	// (the bare `"fault": "CONNECTION_RESET_BY_PEER"` form, no probability
	// roll), kept separate from the Rift TCP fault above.
	Kind string
}

// LatencyFault adds a delay before the response is written, either a fixed
// duration or a uniform random draw in [MinMs,MaxMs].
type LatencyFault struct {
	Probability float64
	Ms          int
	MinMs       int
	MaxMs       int
}

// ErrorFault short-circuits the pipeline with a synthesized error response.
type ErrorFault struct {
	Probability float64
	Status      int
	Body        interface{}
	Headers     map[string]string
}

// TCPFault enqueues a connection-level action instead of writing an HTTP
// response at all.
type TCPFault struct {
	Probability float64
	Kind        string // CONNECTION_RESET_BY_PEER|RANDOM_DATA_THEN_CLOSE
}

// Response is one entry of a stub's response cycle.
type Response struct {
	Kind      ResponseKind
	Is        *record.Response
	Proxy     *ProxyConfig
	Script    string
	Engine    string
	Fault     *FaultConfig
	Behaviors []Behavior
	Repeat    int // number of consecutive cycles this response is returned for; 0/1 means once per cycle position
}

// Stub is a single predicate-guarded response cycle within an imposter.
type Stub struct {
	ID         string
	Predicates []predicate.Node
	Responses  []Response

	// Generated marks a stub synthesized by proxyOnce/proxyAlways recording,
	// as opposed to one declared by the admin API. DELETE savedProxyResponses
	// removes only these.
	Generated bool

	cursor uint64 // atomic cycling position, advanced once per match
}

// NewStub returns a Stub with a generated id when id is empty.
func NewStub(id string, preds []predicate.Node, responses []Response) *Stub {
	if id == "" {
		id = uuid.NewString()
	}
	return &Stub{ID: id, Predicates: preds, Responses: responses}
}

// Matches reports whether req satisfies every predicate on the stub (an
// empty predicate list always matches, the Mountebank catch-all convention).
func (s *Stub) Matches(ctx context.Context, ev *predicate.Evaluator, req *record.Request) (bool, error) {
	for _, p := range s.Predicates {
		ok, err := ev.Match(ctx, p, req)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// NextResponse returns the response for the current cycle position, honoring
// each response's Repeat count, and advances the cursor. A response with
// Repeat<=1 occupies exactly one cycle position; Repeat>1 occupies that many
// consecutive positions before cycling moves past it. After the last
// position the cursor wraps to the first response, so the whole sequence
// cycles.
func (s *Stub) NextResponse() (*Response, int) {
	if len(s.Responses) == 0 {
		return nil, 0
	}
	total := 0
	for _, r := range s.Responses {
		total += repeatCount(r.Repeat)
	}
	pos := int(atomic.AddUint64(&s.cursor, 1)-1) % total

	walked := 0
	for i := range s.Responses {
		n := repeatCount(s.Responses[i].Repeat)
		if pos < walked+n {
			return &s.Responses[i], i
		}
		walked += n
	}
	last := &s.Responses[len(s.Responses)-1]
	return last, len(s.Responses) - 1
}

func repeatCount(r int) int {
	if r <= 0 {
		return 1
	}
	return r
}

// InsertBefore returns a copy of stubs with ns inserted immediately before
// the stub at index i — the recorded-proxy-stub insertion order resolved by
// the proxyOnce Open Question (see DESIGN.md): the synthesized stub goes
// ahead of the proxy stub it matched so it is preferred on replay.
func InsertBefore(stubs []*Stub, i int, ns *Stub) []*Stub {
	out := make([]*Stub, 0, len(stubs)+1)
	out = append(out, stubs[:i]...)
	out = append(out, ns)
	out = append(out, stubs[i:]...)
	return out
}

// Warning is one Analyzer finding about a stub's position relative to its
// siblings.
type Warning struct {
	StubIndex int
	Kind      string // duplicate_id|exact_duplicate|potentially_shadowed|catch_all|catch_all_not_last
	Detail    string
}

// Analyze inspects stubs in declared order and flags configuration issues:
// duplicate ids, exact predicate duplicates, stubs shadowed by an earlier
// stub whose predicates are a subset, catch-all stubs (no predicates), and a
// catch-all that isn't last (meaning later stubs are unreachable).
func Analyze(stubs []*Stub) []Warning {
	var warnings []Warning
	seenIDs := make(map[string]int)
	seenSignatures := make(map[string]int)

	for i, s := range stubs {
		if first, ok := seenIDs[s.ID]; ok {
			warnings = append(warnings, Warning{StubIndex: i, Kind: "duplicate_id", Detail: fmt.Sprintf("id also used by stub %d", first)})
		} else {
			seenIDs[s.ID] = i
		}

		sig := signature(s.Predicates)
		if first, ok := seenSignatures[sig]; ok {
			warnings = append(warnings, Warning{StubIndex: i, Kind: "exact_duplicate", Detail: fmt.Sprintf("identical predicates to stub %d", first)})
		} else {
			seenSignatures[sig] = i
		}

		if len(s.Predicates) == 0 {
			warnings = append(warnings, Warning{StubIndex: i, Kind: "catch_all"})
			if i != len(stubs)-1 {
				warnings = append(warnings, Warning{StubIndex: i, Kind: "catch_all_not_last", Detail: fmt.Sprintf("%d stub(s) after this one are unreachable", len(stubs)-1-i)})
			}
		}

		for j := 0; j < i; j++ {
			if isSubset(stubs[j].Predicates, s.Predicates) {
				warnings = append(warnings, Warning{StubIndex: i, Kind: "potentially_shadowed", Detail: fmt.Sprintf("stub %d matches a superset of requests this stub matches", j)})
				break
			}
		}
	}
	return warnings
}

func signature(preds []predicate.Node) string {
	s := ""
	for _, p := range preds {
		s += fmt.Sprintf("%s|%s|%v;", p.Operator, p.Target, p.Expected)
	}
	return s
}

// isSubset is a conservative approximation: an earlier stub with no
// predicates (catch-all) or identical predicates to s is treated as a
// superset/shadowing match. Exact subset-of-predicate-sets reasoning is left
// to the operator; this heuristic only flags the unambiguous cases.
func isSubset(earlier, later []predicate.Node) bool {
	if len(earlier) == 0 {
		return true
	}
	return signature(earlier) == signature(later)
}
