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

// Package pipeline implements the response pipeline: running the
// should_inject fault contract and the static fault rolls, rendering a
// stub's base response (is/proxy/inject), then applying the behavior chain
// in the fixed order copy, lookup, decorate, wait. A response's repeat count
// is not a behavior here; stub.NextResponse consumes it.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/scripting"
	"github.com/riftlabs/riftmock/internal/stub"
	"github.com/riftlabs/riftmock/internal/value"
)

// OutcomeKind tags how the pipeline wants the caller to finish handling a
// request: a normal response write, or a connection-level fault.
type OutcomeKind int

const (
	OutcomeRespond OutcomeKind = iota
	OutcomeFault
)

// Outcome is the final product of running a response through the pipeline.
type Outcome struct {
	Kind     OutcomeKind
	Response *record.Response
	Latency  time.Duration
	FaultKind string // set when Kind == OutcomeFault: CONNECTION_RESET_BY_PEER|RANDOM_DATA_THEN_CLOSE
}

// Pipeline renders stub responses against requests.
type Pipeline struct {
	Scripts *scripting.Registry
	Proxy   *ProxyClient

	// DB backs the "postgres" lookup datasource type, if configured.
	// Left nil to disable that lookup source, matching the teacher's
	// driver-agnostic PostgresPersister which also takes a *sql.DB it never
	// opens itself.
	DB *sql.DB

	dsMu    sync.Mutex
	dsCache map[string]Datasource
}

// NewPipeline wires a Pipeline against the given script registry.
func NewPipeline(scripts *scripting.Registry) *Pipeline {
	return &Pipeline{Scripts: scripts, Proxy: NewProxyClient(), dsCache: make(map[string]Datasource)}
}

// Execute runs resp against req for the given flow, producing an Outcome.
// flowID scopes should_inject's flow_store; the data-plane handler passes the
// X-Rift-Flow-Id request header when present, else "<port>:<client-ip>".
// Stage order follows the documented
// pipeline: script prelude and fault rolls happen before the base response
// is rendered, so either can short-circuit straight to stage 6 (emit).
func (p *Pipeline) Execute(ctx context.Context, resp *stub.Response, req *record.Request, flows flowstate.Store, flowID string) (Outcome, *stub.Stub, error) {
	var delay time.Duration

	if resp.Script != "" && resp.Kind != stub.ResponseInject {
		rt, err := p.Scripts.Get(resp.Engine)
		if err != nil {
			return Outcome{}, nil, err
		}
		result, err := rt.EvaluateShouldInject(ctx, resp.Script, req, flows, flowID)
		if err != nil {
			return Outcome{}, nil, fmt.Errorf("pipeline: should_inject: %w", err)
		}
		switch result.Kind {
		case scripting.InjectError:
			kind := result.ErrKind
			switch kind {
			case "tcp_reset":
				kind = FaultConnectionResetByPeer
			case "garbage":
				kind = FaultRandomDataThenClose
			}
			return Outcome{Kind: OutcomeFault, FaultKind: kind, Latency: delay}, nil, nil
		case scripting.InjectLatency:
			delay += result.Latency
		case scripting.InjectResponse:
			return Outcome{Kind: OutcomeRespond, Response: result.Response, Latency: delay}, nil, nil
		}
	}

	if resp.Fault != nil {
		if outcome, ok := rollStaticFault(resp.Fault, &delay); ok {
			return outcome, nil, nil
		}
	}

	base, generatedStub, err := p.renderBase(ctx, resp, req)
	if err != nil {
		return Outcome{}, nil, err
	}

	behaviors := append([]stub.Behavior(nil), resp.Behaviors...)
	rank := map[string]int{"copy": 1, "lookup": 2, "decorate": 3, "wait": 4}
	sort.SliceStable(behaviors, func(i, j int) bool { return rank[behaviors[i].Kind] < rank[behaviors[j].Kind] })
	for _, b := range behaviors {
		base, err = p.applyBehavior(ctx, b, req, base, flows, flowID)
		if err != nil {
			return Outcome{}, nil, err
		}
	}

	return Outcome{Kind: OutcomeRespond, Response: base, Latency: delay}, generatedStub, nil
}

// rollStaticFault evaluates cfg's deterministic and probabilistic fault
// triggers in declared order (Kind, then Latency, then Error, then TCP). A
// Latency hit only adds to *delay and evaluation goes on; the first of Kind,
// Error or TCP that fires is returned. ok is false when none of those fires
// and the pipeline should continue rendering the base response.
func rollStaticFault(cfg *stub.FaultConfig, delay *time.Duration) (Outcome, bool) {
	if cfg.Kind != "" {
		return Outcome{Kind: OutcomeFault, FaultKind: cfg.Kind}, true
	}
	if cfg.Latency != nil && rollProbability(cfg.Latency.Probability) {
		if cfg.Latency.Ms > 0 {
			*delay += time.Duration(cfg.Latency.Ms) * time.Millisecond
		} else if cfg.Latency.MaxMs > cfg.Latency.MinMs {
			span := cfg.Latency.MaxMs - cfg.Latency.MinMs
			*delay += time.Duration(cfg.Latency.MinMs+rand.Intn(span+1)) * time.Millisecond
		}
	}
	if cfg.Error != nil && rollProbability(cfg.Error.Probability) {
		r := &record.Response{StatusCode: cfg.Error.Status, Headers: &record.Headers{}, Body: cfg.Error.Body}
		for k, v := range cfg.Error.Headers {
			r.Headers.Set(k, v)
		}
		return Outcome{Kind: OutcomeRespond, Response: r, Latency: *delay}, true
	}
	if cfg.TCP != nil && rollProbability(cfg.TCP.Probability) {
		return Outcome{Kind: OutcomeFault, FaultKind: cfg.TCP.Kind, Latency: *delay}, true
	}
	return Outcome{}, false
}

// rollProbability reports whether a probabilistic fault with the given hit
// rate fires on this evaluation. A probability of 0 is treated as "always"
// (the common case: a deterministic fault with no explicit roll configured).
func rollProbability(p float64) bool {
	if p <= 0 {
		return true
	}
	if p >= 1 {
		return true
	}
	return rand.Float64() < p
}

// renderBase produces the un-decorated base response for resp's Kind.
func (p *Pipeline) renderBase(ctx context.Context, resp *stub.Response, req *record.Request) (*record.Response, *stub.Stub, error) {
	switch resp.Kind {
	case stub.ResponseIs:
		if resp.Is == nil {
			return &record.Response{StatusCode: 200, Headers: &record.Headers{}}, nil, nil
		}
		return resp.Is.Clone(), nil, nil

	case stub.ResponseInject:
		rt, err := p.Scripts.Get(resp.Engine)
		if err != nil {
			return nil, nil, err
		}
		v, err := rt.EvaluateResponse(ctx, resp.Script, req)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: inject response: %w", err)
		}
		return responseFromValue(v), nil, nil

	case stub.ResponseProxy:
		if resp.Proxy == nil {
			return nil, nil, fmt.Errorf("pipeline: proxy response missing configuration")
		}
		return p.Proxy.Forward(ctx, resp.Proxy, req)

	default:
		return nil, nil, fmt.Errorf("pipeline: unknown response kind %q", resp.Kind)
	}
}

func responseFromValue(v value.Value) *record.Response {
	obj, ok := value.AsObject(v)
	if !ok {
		return &record.Response{StatusCode: 200, Headers: &record.Headers{}}
	}
	r := &record.Response{StatusCode: 200, Headers: &record.Headers{}}
	if sc, ok := obj["statusCode"].(float64); ok {
		r.StatusCode = int(sc)
	}
	if hdrs, ok := value.AsObject(obj["headers"]); ok {
		for k, hv := range hdrs {
			if s, ok := value.AsString(hv); ok {
				r.Headers.Set(k, s)
			}
		}
	}
	r.Body = obj["body"]
	return r
}

// MergeWithDefault fills any zero-valued field of resp (status code 0,
// absent headers, nil body) from defaultResp — grounded on go-tartuffe's
// mergeWithDefault, a partial-fill convenience on top of the imposter's
// total-non-match default response.
func MergeWithDefault(resp, defaultResp *record.Response) *record.Response {
	if defaultResp == nil {
		return resp
	}
	merged := resp.Clone()
	if merged.StatusCode == 0 {
		merged.StatusCode = defaultResp.StatusCode
	}
	if merged.Headers == nil || len(merged.Headers.Keys()) == 0 {
		if defaultResp.Headers != nil {
			merged.Headers = defaultResp.Headers.Clone()
		}
	}
	if merged.Body == nil {
		merged.Body = defaultResp.Body
	}
	return merged
}
