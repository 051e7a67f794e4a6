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

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/riftlabs/riftmock/internal/flowstate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/stub"
	"github.com/riftlabs/riftmock/internal/value"
)

// applyBehavior dispatches one behavior-chain entry against the in-progress
// response. shellTransform is refused outright: riftmock never shells out
// to transform a response body.
func (p *Pipeline) applyBehavior(ctx context.Context, b stub.Behavior, req *record.Request, resp *record.Response, flows flowstate.Store, flowID string) (*record.Response, error) {
	switch b.Kind {
	case "copy":
		return applyCopy(b, req, resp)
	case "lookup":
		return p.applyLookup(ctx, b, req, resp)
	case "decorate":
		return p.applyDecorate(ctx, b, req, resp)
	case "wait":
		return applyWait(ctx, b, resp)
	case "shellTransform":
		return nil, fmt.Errorf("pipeline: shellTransform behavior is refused; riftmock does not execute shell commands")
	default:
		return nil, fmt.Errorf("pipeline: unknown behavior %q", b.Kind)
	}
}

// applyCopy copies the request header named by the "from" config key into
// the response header named by "into". It copies header to header only: no
// jsonpath/xpath/regex selection, and nothing is written into the body.
func applyCopy(b stub.Behavior, req *record.Request, resp *record.Response) (*record.Response, error) {
	from, _ := b.Config["from"].(string)
	into, _ := b.Config["into"].(string)
	if from == "" || into == "" {
		return nil, fmt.Errorf("pipeline: copy behavior requires from and into")
	}
	v, ok := req.Headers.Get(from)
	if !ok {
		return resp, nil
	}
	resp.Headers.Set(into, v)
	return resp, nil
}

// applyWait delays the response by a fixed duration, reading "milliseconds"
// from config.
func applyWait(ctx context.Context, b stub.Behavior, resp *record.Response) (*record.Response, error) {
	ms, _ := b.Config["milliseconds"].(float64)
	if ms <= 0 {
		return resp, nil
	}
	d := time.Duration(ms) * time.Millisecond
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return resp, nil
}

// applyDecorate runs a script against the response, letting it mutate
// headers/body/status before the pipeline emits it.
func (p *Pipeline) applyDecorate(ctx context.Context, b stub.Behavior, req *record.Request, resp *record.Response) (*record.Response, error) {
	engine, _ := b.Config["engine"].(string)
	code, _ := b.Config["code"].(string)
	if code == "" {
		return resp, nil
	}
	rt, err := p.Scripts.Get(engine)
	if err != nil {
		return nil, err
	}
	respObj := value.Object{
		"statusCode": float64(resp.StatusCode),
		"body":       resp.Body,
	}
	if resp.Headers != nil {
		respObj["headers"] = resp.Headers.AsObject()
	}
	out, err := rt.EvaluateDecorate(ctx, code, req, respObj)
	if err != nil {
		return nil, fmt.Errorf("pipeline: decorate: %w", err)
	}
	return responseFromValue(out), nil
}

// applyLookup selects a row from a configured data source (csv/json/
// postgres) by a request-derived key and stores the whole row in the
// response body under the "into" config key, mirroring Mountebank's lookup
// behavior. The "key" config selects which part of the request supplies the
// lookup value (currently a request header named by "from"); "datasource"
// describes where to look it up, built once per distinct config and cached
// for the life of the Pipeline.
func (p *Pipeline) applyLookup(ctx context.Context, b stub.Behavior, req *record.Request, resp *record.Response) (*record.Response, error) {
	source, _ := b.Config["key"].(map[string]interface{})
	from, _ := source["from"].(string)

	keyVal, ok := req.Headers.Get(from)
	if !ok {
		return resp, nil
	}

	datasource, err := p.lookupDatasource(b.Config)
	if err != nil {
		return nil, err
	}
	if datasource == nil {
		return resp, nil
	}
	row, found, err := datasource.Lookup(ctx, keyVal)
	if err != nil {
		return nil, fmt.Errorf("pipeline: lookup: %w", err)
	}
	if !found {
		return resp, nil
	}

	into, _ := b.Config["into"].(string)
	if into == "" {
		return resp, nil
	}
	bodyObj, ok := value.AsObject(resp.Body)
	if !ok {
		bodyObj = value.Object{}
	}
	bodyObj[into] = row
	resp.Body = bodyObj
	return resp, nil
}

// lookupDatasource resolves a behavior's "datasource" config to a Datasource,
// either directly (tests may pre-build one) or by constructing and caching
// one keyed by its config shape.
func (p *Pipeline) lookupDatasource(cfg map[string]interface{}) (Datasource, error) {
	raw, ok := cfg["datasource"]
	if !ok {
		return nil, nil
	}
	if ds, ok := raw.(Datasource); ok {
		return ds, nil
	}
	dsCfg, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("pipeline: lookup: datasource must be an object")
	}

	key := fmt.Sprintf("%v|%v|%v|%v", dsCfg["type"], dsCfg["path"], dsCfg["table"], dsCfg["keyColumn"])
	p.dsMu.Lock()
	defer p.dsMu.Unlock()
	if cached, ok := p.dsCache[key]; ok {
		return cached, nil
	}
	ds, err := buildDatasource(dsCfg, p.DB)
	if err != nil {
		return nil, fmt.Errorf("pipeline: lookup: %w", err)
	}
	p.dsCache[key] = ds
	return ds, nil
}

// Datasource is the contract a lookup behavior's backing store implements:
// CSV, JSON-file, and Postgres sources all satisfy it.
type Datasource interface {
	Lookup(ctx context.Context, key string) (value.Object, bool, error)
}
