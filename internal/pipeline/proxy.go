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
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/riftlabs/riftmock/internal/predicate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/stub"
	"github.com/riftlabs/riftmock/internal/value"
)

// ProxyClient forwards requests to an upstream origin and, for proxyOnce and
// proxyAlways modes, synthesizes a stub recording the response for replay.
// Grounded on go-tartuffe's ProxyHandler.Execute/recordProxyStub split
// between "do the HTTP round trip" and "decide what to remember".
type ProxyClient struct {
	client *http.Client
}

// NewProxyClient builds a ProxyClient with a verifying transport; Forward
// swaps in an insecure transport per-call when DisableVerification is set.
func NewProxyClient() *ProxyClient {
	return &ProxyClient{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Forward round-trips req to cfg.To and, when cfg.Mode calls for it, returns
// a synthesized stub the caller should insert into the imposter's stub list.
// proxyTransparent never synthesizes a stub; proxyOnce and proxyAlways both
// do, and the data-plane caller inserts either one ahead of the matched proxy
// stub (see stub.InsertBefore). proxyAlways does not gather responses on one
// stub: every forward yields a new synthesized stub.
func (pc *ProxyClient) Forward(ctx context.Context, cfg *stub.ProxyConfig, req *record.Request) (*record.Response, *stub.Stub, error) {
	upstreamReq, err := pc.buildUpstreamRequest(ctx, cfg, req)
	if err != nil {
		return nil, nil, err
	}

	client := pc.client
	if cfg.DisableVerification {
		client = &http.Client{
			Timeout: pc.client.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	upstreamResp, err := client.Do(upstreamReq)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: proxy to %s: %w", cfg.To, err)
	}
	defer upstreamResp.Body.Close()

	body, err := io.ReadAll(upstreamResp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: read proxy response: %w", err)
	}

	resp := &record.Response{
		StatusCode: upstreamResp.StatusCode,
		Headers:    record.NewHeaders(upstreamResp.Header),
		RawBody:    body,
	}
	if v, err := value.Parse(body); err == nil {
		resp.Body = v
	} else {
		resp.Body = string(body)
	}

	if cfg.Mode == "proxyTransparent" {
		return resp, nil, nil
	}

	generated := synthesizeStub(cfg, req, resp)
	return resp, generated, nil
}

func (pc *ProxyClient) buildUpstreamRequest(ctx context.Context, cfg *stub.ProxyConfig, req *record.Request) (*http.Request, error) {
	url := cfg.To + req.Path
	if len(req.Query) > 0 {
		url += "?" + req.Query.Encode()
	}
	upstreamReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(req.RawBody))
	if err != nil {
		return nil, fmt.Errorf("pipeline: build proxy request: %w", err)
	}
	for _, k := range req.Headers.Keys() {
		for _, v := range req.Headers.Values(k) {
			upstreamReq.Header.Add(k, v)
		}
	}
	return upstreamReq, nil
}

// synthesizeStub builds the recorded stub for proxyOnce/proxyAlways replay:
// an equals predicate per configured generator target (falling back to a
// method+path match when no generators are configured), with a single "is"
// response holding the recorded upstream reply.
func synthesizeStub(cfg *stub.ProxyConfig, req *record.Request, resp *record.Response) *stub.Stub {
	var preds []predicate.Node
	if len(cfg.PredicateGenerators) > 0 {
		for _, gen := range cfg.PredicateGenerators {
			preds = append(preds, generatorToPredicate(gen, req))
		}
	} else {
		preds = []predicate.Node{
			{Operator: "equals", Target: predicate.TargetMethod, Expected: req.Method},
			{Operator: "equals", Target: predicate.TargetPath, Expected: req.Path},
		}
	}

	return stub.NewStub("", preds, []stub.Response{
		{Kind: stub.ResponseIs, Is: resp.Clone()},
	})
}

// generatorToPredicate turns a predicate-generator template (a Node whose
// Target names the part of the request to capture) into a concrete equals
// predicate bound to req's actual value for that target.
func generatorToPredicate(gen predicate.Node, req *record.Request) predicate.Node {
	switch gen.Target {
	case predicate.TargetMethod:
		return predicate.Node{Operator: "equals", Target: predicate.TargetMethod, Expected: req.Method}
	case predicate.TargetPath:
		return predicate.Node{Operator: "equals", Target: predicate.TargetPath, Expected: req.Path}
	case predicate.TargetQuery:
		return predicate.Node{Operator: "equals", Target: predicate.TargetQuery, Expected: req.QueryObject()}
	case predicate.TargetHeaders:
		return predicate.Node{Operator: "equals", Target: predicate.TargetHeaders, Expected: req.Headers.AsObject()}
	case predicate.TargetBody:
		return predicate.Node{Operator: "equals", Target: predicate.TargetBody, Expected: req.Body}
	default:
		return predicate.Node{Operator: "equals", Target: predicate.TargetPath, Expected: req.Path}
	}
}
