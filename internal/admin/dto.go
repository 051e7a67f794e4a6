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

// Package admin implements the admin HTTP router: imposter/stub CRUD, the
// replayable export, saved-request management, config export/import, and
// the data-plane request handler wired to a single imposter's listener.
// Wire shapes here follow the Mountebank REST contract plus the `_rift`
// extension namespace, grounded on senseyeio-mbgo's dto.go field names and
// getmockd-mockd's admin handler conventions.
package admin

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/riftlabs/riftmock/internal/engine/errs"
	"github.com/riftlabs/riftmock/internal/predicate"
	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/registry"
	"github.com/riftlabs/riftmock/internal/stub"
	"github.com/riftlabs/riftmock/internal/value"
)

// ImposterDTO is the wire shape of one imposter, input and output.
type ImposterDTO struct {
	Port            int              `json:"port,omitempty"`
	Host            string           `json:"host,omitempty"`
	Protocol        string           `json:"protocol,omitempty"`
	Name            string           `json:"name,omitempty"`
	ServiceName     string           `json:"serviceName,omitempty"`
	ServiceNameAlt  string           `json:"service_name,omitempty"`
	ServiceInfo     string           `json:"serviceInfo,omitempty"`
	ServiceInfoAlt  string           `json:"service_info,omitempty"`
	RecordRequests  bool             `json:"recordRequests,omitempty"`
	RecordMatches   bool             `json:"recordMatches,omitempty"`
	AllowCORS       bool             `json:"allowCORS,omitempty"`
	Key             string           `json:"key,omitempty"`
	Cert            string           `json:"cert,omitempty"`
	CA              string           `json:"ca,omitempty"`
	MutualAuth      bool             `json:"mutualAuth,omitempty"`
	DefaultResponse *ResponseBodyDTO `json:"defaultResponse,omitempty"`
	Stubs           []StubDTO        `json:"stubs,omitempty"`
	Rift            *RiftImposterDTO `json:"_rift,omitempty"`

	NumberOfRequests int64         `json:"numberOfRequests,omitempty"`
	Requests         []RequestDTO  `json:"requests,omitempty"`
	State            string        `json:"state,omitempty"`
}

// RiftImposterDTO is the `_rift` extension object at imposter scope.
type RiftImposterDTO struct {
	FlowState *FlowStateConfigDTO `json:"flowState,omitempty"`
	Warnings  []WarningDTO        `json:"warnings,omitempty"`
}

// FlowStateConfigDTO selects and configures the per-imposter Flow-State
// Store backend.
type FlowStateConfigDTO struct {
	Backend    string           `json:"backend,omitempty"`
	TTLSeconds int              `json:"ttlSeconds,omitempty"`
	Redis      *RedisConfigDTO  `json:"redis,omitempty"`
}

type RedisConfigDTO struct {
	URL       string `json:"url,omitempty"`
	PoolSize  int    `json:"poolSize,omitempty"`
	KeyPrefix string `json:"keyPrefix,omitempty"`
}

// WarningDTO is one Analyzer finding, surfaced read-only.
type WarningDTO struct {
	StubIndex int    `json:"stubIndex"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
}

// RequestDTO is a saved request, surfaced read-only on the export/list views.
type RequestDTO struct {
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	Query       map[string]interface{} `json:"query,omitempty"`
	Headers     map[string]string      `json:"headers,omitempty"`
	Body        interface{}            `json:"body,omitempty"`
	RequestFrom string                 `json:"requestFrom,omitempty"`
	Timestamp   string                 `json:"timestamp,omitempty"`
}

// StubDTO is one stub's wire shape.
type StubDTO struct {
	ID           string            `json:"id,omitempty"`
	ScenarioName string            `json:"scenarioName,omitempty"`
	Predicates   []json.RawMessage `json:"predicates,omitempty"`
	Responses    []ResponseDTO     `json:"responses,omitempty"`
}

// ResponseDTO is one response cycle entry. Exactly one of Is/Proxy/Inject/
// Fault should be set; Behaviors accepts either the object form or the
// array-of-singleton-objects form Mountebank also allows.
type ResponseDTO struct {
	Is     *ResponseBodyDTO `json:"is,omitempty"`
	Proxy  *ProxyDTO        `json:"proxy,omitempty"`
	Inject *string          `json:"inject,omitempty"`
	Fault  *string          `json:"fault,omitempty"`

	Behaviors json.RawMessage `json:"_behaviors,omitempty"`
	BehaviorsAlt json.RawMessage `json:"behaviors,omitempty"`

	Rift   *RiftResponseDTO `json:"_rift,omitempty"`
	Repeat int              `json:"repeat,omitempty"`
}

// ResponseBodyDTO is the `is`/`defaultResponse` body shape.
type ResponseBodyDTO struct {
	StatusCode json.RawMessage        `json:"statusCode,omitempty"`
	Headers    map[string]interface{} `json:"headers,omitempty"`
	Body       interface{}            `json:"body,omitempty"`
	Mode       string                 `json:"_mode,omitempty"`
}

// ProxyDTO configures a proxy response.
type ProxyDTO struct {
	To                  string                    `json:"to"`
	Mode                string                    `json:"mode,omitempty"`
	PredicateGenerators []PredicateGeneratorDTO   `json:"predicateGenerators,omitempty"`
	DisableVerification bool                      `json:"disableVerification,omitempty"`
	InjectHeaders       map[string]string         `json:"injectHeaders,omitempty"`
	PathRewrite         *PathRewriteDTO           `json:"pathRewrite,omitempty"`
}

type PathRewriteDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PredicateGeneratorDTO synthesizes a predicate from the live request at
// proxy-record time.
type PredicateGeneratorDTO struct {
	Matches           map[string]bool `json:"matches"`
	CaseSensitive     bool            `json:"caseSensitive,omitempty"`
	Except            string          `json:"except,omitempty"`
	JSONPath          string          `json:"jsonpath,omitempty"`
	XPath             string          `json:"xpath,omitempty"`
	PredicateOperator string          `json:"predicateOperator,omitempty"`
}

// RiftResponseDTO is the `_rift` extension object at response scope.
type RiftResponseDTO struct {
	Fault  *RiftFaultDTO  `json:"fault,omitempty"`
	Script *RiftScriptDTO `json:"script,omitempty"`
}

type RiftFaultDTO struct {
	Latency *LatencyDTO `json:"latency,omitempty"`
	Error   *ErrorDTO   `json:"error,omitempty"`
	TCP     *TCPDTO     `json:"tcp,omitempty"`
}

type LatencyDTO struct {
	Probability float64 `json:"probability,omitempty"`
	Ms          int     `json:"ms,omitempty"`
	MinMs       int     `json:"minMs,omitempty"`
	MaxMs       int     `json:"maxMs,omitempty"`
}

type ErrorDTO struct {
	Probability float64           `json:"probability,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        interface{}       `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

type TCPDTO struct {
	Probability float64 `json:"probability,omitempty"`
	Kind        string  `json:"kind,omitempty"`
}

type RiftScriptDTO struct {
	Engine string `json:"engine"`
	Code   string `json:"code"`
}

// targetFieldNames maps wire field names to predicate.Target constants.
var targetFieldNames = map[string]predicate.Target{
	"method":      predicate.TargetMethod,
	"path":        predicate.TargetPath,
	"query":       predicate.TargetQuery,
	"form":        predicate.TargetForm,
	"headers":     predicate.TargetHeaders,
	"body":        predicate.TargetBody,
	"ip":          predicate.TargetIP,
	"requestFrom": predicate.TargetIP,
	"pathParams":  predicate.TargetPathParams,
}

var leafOperators = map[string]bool{
	"equals": true, "deepEquals": true, "contains": true,
	"startsWith": true, "endsWith": true, "matches": true, "exists": true,
}

// decodePredicate parses one predicate wire object into a predicate.Node
// tree, per spec §4.4/§6's predicate object grammar.
func decodePredicate(raw json.RawMessage) (predicate.Node, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return predicate.Node{}, errs.WrapValidation("invalid predicate object", err)
	}

	if rawChildren, ok := m["and"]; ok {
		return decodeCompound("and", rawChildren)
	}
	if rawChildren, ok := m["or"]; ok {
		return decodeCompound("or", rawChildren)
	}
	if rawChild, ok := m["not"]; ok {
		child, err := decodePredicate(rawChild)
		if err != nil {
			return predicate.Node{}, err
		}
		return predicate.Node{Operator: "not", Children: []predicate.Node{child}}, nil
	}
	if rawScript, ok := m["inject"]; ok {
		var code string
		if err := json.Unmarshal(rawScript, &code); err != nil {
			return predicate.Node{}, errs.WrapValidation("inject predicate must be a script string", err)
		}
		engine := "javascript"
		if rawEngine, ok := m["engine"]; ok {
			json.Unmarshal(rawEngine, &engine)
		}
		return predicate.Node{Operator: "inject", Script: code, Engine: engine}, nil
	}

	modifiers := decodeModifiers(m)

	for opName := range leafOperators {
		rawFields, ok := m[opName]
		if !ok {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rawFields, &fields); err != nil {
			return predicate.Node{}, errs.WrapValidation(fmt.Sprintf("%s predicate must be an object of target fields", opName), err)
		}
		var leaves []predicate.Node
		for fieldName, rawVal := range fields {
			target, ok := targetFieldNames[fieldName]
			if !ok {
				return predicate.Node{}, errs.NewValidationError(fmt.Sprintf("unknown predicate target field %q", fieldName))
			}
			expected, err := value.Parse(rawVal)
			if err != nil {
				return predicate.Node{}, errs.WrapValidation("invalid predicate operand", err)
			}
			leaf := predicate.Node{Operator: opName, Target: target, Expected: expected}
			applyModifiers(&leaf, modifiers)
			leaves = append(leaves, leaf)
		}
		if len(leaves) == 0 {
			return predicate.Node{}, errs.NewValidationError(fmt.Sprintf("%s predicate names no target fields", opName))
		}
		if len(leaves) == 1 {
			return leaves[0], nil
		}
		return predicate.Node{Operator: "and", Children: leaves}, nil
	}

	return predicate.Node{}, errs.NewValidationError("predicate object names no recognised operator")
}

func decodeCompound(op string, raw json.RawMessage) (predicate.Node, error) {
	var rawChildren []json.RawMessage
	if err := json.Unmarshal(raw, &rawChildren); err != nil {
		return predicate.Node{}, errs.WrapValidation(fmt.Sprintf("%s predicate must be an array", op), err)
	}
	children := make([]predicate.Node, 0, len(rawChildren))
	for _, rc := range rawChildren {
		c, err := decodePredicate(rc)
		if err != nil {
			return predicate.Node{}, err
		}
		children = append(children, c)
	}
	return predicate.Node{Operator: op, Children: children}, nil
}

type predicateModifiers struct {
	caseSensitive    bool
	keyCaseSensitive bool
	except           string
	jsonpath         string
	xpath            string
}

func decodeModifiers(m map[string]json.RawMessage) predicateModifiers {
	var mod predicateModifiers
	if raw, ok := m["caseSensitive"]; ok {
		json.Unmarshal(raw, &mod.caseSensitive)
	}
	if raw, ok := m["keyCaseSensitive"]; ok {
		json.Unmarshal(raw, &mod.keyCaseSensitive)
	}
	if raw, ok := m["except"]; ok {
		json.Unmarshal(raw, &mod.except)
	}
	if raw, ok := m["jsonpath"]; ok {
		json.Unmarshal(raw, &mod.jsonpath)
	}
	if raw, ok := m["xpath"]; ok {
		json.Unmarshal(raw, &mod.xpath)
	}
	return mod
}

func applyModifiers(n *predicate.Node, mod predicateModifiers) {
	n.CaseSensitive = mod.caseSensitive
	n.KeyCaseSensitive = mod.keyCaseSensitive
	n.Except = mod.except
	n.JSONPath = mod.jsonpath
	n.XPath = mod.xpath
}

// decodeStatusCode accepts either a JSON integer or a numeric string, per
// spec §6 ("statusCode accepts integer or numeric string").
func decodeStatusCode(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt, nil
	}
	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(asStr))
		if err != nil {
			return 0, errs.WrapValidation("statusCode string does not parse to an integer", err)
		}
		return n, nil
	}
	return 0, errs.NewValidationError("statusCode must be an integer or numeric string")
}

func decodeResponseBody(dto *ResponseBodyDTO) (*record.Response, error) {
	if dto == nil {
		return nil, nil
	}
	status, err := decodeStatusCode(dto.StatusCode)
	if err != nil {
		return nil, err
	}
	if status == 0 {
		status = 200
	}
	r := &record.Response{StatusCode: status, Headers: &record.Headers{}}
	for k, v := range dto.Headers {
		if s, ok := v.(string); ok {
			r.Headers.Set(k, s)
		} else {
			r.Headers.Set(k, fmt.Sprintf("%v", v))
		}
	}
	if dto.Mode == "binary" {
		s, _ := dto.Body.(string)
		raw, err := decodeBase64(s)
		if err != nil {
			return nil, errs.WrapValidation("invalid base64 body for _mode=binary", err)
		}
		r.RawBody = raw
		r.Body = string(raw)
	} else {
		r.Body = dto.Body
	}
	return r, nil
}

func encodeResponseBody(r *record.Response) *ResponseBodyDTO {
	if r == nil {
		return nil
	}
	dto := &ResponseBodyDTO{
		StatusCode: json.RawMessage(strconv.Itoa(r.StatusCode)),
		Body:       r.Body,
	}
	if r.Headers != nil && len(r.Headers.Keys()) > 0 {
		dto.Headers = make(map[string]interface{}, len(r.Headers.Keys()))
		for _, k := range r.Headers.Keys() {
			v, _ := r.Headers.Get(k)
			dto.Headers[k] = v
		}
	}
	return dto
}

// decodeBehaviors accepts either `{copy:{...}, wait:{...}}` (object form) or
// `[{copy:{...}}, {wait:{...}}]` (array-of-singleton form), per spec §6's
// `_behaviors` synonym note.
func decodeBehaviors(raw, rawAlt json.RawMessage) ([]stub.Behavior, error) {
	if len(raw) == 0 {
		raw = rawAlt
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var asArray []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		var out []stub.Behavior
		for _, entry := range asArray {
			for kind, cfg := range entry {
				b, err := decodeOneBehavior(kind, cfg)
				if err != nil {
					return nil, err
				}
				out = append(out, b)
			}
		}
		return out, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return nil, errs.WrapValidation("_behaviors must be an object or array of singleton objects", err)
	}
	var out []stub.Behavior
	for kind, cfg := range asObject {
		b, err := decodeOneBehavior(kind, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeOneBehavior(kind string, raw json.RawMessage) (stub.Behavior, error) {
	var cfg map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return stub.Behavior{}, errs.WrapValidation(fmt.Sprintf("invalid %s behavior config", kind), err)
		}
	}
	return stub.Behavior{Kind: kind, Config: cfg}, nil
}

func decodeFaultConfig(dto *RiftFaultDTO, deterministic *string) *stub.FaultConfig {
	if dto == nil && deterministic == nil {
		return nil
	}
	cfg := &stub.FaultConfig{}
	if deterministic != nil {
		cfg.Kind = *deterministic
	}
	if dto != nil {
		if dto.Latency != nil {
			cfg.Latency = &stub.LatencyFault{
				Probability: dto.Latency.Probability,
				Ms:          dto.Latency.Ms,
				MinMs:       dto.Latency.MinMs,
				MaxMs:       dto.Latency.MaxMs,
			}
		}
		if dto.Error != nil {
			cfg.Error = &stub.ErrorFault{
				Probability: dto.Error.Probability,
				Status:      dto.Error.Status,
				Body:        dto.Error.Body,
				Headers:     dto.Error.Headers,
			}
		}
		if dto.TCP != nil {
			cfg.TCP = &stub.TCPFault{Probability: dto.TCP.Probability, Kind: dto.TCP.Kind}
		}
	}
	return cfg
}

func decodeProxy(dto *ProxyDTO) *stub.ProxyConfig {
	if dto == nil {
		return nil
	}
	cfg := &stub.ProxyConfig{
		To:                  dto.To,
		Mode:                dto.Mode,
		DisableVerification: dto.DisableVerification,
	}
	if cfg.Mode == "" {
		cfg.Mode = "proxyTransparent"
	}
	for _, gen := range dto.PredicateGenerators {
		for field, enabled := range gen.Matches {
			if !enabled {
				continue
			}
			target, ok := targetFieldNames[field]
			if !ok {
				continue
			}
			cfg.PredicateGenerators = append(cfg.PredicateGenerators, predicate.Node{
				Target:           target,
				CaseSensitive:    gen.CaseSensitive,
				Except:           gen.Except,
				JSONPath:         gen.JSONPath,
				XPath:            gen.XPath,
			})
		}
	}
	return cfg
}

// decodeResponse converts one ResponseDTO into an internal stub.Response.
func decodeResponse(dto ResponseDTO) (stub.Response, error) {
	count := 0
	if dto.Is != nil {
		count++
	}
	if dto.Proxy != nil {
		count++
	}
	if dto.Inject != nil {
		count++
	}
	if dto.Fault != nil {
		count++
	}
	if count != 1 {
		return stub.Response{}, errs.NewValidationError("response must set exactly one of is, proxy, inject, fault")
	}

	behaviors, err := decodeBehaviors(dto.Behaviors, dto.BehaviorsAlt)
	if err != nil {
		return stub.Response{}, err
	}

	r := stub.Response{Behaviors: behaviors, Repeat: dto.Repeat}
	if dto.Rift != nil && dto.Rift.Script != nil {
		r.Script = dto.Rift.Script.Code
		r.Engine = dto.Rift.Script.Engine
	}

	var riftFault *RiftFaultDTO
	if dto.Rift != nil {
		riftFault = dto.Rift.Fault
	}
	r.Fault = decodeFaultConfig(riftFault, dto.Fault)

	switch {
	case dto.Is != nil:
		r.Kind = stub.ResponseIs
		body, err := decodeResponseBody(dto.Is)
		if err != nil {
			return stub.Response{}, err
		}
		r.Is = body
	case dto.Proxy != nil:
		r.Kind = stub.ResponseProxy
		r.Proxy = decodeProxy(dto.Proxy)
	case dto.Inject != nil:
		r.Kind = stub.ResponseInject
		r.Script = *dto.Inject
		if r.Engine == "" {
			r.Engine = "javascript"
		}
	case dto.Fault != nil:
		r.Kind = stub.ResponseIs
		r.Is = &record.Response{StatusCode: 200, Headers: &record.Headers{}}
	}
	return r, nil
}

func encodeResponse(r stub.Response) ResponseDTO {
	dto := ResponseDTO{Repeat: r.Repeat}
	switch r.Kind {
	case stub.ResponseIs:
		dto.Is = encodeResponseBody(r.Is)
	case stub.ResponseProxy:
		if r.Proxy != nil {
			dto.Proxy = &ProxyDTO{To: r.Proxy.To, Mode: r.Proxy.Mode, DisableVerification: r.Proxy.DisableVerification}
		}
	case stub.ResponseInject:
		code := r.Script
		dto.Inject = &code
	}
	if r.Fault != nil && r.Fault.Kind != "" {
		dto.Fault = &r.Fault.Kind
	}
	return dto
}

// decodeStub converts one StubDTO into an internal *stub.Stub.
func decodeStub(dto StubDTO) (*stub.Stub, error) {
	preds := make([]predicate.Node, 0, len(dto.Predicates))
	for _, raw := range dto.Predicates {
		n, err := decodePredicate(raw)
		if err != nil {
			return nil, err
		}
		preds = append(preds, n)
	}
	responses := make([]stub.Response, 0, len(dto.Responses))
	for _, rdto := range dto.Responses {
		r, err := decodeResponse(rdto)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return stub.NewStub(dto.ID, preds, responses), nil
}

// decodeImposter converts an ImposterDTO into an internal *registry.Imposter
// (not yet registered or bound). Port defaulting/allocation is the caller's
// responsibility.
func decodeImposter(dto ImposterDTO) (*registry.Imposter, []*stub.Stub, error) {
	protocol := dto.Protocol
	if protocol == "" {
		protocol = "http"
	}
	if protocol != "http" && protocol != "https" {
		return nil, nil, errs.NewValidationError(fmt.Sprintf("invalid protocol %q", protocol))
	}
	if dto.Port < 0 || dto.Port > 65535 {
		return nil, nil, errs.NewValidationError(fmt.Sprintf("port %d out of range 0..65535", dto.Port))
	}

	imp := registry.NewImposter(dto.Port, protocol, dto.Name)
	imp.Host = dto.Host
	imp.RecordRequests = dto.RecordRequests
	imp.RecordMatches = dto.RecordMatches
	imp.AllowCORS = dto.AllowCORS
	imp.Key = dto.Key
	imp.Cert = dto.Cert
	imp.CACert = dto.CA
	imp.MutualAuth = dto.MutualAuth
	imp.ServiceName = firstNonEmpty(dto.ServiceName, dto.ServiceNameAlt)
	imp.ServiceInfo = firstNonEmpty(dto.ServiceInfo, dto.ServiceInfoAlt)

	if dto.Rift != nil && dto.Rift.FlowState != nil {
		imp.FlowStateBackend = dto.Rift.FlowState.Backend
	}

	def, err := decodeResponseBody(dto.DefaultResponse)
	if err != nil {
		return nil, nil, err
	}
	imp.DefaultResponse = def

	stubs := make([]*stub.Stub, 0, len(dto.Stubs))
	for _, sdto := range dto.Stubs {
		s, err := decodeStub(sdto)
		if err != nil {
			return nil, nil, err
		}
		stubs = append(stubs, s)
	}
	return imp, stubs, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// encodePredicate renders a predicate.Node back to its wire object, the
// inverse of decodePredicate. Used by GET /imposters and the config export.
func encodePredicate(n predicate.Node) json.RawMessage {
	var obj map[string]interface{}
	switch n.Operator {
	case "and", "or":
		children := make([]json.RawMessage, len(n.Children))
		for i, c := range n.Children {
			children[i] = encodePredicate(c)
		}
		raw, _ := json.Marshal(children)
		obj = map[string]interface{}{n.Operator: json.RawMessage(raw)}
	case "not":
		var child json.RawMessage
		if len(n.Children) == 1 {
			child = encodePredicate(n.Children[0])
		}
		obj = map[string]interface{}{"not": child}
	case "inject":
		obj = map[string]interface{}{"inject": n.Script, "engine": n.Engine}
	default:
		obj = map[string]interface{}{n.Operator: map[string]interface{}{string(n.Target): n.Expected}}
		if n.CaseSensitive {
			obj["caseSensitive"] = true
		}
		if n.KeyCaseSensitive {
			obj["keyCaseSensitive"] = true
		}
		if n.Except != "" {
			obj["except"] = n.Except
		}
		if n.JSONPath != "" {
			obj["jsonpath"] = n.JSONPath
		}
		if n.XPath != "" {
			obj["xpath"] = n.XPath
		}
	}
	raw, _ := json.Marshal(obj)
	return raw
}

// encodeStub renders an internal *stub.Stub back to its wire shape.
func encodeStub(s *stub.Stub) StubDTO {
	dto := StubDTO{ID: s.ID}
	for _, p := range s.Predicates {
		dto.Predicates = append(dto.Predicates, encodePredicate(p))
	}
	for _, r := range s.Responses {
		dto.Responses = append(dto.Responses, encodeResponse(r))
	}
	return dto
}

// encodeImposter renders an internal *registry.Imposter (plus its current
// stub list) back to the wire ImposterDTO, per spec §6's GET /imposters/:port
// shape. replayable omits the certificate, CA, numberOfRequests and the
// recorded requests for config export reuse (stub response bodies are kept);
// removeProxies additionally drops proxy-generated stubs so only
// admin-declared stubs survive.
func encodeImposter(imp *registry.Imposter, stubs []*stub.Stub, replayable, removeProxies bool) ImposterDTO {
	dto := ImposterDTO{
		Port:            imp.Port,
		Host:            imp.Host,
		Protocol:        imp.Protocol,
		Name:            imp.Name,
		ServiceName:     imp.ServiceName,
		ServiceInfo:     imp.ServiceInfo,
		RecordRequests:  imp.RecordRequests,
		RecordMatches:   imp.RecordMatches,
		AllowCORS:       imp.AllowCORS,
		MutualAuth:      imp.MutualAuth,
		DefaultResponse: encodeResponseBody(imp.DefaultResponse),
		State:           imp.State().String(),
	}
	if !replayable {
		dto.Cert = imp.Cert
		dto.CA = imp.CACert
		dto.NumberOfRequests = imp.RequestCount()
		for _, req := range imp.SavedRequests() {
			dto.Requests = append(dto.Requests, encodeRequest(req))
		}
	}

	for _, s := range stubs {
		if removeProxies && s.Generated {
			continue
		}
		dto.Stubs = append(dto.Stubs, encodeStub(s))
	}

	if warnings := imp.Warnings(); len(warnings) > 0 || imp.FlowStateBackend != "" {
		rift := &RiftImposterDTO{}
		if imp.FlowStateBackend != "" {
			rift.FlowState = &FlowStateConfigDTO{Backend: imp.FlowStateBackend}
		}
		for _, w := range warnings {
			rift.Warnings = append(rift.Warnings, WarningDTO{StubIndex: w.StubIndex, Kind: w.Kind, Detail: w.Detail})
		}
		dto.Rift = rift
	}

	return dto
}

func encodeRequest(r *record.Request) RequestDTO {
	dto := RequestDTO{
		Method: r.Method,
		Path:   r.Path,
		Body:   r.Body,
	}
	if len(r.Query) > 0 {
		obj := r.QueryObject()
		m := make(map[string]interface{}, len(obj))
		for k, v := range obj {
			m[k] = v
		}
		dto.Query = m
	}
	if r.Headers != nil {
		dto.Headers = make(map[string]string, len(r.Headers.Keys()))
		for _, k := range r.Headers.Keys() {
			v, _ := r.Headers.Get(k)
			dto.Headers[k] = v
		}
	}
	if r.RequestFrom != nil {
		dto.RequestFrom = r.RequestFrom.String()
	}
	dto.Timestamp = r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	return dto
}
