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

// Package predicate evaluates Mountebank-style predicate trees against a
// request record: leaf operators (equals, deepEquals, contains, startsWith,
// endsWith, matches, exists, inject) composed with and/or/not, each leaf
// optionally modified by caseSensitive, keyCaseSensitive, except, jsonpath,
// and xpath selectors. Grounded on senseyeio-mbgo's Predicate DTO shape
// (Operator + Request) for the wire-level field names.
package predicate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ohler55/ojg/jp"

	"github.com/riftlabs/riftmock/internal/record"
	"github.com/riftlabs/riftmock/internal/scripting"
	"github.com/riftlabs/riftmock/internal/value"
)

// Target names the part of the request a leaf predicate compares against.
type Target string

const (
	TargetMethod      Target = "method"
	TargetPath        Target = "path"
	TargetQuery       Target = "query"
	TargetForm        Target = "form"
	TargetHeaders     Target = "headers"
	TargetBody        Target = "body"
	TargetIP          Target = "requestFrom"
	TargetPathParams  Target = "pathParams"
)

// Node is one node of a predicate tree: either a leaf (Operator is a
// comparison operator and Target/Expected/Script are populated) or a
// compound (Operator is and/or/not and Children holds the sub-predicates).
type Node struct {
	Operator string // equals|deepEquals|contains|startsWith|endsWith|matches|exists|inject|and|or|not
	Target   Target
	Expected value.Value // comparison operand for leaf operators (except inject)
	Script   string      // script body for the inject operator
	Engine   string      // script engine name for the inject operator

	CaseSensitive    bool
	KeyCaseSensitive bool
	Except           string // regexp stripped from both sides before comparing, per Mountebank's `except`
	JSONPath         string
	XPath            string

	Children []Node
}

// Evaluator evaluates Node trees against requests, invoking the script
// runtime for inject leaves.
type Evaluator struct {
	Scripts *scripting.Registry
}

// NewEvaluator builds an Evaluator bound to the given script registry.
func NewEvaluator(scripts *scripting.Registry) *Evaluator {
	return &Evaluator{Scripts: scripts}
}

// Match reports whether req satisfies the predicate tree rooted at n.
func (e *Evaluator) Match(ctx context.Context, n Node, req *record.Request) (bool, error) {
	switch n.Operator {
	case "and":
		for _, c := range n.Children {
			ok, err := e.Match(ctx, c, req)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case "or":
		for _, c := range n.Children {
			ok, err := e.Match(ctx, c, req)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case "not":
		if len(n.Children) != 1 {
			return false, fmt.Errorf("predicate: not requires exactly one child")
		}
		ok, err := e.Match(ctx, n.Children[0], req)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case "inject":
		rt, err := e.Scripts.Get(n.Engine)
		if err != nil {
			return false, err
		}
		return rt.EvaluatePredicate(ctx, n.Script, req)
	default:
		return e.matchLeaf(n, req)
	}
}

func (e *Evaluator) matchLeaf(n Node, req *record.Request) (bool, error) {
	actual, err := fieldValue(n.Target, req)
	if err != nil {
		return false, err
	}
	if n.JSONPath != "" {
		actual, err = selectJSONPath(n.JSONPath, actual)
		if err != nil {
			return false, err
		}
	}
	if n.XPath != "" {
		actual, err = selectXPath(n.XPath, actual)
		if err != nil {
			return false, err
		}
	}

	switch n.Operator {
	case "exists":
		want, _ := n.Expected.(bool)
		return !value.IsEmpty(actual) == want, nil
	case "equals":
		return compareStructural(actual, n.Expected, n, equalsLeaf), nil
	case "deepEquals":
		return deepEqualsValue(actual, n.Expected, n), nil
	case "contains":
		return compareStructural(actual, n.Expected, n, strings.Contains), nil
	case "startsWith":
		return compareStructural(actual, n.Expected, n, strings.HasPrefix), nil
	case "endsWith":
		return compareStructural(actual, n.Expected, n, strings.HasSuffix), nil
	case "matches":
		return matchesLeaf(actual, n)
	default:
		return false, fmt.Errorf("predicate: unknown operator %q", n.Operator)
	}
}

func equalsLeaf(a, b string) bool { return a == b }

// compareStructural walks Expected against actual: when Expected is an
// object, each key is compared recursively against the same key of actual
// (matching Mountebank's nested-object predicate shape for query/headers/
// body); when Expected is a scalar, cmp is applied to their string forms.
func compareStructural(actual, expected value.Value, n Node, cmp func(a, b string) bool) bool {
	if expObj, ok := value.AsObject(expected); ok {
		actObj, ok := value.AsObject(actual)
		if !ok {
			return false
		}
		for k, ev := range expObj {
			av, ok := lookupKey(actObj, k, n.KeyCaseSensitive)
			if !ok {
				return false
			}
			if !compareStructural(av, ev, n, cmp) {
				return false
			}
		}
		return true
	}
	as, aok := value.AsString(actual)
	bs, bok := value.AsString(expected)
	if !aok || !bok {
		return false
	}
	as, bs = applyExcept(as, n.Except), applyExcept(bs, n.Except)
	if !n.CaseSensitive {
		as, bs = strings.ToLower(as), strings.ToLower(bs)
	}
	return cmp(as, bs)
}

func lookupKey(obj value.Object, key string, keyCaseSensitive bool) (value.Value, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	if keyCaseSensitive {
		return nil, false
	}
	lk := strings.ToLower(key)
	for k, v := range obj {
		if strings.ToLower(k) == lk {
			return v, true
		}
	}
	return nil, false
}

func applyExcept(s, except string) string {
	if except == "" {
		return s
	}
	re, err := regexp.Compile(except)
	if err != nil {
		return s
	}
	return re.ReplaceAllString(s, "")
}

func deepEqualsValue(actual, expected value.Value, n Node) bool {
	expObj, eIsObj := value.AsObject(expected)
	actObj, aIsObj := value.AsObject(actual)
	if eIsObj && aIsObj {
		if len(expObj) != len(actObj) {
			return false
		}
		for k, ev := range expObj {
			av, ok := lookupKey(actObj, k, n.KeyCaseSensitive)
			if !ok || !deepEqualsValue(av, ev, n) {
				return false
			}
		}
		return true
	}
	as, aok := value.AsString(actual)
	bs, bok := value.AsString(expected)
	if aok && bok {
		if !n.CaseSensitive {
			as, bs = strings.ToLower(as), strings.ToLower(bs)
		}
		return as == bs
	}
	return actual == expected
}

func matchesLeaf(actual value.Value, n Node) (bool, error) {
	pattern, ok := value.AsString(n.Expected)
	if !ok {
		return false, fmt.Errorf("predicate: matches requires a string pattern")
	}
	as, ok := value.AsString(actual)
	if !ok {
		return false, nil
	}
	flags := ""
	if !n.CaseSensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return false, fmt.Errorf("predicate: invalid matches pattern: %w", err)
	}
	return re.MatchString(as), nil
}

func fieldValue(t Target, req *record.Request) (value.Value, error) {
	switch t {
	case TargetMethod:
		return req.Method, nil
	case TargetPath:
		return req.Path, nil
	case TargetQuery:
		return req.QueryObject(), nil
	case TargetHeaders:
		if req.Headers == nil {
			return value.Object{}, nil
		}
		return req.Headers.AsObject(), nil
	case TargetBody:
		return req.Body, nil
	case TargetIP:
		if req.RequestFrom == nil {
			return "", nil
		}
		return req.RequestFrom.String(), nil
	case TargetPathParams:
		obj := make(value.Object, len(req.PathParams))
		for k, v := range req.PathParams {
			obj[k] = v
		}
		return obj, nil
	case TargetForm:
		return req.FormObject(), nil
	default:
		return nil, fmt.Errorf("predicate: unknown target %q", t)
	}
}

func selectJSONPath(path string, v value.Value) (value.Value, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("predicate: invalid jsonpath %q: %w", path, err)
	}
	res := expr.Get(v)
	if len(res) == 0 {
		return nil, nil
	}
	if len(res) == 1 {
		return res[0], nil
	}
	arr := make(value.Array, len(res))
	for i, r := range res {
		arr[i] = r
	}
	return arr, nil
}

func selectXPath(path string, v value.Value) (value.Value, error) {
	s, ok := value.AsString(v)
	if !ok {
		return nil, nil
	}
	doc, err := xmlquery.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("predicate: invalid xml body for xpath: %w", err)
	}
	expr, err := xpath.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("predicate: invalid xpath %q: %w", path, err)
	}
	node := expr.Select(xmlquery.CreateXPathNavigator(doc))
	if !node.MoveNext() {
		return nil, nil
	}
	return node.Current().Value(), nil
}
