/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logic evaluates declarative logic checks against a JSON context.
//
// A check list is a JSON array of check objects. Each key of a check object
// is a path expression and each value is either a literal, which must equal
// the query result, or an object holding exactly one comparison operator:
//
//	[
//	  {"$.context.user.id": {"$eq": {"$query": "$.snapshot.owner"}}},
//	  {"$.snapshot.votes.opt1": {"$lte": 10}}
//	]
//
// A list passes if every check passes.
package logic

import (
	"fmt"
	"sort"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/pkg/jsonpath"
)

var (
	// ErrMalformedExpression is returned when a check list is ill-formed. It is
	// a defect of the library that ships the checks, not of the client.
	ErrMalformedExpression = errors.Internal("malformed logic expression").WithCode("ErrMalformedLogicExpression")
)

// Operator is a comparison operator of a check.
type Operator string

// Below are the supported operators.
const (
	OpEq  Operator = "$eq"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpNe  Operator = "$ne"
	OpIn  Operator = "$in"
	OpNin Operator = "$nin"
)

const queryKey = "$query"

var operators = map[Operator]bool{
	OpEq: true, OpGt: true, OpGte: true, OpLt: true,
	OpLte: true, OpNe: true, OpIn: true, OpNin: true,
}

// Checker evaluates check lists using a path engine.
type Checker struct {
	engine jsonpath.Engine
}

// New creates a new Checker with the given path engine.
func New(engine jsonpath.Engine) *Checker {
	return &Checker{engine: engine}
}

// Default is a Checker backed by the built-in path engine.
var Default = New(jsonpath.Default)

// Evaluate returns true if every check in the list holds for the context. The
// whole list is compiled before evaluation starts, so a malformed check fails
// even when an earlier check already evaluates to false.
func (c *Checker) Evaluate(context any, checks any) (bool, error) {
	compiled, err := c.Compile(checks)
	if err != nil {
		return false, err
	}
	return compiled.Evaluate(context), nil
}

// Evaluate is a shortcut of Default.Evaluate.
func Evaluate(context any, checks any) (bool, error) {
	return Default.Evaluate(context, checks)
}

// operand is the right-hand side of a comparison.
type operand struct {
	literal any
	query   jsonpath.Path
}

func (o operand) resolve(context any) any {
	if o.query != nil {
		return o.query.Query(context)
	}
	return o.literal
}

type comparison struct {
	path jsonpath.Path
	op   Operator
	rhs  operand
}

// Expression is a compiled check list.
type Expression struct {
	comparisons []comparison
}

// Len returns the number of comparisons in the expression.
func (e *Expression) Len() int {
	return len(e.comparisons)
}

// Evaluate returns true if every comparison holds. It stops at the first
// comparison that does not.
func (e *Expression) Evaluate(context any) bool {
	for _, cmp := range e.comparisons {
		if !cmp.evaluate(context) {
			return false
		}
	}
	return true
}

// Results evaluates every comparison without short-circuiting and returns
// their outcomes keyed by the source path, in evaluation order.
func (e *Expression) Results(context any) []Result {
	results := make([]Result, 0, len(e.comparisons))
	for _, cmp := range e.comparisons {
		results = append(results, Result{
			Path:     cmp.path.String(),
			Operator: cmp.op,
			Left:     cmp.path.Query(context),
			Right:    cmp.rhs.resolve(context),
			Passed:   cmp.evaluate(context),
		})
	}
	return results
}

// Result is the outcome of a single comparison.
type Result struct {
	Path     string
	Operator Operator
	Left     any
	Right    any
	Passed   bool
}

// Compile validates the given check list and compiles it into an Expression.
func (c *Checker) Compile(checks any) (*Expression, error) {
	list, ok := checks.([]any)
	if !ok {
		return nil, fmt.Errorf("check list must be an array, got %T: %w", checks, ErrMalformedExpression)
	}

	expr := &Expression{}
	for i, item := range list {
		check, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("check %d must be an object, got %T: %w", i, item, ErrMalformedExpression)
		}

		keys := make([]string, 0, len(check))
		for k := range check {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			cmp, err := c.compileComparison(key, check[key])
			if err != nil {
				return nil, fmt.Errorf("check %d: %w", i, err)
			}
			expr.comparisons = append(expr.comparisons, cmp)
		}
	}

	return expr, nil
}

func (c *Checker) compileComparison(key string, value any) (comparison, error) {
	path, err := c.compilePath(key)
	if err != nil {
		return comparison{}, err
	}

	switch v := value.(type) {
	case string, float64, bool, []any:
		return comparison{path: path, op: OpEq, rhs: operand{literal: v}}, nil
	case map[string]any:
		if len(v) != 1 {
			return comparison{}, fmt.Errorf(
				"%s: operator object must have exactly one key, got %d: %w",
				key, len(v), ErrMalformedExpression,
			)
		}
		for name, arg := range v {
			op := Operator(name)
			if !operators[op] {
				return comparison{}, fmt.Errorf("%s: unknown operator %q: %w", key, name, ErrMalformedExpression)
			}
			rhs, err := c.compileOperand(key, op, arg)
			if err != nil {
				return comparison{}, err
			}
			return comparison{path: path, op: op, rhs: rhs}, nil
		}
	}

	return comparison{}, fmt.Errorf("%s: unsupported value %T: %w", key, value, ErrMalformedExpression)
}

func (c *Checker) compileOperand(key string, op Operator, arg any) (operand, error) {
	switch v := arg.(type) {
	case string, float64, bool:
		if op == OpIn || op == OpNin {
			return operand{}, fmt.Errorf("%s: %s requires an array: %w", key, op, ErrMalformedExpression)
		}
		return operand{literal: v}, nil
	case []any:
		return operand{literal: v}, nil
	case map[string]any:
		q, ok := v[queryKey].(string)
		if len(v) != 1 || !ok {
			return operand{}, fmt.Errorf(
				"%s: operand object must be {%q: <path>}: %w",
				key, queryKey, ErrMalformedExpression,
			)
		}
		path, err := c.compilePath(q)
		if err != nil {
			return operand{}, err
		}
		return operand{query: path}, nil
	}

	return operand{}, fmt.Errorf("%s: unsupported operand %T: %w", key, arg, ErrMalformedExpression)
}

func (c *Checker) compilePath(expr string) (jsonpath.Path, error) {
	path, err := c.engine.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", expr, err, ErrMalformedExpression)
	}
	return path, nil
}

func (cmp comparison) evaluate(context any) bool {
	lhs := cmp.path.Query(context)
	rhs := cmp.rhs.resolve(context)

	switch cmp.op {
	case OpEq:
		return equals(lhs, rhs)
	case OpNe:
		return !equals(lhs, rhs)
	case OpGt:
		c, ok := compare(lhs, rhs)
		return ok && c > 0
	case OpGte:
		c, ok := compare(lhs, rhs)
		return ok && c >= 0
	case OpLt:
		c, ok := compare(lhs, rhs)
		return ok && c < 0
	case OpLte:
		c, ok := compare(lhs, rhs)
		return ok && c <= 0
	case OpIn:
		set, ok := rhs.([]any)
		if !ok {
			return false
		}
		return containsAll(set, lhs)
	case OpNin:
		set, ok := rhs.([]any)
		if !ok {
			return false
		}
		return containsNone(set, lhs)
	}

	return false
}
