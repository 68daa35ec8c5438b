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

// Package jsonpath provides a minimal JSONPath engine used to query JSON
// values decoded with encoding/json (maps, slices, float64, string, bool and
// nil).
//
// The supported grammar is the subset needed by logic checks:
//
//	$              the root value
//	.name ['name'] a member of an object
//	[2] [-1]       an element of an array
//	.* [*]         every member of an object or every element of an array
//	..name ..*     recursive descent
//	~              (trailing) the property names of the matches instead of
//	               their values
//
// A path without wildcards or recursive descent is definite: it selects at
// most one value.
package jsonpath

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPath is returned when the expression cannot be parsed.
	ErrInvalidPath = errors.New("invalid path expression")
)

// Path is a compiled path expression.
type Path interface {
	// Query evaluates the path against the given document. A definite path
	// returns the selected value or nil. An indefinite path returns a []any
	// of all matches, which is empty when nothing matches.
	Query(doc any) any

	// Definite reports whether the path selects at most one value.
	Definite() bool

	// String returns the source expression.
	String() string
}

// Engine compiles path expressions. It allows a full JSONPath implementation
// to be substituted for the built-in one.
type Engine interface {
	Compile(expr string) (Path, error)
}

// Default is the built-in engine.
var Default Engine = engine{}

type engine struct{}

// Compile parses the given expression.
func (engine) Compile(expr string) (Path, error) {
	return Compile(expr)
}

type selectorKind int

const (
	selectMember selectorKind = iota
	selectIndex
	selectWildcard
)

type segment struct {
	kind      selectorKind
	name      string
	index     int
	recursive bool
}

type path struct {
	expr     string
	segments []segment
	names    bool
	definite bool
}

// Compile parses the given expression into a Path.
func Compile(expr string) (Path, error) {
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("%q does not start with $: %w", expr, ErrInvalidPath)
	}

	p := &path{expr: expr, definite: true}
	s := expr[1:]
	if strings.HasSuffix(s, "~") {
		p.names = true
		s = s[:len(s)-1]
	}

	for len(s) > 0 {
		recursive := false
		switch {
		case strings.HasPrefix(s, ".."):
			recursive = true
			s = s[2:]
			if strings.HasPrefix(s, "[") {
				break
			}
			seg, rest, err := parseDotted(s)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", expr, err)
			}
			seg.recursive = true
			p.segments = append(p.segments, seg)
			s = rest
			p.definite = false
			continue
		case strings.HasPrefix(s, "."):
			seg, rest, err := parseDotted(s[1:])
			if err != nil {
				return nil, fmt.Errorf("%q: %w", expr, err)
			}
			p.segments = append(p.segments, seg)
			if seg.kind == selectWildcard {
				p.definite = false
			}
			s = rest
			continue
		}

		if !strings.HasPrefix(s, "[") {
			return nil, fmt.Errorf("%q: unexpected %q: %w", expr, s, ErrInvalidPath)
		}
		seg, rest, err := parseBracket(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", expr, err)
		}
		seg.recursive = recursive
		if recursive || seg.kind == selectWildcard {
			p.definite = false
		}
		p.segments = append(p.segments, seg)
		s = rest
	}

	return p, nil
}

// MustCompile is like Compile but panics if the expression is invalid.
func MustCompile(expr string) Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func parseDotted(s string) (segment, string, error) {
	end := strings.IndexAny(s, ".[")
	if end == -1 {
		end = len(s)
	}
	name := s[:end]
	if name == "" {
		return segment{}, "", fmt.Errorf("empty member name: %w", ErrInvalidPath)
	}
	if name == "*" {
		return segment{kind: selectWildcard}, s[end:], nil
	}
	return segment{kind: selectMember, name: name}, s[end:], nil
}

func parseBracket(s string) (segment, string, error) {
	inner := s[1:]
	if len(inner) > 0 && (inner[0] == '\'' || inner[0] == '"') {
		quote := inner[0]
		end := strings.IndexByte(inner[1:], quote)
		if end == -1 || len(inner) < end+3 || inner[end+2] != ']' {
			return segment{}, "", fmt.Errorf("unterminated quoted member: %w", ErrInvalidPath)
		}
		return segment{kind: selectMember, name: inner[1 : end+1]}, inner[end+3:], nil
	}

	end := strings.IndexByte(inner, ']')
	if end == -1 {
		return segment{}, "", fmt.Errorf("unterminated bracket: %w", ErrInvalidPath)
	}
	token := strings.TrimSpace(inner[:end])
	rest := inner[end+1:]
	if token == "*" {
		return segment{kind: selectWildcard}, rest, nil
	}

	idx, err := strconv.Atoi(token)
	if err != nil {
		return segment{}, "", fmt.Errorf("invalid index %q: %w", token, ErrInvalidPath)
	}
	return segment{kind: selectIndex, index: idx}, rest, nil
}

// node is a matched value together with the property name it was reached by.
type node struct {
	value any
	name  any
}

// Query evaluates the path against the given document.
func (p *path) Query(doc any) any {
	nodes := []node{{value: doc}}
	for _, seg := range p.segments {
		var next []node
		for _, n := range nodes {
			if seg.recursive {
				for _, d := range descendants(n) {
					next = append(next, seg.apply(d)...)
				}
				continue
			}
			next = append(next, seg.apply(n)...)
		}
		nodes = next
	}

	results := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if p.names {
			results = append(results, n.name)
			continue
		}
		results = append(results, n.value)
	}

	if p.definite {
		if len(results) == 0 {
			return nil
		}
		return results[0]
	}
	return results
}

// Definite reports whether the path selects at most one value.
func (p *path) Definite() bool {
	return p.definite
}

// String returns the source expression.
func (p *path) String() string {
	return p.expr
}

func (s segment) apply(n node) []node {
	switch v := n.value.(type) {
	case map[string]any:
		switch s.kind {
		case selectMember:
			if child, ok := v[s.name]; ok {
				return []node{{value: child, name: s.name}}
			}
		case selectWildcard:
			return members(v)
		}
	case []any:
		switch s.kind {
		case selectIndex:
			idx := s.index
			if idx < 0 {
				idx += len(v)
			}
			if 0 <= idx && idx < len(v) {
				return []node{{value: v[idx], name: float64(idx)}}
			}
		case selectWildcard:
			return elements(v)
		}
	}
	return nil
}

// members returns the members of an object ordered by key so that results are
// deterministic.
func members(obj map[string]any) []node {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]node, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, node{value: obj[k], name: k})
	}
	return nodes
}

func elements(arr []any) []node {
	nodes := make([]node, 0, len(arr))
	for i, v := range arr {
		nodes = append(nodes, node{value: v, name: float64(i)})
	}
	return nodes
}

// descendants returns the given node and all nodes below it in pre-order.
func descendants(n node) []node {
	result := []node{n}
	var children []node
	switch v := n.value.(type) {
	case map[string]any:
		children = members(v)
	case []any:
		children = elements(v)
	}
	for _, c := range children {
		result = append(result, descendants(c)...)
	}
	return result
}
