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

package json0

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wI2L/jsondiff"
)

// Diff computes an op that turns src into dst.
func Diff(src, dst any) (Op, error) {
	patch, err := jsondiff.Compare(src, dst)
	if err != nil {
		return nil, fmt.Errorf("compare documents: %w", err)
	}
	return FromPatch(src, patch)
}

// FromPatch converts a JSON Patch made against src into an op. Deleted values
// are read from src so that the op can be transformed like any client op.
func FromPatch(src any, patch jsondiff.Patch) (Op, error) {
	doc := Clone(src)
	var op Op

	for _, operation := range patch {
		components, err := convertOperation(doc, operation)
		if err != nil {
			return nil, err
		}
		for _, c := range components {
			if doc, err = applyComponent(doc, c); err != nil {
				return nil, fmt.Errorf("%s %s: %w", operation.Type, operation.Path, err)
			}
			op = append(op, c)
		}
	}
	return op, nil
}

func convertOperation(doc any, operation jsondiff.Operation) ([]Component, error) {
	switch operation.Type {
	case jsondiff.OperationAdd:
		c, err := addComponent(doc, string(operation.Path), operation.Value)
		if err != nil {
			return nil, err
		}
		return []Component{c}, nil
	case jsondiff.OperationRemove:
		c, err := removeComponent(doc, string(operation.Path))
		if err != nil {
			return nil, err
		}
		return []Component{c}, nil
	case jsondiff.OperationReplace:
		p, parent, err := resolve(doc, string(operation.Path))
		if err != nil {
			return nil, err
		}
		old := valueAt(doc, p)
		if _, ok := parent.([]any); ok {
			return []Component{ListReplace(p, old, normalize(operation.Value))}, nil
		}
		return []Component{ObjectReplace(p, old, normalize(operation.Value))}, nil
	case jsondiff.OperationMove:
		from, _, err := resolve(doc, string(operation.From))
		if err != nil {
			return nil, err
		}
		value := valueAt(doc, from)
		remove, err := removeComponent(doc, string(operation.From))
		if err != nil {
			return nil, err
		}
		moved, err := applyComponent(Clone(doc), remove)
		if err != nil {
			return nil, err
		}
		add, err := addComponent(moved, string(operation.Path), value)
		if err != nil {
			return nil, err
		}
		return []Component{remove, add}, nil
	case jsondiff.OperationCopy:
		from, _, err := resolve(doc, string(operation.From))
		if err != nil {
			return nil, err
		}
		c, err := addComponent(doc, string(operation.Path), valueAt(doc, from))
		if err != nil {
			return nil, err
		}
		return []Component{c}, nil
	case jsondiff.OperationTest:
		return nil, nil
	}

	return nil, fmt.Errorf("unsupported patch operation %q: %w", operation.Type, ErrInvalidOp)
}

func addComponent(doc any, pointer string, value any) (Component, error) {
	p, parent, err := resolve(doc, pointer)
	if err != nil {
		return Component{}, err
	}
	value = normalize(value)

	if len(p) == 0 {
		return ObjectReplace(p, Clone(doc), value), nil
	}
	switch container := parent.(type) {
	case []any:
		return ListInsert(p, value), nil
	case map[string]any:
		key := p[len(p)-1].(string)
		if old, ok := container[key]; ok {
			return ObjectReplace(p, Clone(old), value), nil
		}
		return ObjectInsert(p, value), nil
	}
	return Component{}, fmt.Errorf("add into %T: %w", parent, ErrInvalidOp)
}

func removeComponent(doc any, pointer string) (Component, error) {
	p, parent, err := resolve(doc, pointer)
	if err != nil {
		return Component{}, err
	}

	old := Clone(valueAt(doc, p))
	if len(p) == 0 {
		return ObjectDelete(p, old), nil
	}
	if _, ok := parent.([]any); ok {
		return ListDelete(p, old), nil
	}
	return ObjectDelete(p, old), nil
}

// resolve converts a JSON pointer into a path, reading the document to tell
// list indexes from object keys. It also returns the parent of the addressed
// value.
func resolve(doc any, pointer string) (Path, any, error) {
	if pointer == "" {
		return Path{}, nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, nil, fmt.Errorf("pointer %q: %w", pointer, ErrInvalidOp)
	}

	tokens := strings.Split(pointer[1:], "/")
	p := make(Path, 0, len(tokens))
	node := doc
	var parent any
	for _, token := range tokens {
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
		parent = node

		switch n := node.(type) {
		case map[string]any:
			p = append(p, token)
			node = n[token]
		case []any:
			idx := len(n)
			if token != "-" {
				var err error
				if idx, err = strconv.Atoi(token); err != nil {
					return nil, nil, fmt.Errorf("pointer %q: index %q: %w", pointer, token, ErrInvalidOp)
				}
			}
			p = append(p, idx)
			node = nil
			if idx >= 0 && idx < len(n) {
				node = n[idx]
			}
		default:
			return nil, nil, fmt.Errorf("pointer %q: cannot descend into %T: %w", pointer, node, ErrInvalidOp)
		}
	}
	return p, parent, nil
}

func valueAt(doc any, p Path) any {
	node := doc
	for _, elem := range p {
		switch n := node.(type) {
		case map[string]any:
			key, _ := elem.(string)
			node = n[key]
		case []any:
			idx, _ := elem.(int)
			if idx < 0 || idx >= len(n) {
				return nil
			}
			node = n[idx]
		default:
			return nil
		}
	}
	return node
}

// normalize converts a value to the generic JSON shape the op works on.
func normalize(v any) any {
	switch v.(type) {
	case nil, bool, float64, string, map[string]any, []any:
		return Clone(v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
