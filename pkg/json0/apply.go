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
	"fmt"
)

// Apply applies the op to a deep copy of data and returns the result. The
// given data is never modified.
func Apply(data any, op Op) (any, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	doc := Clone(data)
	for i, c := range op {
		var err error
		if doc, err = applyComponent(doc, c); err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
	}
	return doc, nil
}

func applyComponent(doc any, c Component) (any, error) {
	if len(c.P) == 0 {
		return applyRoot(doc, c)
	}
	return applyAt(doc, c.P, c)
}

func applyRoot(doc any, c Component) (any, error) {
	switch {
	case c.Has(FieldNA):
		n, ok := doc.(float64)
		if !ok {
			return nil, fmt.Errorf("na on %T: %w", doc, ErrInvalidOp)
		}
		return n + c.NA, nil
	case c.Has(FieldOI):
		return Clone(c.OI), nil
	case c.Has(FieldOD):
		return nil, nil
	}
	return nil, fmt.Errorf("list edit on the root: %w", ErrInvalidOp)
}

// applyAt descends to the parent of the edited value and returns the
// possibly reallocated node.
func applyAt(node any, p Path, c Component) (any, error) {
	if len(p) == 1 {
		return applyLeaf(node, p[0], c)
	}

	switch n := node.(type) {
	case map[string]any:
		key, ok := p[0].(string)
		if !ok {
			return nil, fmt.Errorf("index %v on an object: %w", p[0], ErrInvalidOp)
		}
		child, ok := n[key]
		if !ok {
			return nil, fmt.Errorf("key %q not found: %w", key, ErrInvalidOp)
		}
		updated, err := applyAt(child, p[1:], c)
		if err != nil {
			return nil, err
		}
		n[key] = updated
		return n, nil
	case []any:
		idx, ok := p[0].(int)
		if !ok || idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("index %v out of range: %w", p[0], ErrInvalidOp)
		}
		updated, err := applyAt(n[idx], p[1:], c)
		if err != nil {
			return nil, err
		}
		n[idx] = updated
		return n, nil
	}

	return nil, fmt.Errorf("cannot descend into %T: %w", node, ErrInvalidOp)
}

func applyLeaf(node any, elem any, c Component) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		key, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("index %v on an object: %w", elem, ErrInvalidOp)
		}
		switch {
		case c.Has(FieldNA):
			v, ok := n[key].(float64)
			if !ok {
				return nil, fmt.Errorf("na on %T at %q: %w", n[key], key, ErrInvalidOp)
			}
			n[key] = v + c.NA
		case c.Has(FieldOI):
			n[key] = Clone(c.OI)
		case c.Has(FieldOD):
			delete(n, key)
		default:
			return nil, fmt.Errorf("list edit on an object: %w", ErrInvalidOp)
		}
		return n, nil
	case []any:
		idx, ok := elem.(int)
		if !ok {
			return nil, fmt.Errorf("key %v on a list: %w", elem, ErrInvalidOp)
		}
		switch {
		case c.Has(FieldNA):
			if idx < 0 || idx >= len(n) {
				return nil, fmt.Errorf("index %d out of range: %w", idx, ErrInvalidOp)
			}
			v, ok := n[idx].(float64)
			if !ok {
				return nil, fmt.Errorf("na on %T at %d: %w", n[idx], idx, ErrInvalidOp)
			}
			n[idx] = v + c.NA
		case c.Has(FieldLI) && c.Has(FieldLD):
			if idx < 0 || idx >= len(n) {
				return nil, fmt.Errorf("index %d out of range: %w", idx, ErrInvalidOp)
			}
			n[idx] = Clone(c.LI)
		case c.Has(FieldLI):
			if idx < 0 || idx > len(n) {
				return nil, fmt.Errorf("index %d out of range: %w", idx, ErrInvalidOp)
			}
			n = append(n, nil)
			copy(n[idx+1:], n[idx:])
			n[idx] = Clone(c.LI)
		case c.Has(FieldLD):
			if idx < 0 || idx >= len(n) {
				return nil, fmt.Errorf("index %d out of range: %w", idx, ErrInvalidOp)
			}
			n = append(n[:idx], n[idx+1:]...)
		default:
			return nil, fmt.Errorf("object edit on a list: %w", ErrInvalidOp)
		}
		return n, nil
	}

	return nil, fmt.Errorf("cannot edit %T: %w", node, ErrInvalidOp)
}
