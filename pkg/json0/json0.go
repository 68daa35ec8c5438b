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

// Package json0 implements the JSON operational transformation type used to
// synchronize shared state. An Op is a list of components and each component
// edits the document at a path: objects with oi/od, lists with li/ld and
// numbers with na.
package json0

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

// TypeName is the name of the OT type announced to clients.
const TypeName = "json0"

// ErrInvalidOp is returned when an operation is ill-formed or does not fit the
// document it is applied to.
var ErrInvalidOp = errors.InvalidArgument("invalid op").WithCode("ErrInvalidOp")

// Path addresses a value in a document. Elements are object keys (string) or
// list indexes (int).
type Path []any

// Field is a kind of edit carried by a component.
type Field uint8

// Below are the edits a component may carry.
const (
	FieldOI Field = 1 << iota
	FieldOD
	FieldLI
	FieldLD
	FieldNA
)

// Component is a single edit at a path.
type Component struct {
	P  Path
	OI any
	OD any
	LI any
	LD any
	NA float64

	fields Field
}

// Op is a list of components applied in order.
type Op []Component

// Has returns whether the component carries the given edit.
func (c Component) Has(f Field) bool {
	return c.fields&f != 0
}

func (c *Component) set(f Field) {
	c.fields |= f
}

func (c *Component) unset(f Field) {
	c.fields &^= f
}

// ObjectInsert creates a component inserting value at the key of an object.
func ObjectInsert(p Path, value any) Component {
	return Component{P: p, OI: value, fields: FieldOI}
}

// ObjectDelete creates a component deleting the key of an object.
func ObjectDelete(p Path, old any) Component {
	return Component{P: p, OD: old, fields: FieldOD}
}

// ObjectReplace creates a component replacing the value at the key of an
// object. An empty path replaces the whole document.
func ObjectReplace(p Path, old, value any) Component {
	return Component{P: p, OD: old, OI: value, fields: FieldOD | FieldOI}
}

// ListInsert creates a component inserting value before the index of a list.
func ListInsert(p Path, value any) Component {
	return Component{P: p, LI: value, fields: FieldLI}
}

// ListDelete creates a component deleting the element at the index of a list.
func ListDelete(p Path, old any) Component {
	return Component{P: p, LD: old, fields: FieldLD}
}

// ListReplace creates a component replacing the element at the index of a
// list.
func ListReplace(p Path, old, value any) Component {
	return Component{P: p, LD: old, LI: value, fields: FieldLD | FieldLI}
}

// NumberAdd creates a component adding n to the number at the path.
func NumberAdd(p Path, n float64) Component {
	return Component{P: p, NA: n, fields: FieldNA}
}

// Validate checks that every component carries a single kind of edit and
// that its path fits the edit.
func (op Op) Validate() error {
	for i, c := range op {
		if err := c.validate(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}

func (c Component) validate() error {
	for _, elem := range c.P {
		switch elem.(type) {
		case string, int:
		default:
			return fmt.Errorf("path element %v: %w", elem, ErrInvalidOp)
		}
	}

	object := c.Has(FieldOI) || c.Has(FieldOD)
	list := c.Has(FieldLI) || c.Has(FieldLD)
	number := c.Has(FieldNA)

	kinds := 0
	for _, k := range []bool{object, list, number} {
		if k {
			kinds++
		}
	}
	if kinds != 1 {
		return fmt.Errorf("component must carry exactly one kind of edit: %w", ErrInvalidOp)
	}

	if list {
		if len(c.P) == 0 {
			return fmt.Errorf("list edit needs a path: %w", ErrInvalidOp)
		}
		if _, ok := c.P[len(c.P)-1].(int); !ok {
			return fmt.Errorf("list edit needs an index: %w", ErrInvalidOp)
		}
	}
	if object && len(c.P) > 0 {
		if _, ok := c.P[len(c.P)-1].(string); !ok {
			return fmt.Errorf("object edit needs a key: %w", ErrInvalidOp)
		}
	}
	if number && (math.IsNaN(c.NA) || math.IsInf(c.NA, 0)) {
		return fmt.Errorf("na must be finite: %w", ErrInvalidOp)
	}

	return nil
}

// MarshalJSON encodes the component in the json0 wire format.
func (c Component) MarshalJSON() ([]byte, error) {
	p := c.P
	if p == nil {
		p = Path{}
	}

	out := map[string]any{"p": p}
	if c.Has(FieldOI) {
		out["oi"] = c.OI
	}
	if c.Has(FieldOD) {
		out["od"] = c.OD
	}
	if c.Has(FieldLI) {
		out["li"] = c.LI
	}
	if c.Has(FieldLD) {
		out["ld"] = c.LD
	}
	if c.Has(FieldNA) {
		out["na"] = c.NA
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the component from the json0 wire format. Edits not
// supported by this type, like string and subtype edits, are rejected.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode component: %v: %w", err, ErrInvalidOp)
	}

	*c = Component{}
	for key, value := range raw {
		var err error
		switch key {
		case "p":
			err = c.decodePath(value)
		case "oi":
			c.OI, err = decodeValue(value)
			c.set(FieldOI)
		case "od":
			c.OD, err = decodeValue(value)
			c.set(FieldOD)
		case "li":
			c.LI, err = decodeValue(value)
			c.set(FieldLI)
		case "ld":
			c.LD, err = decodeValue(value)
			c.set(FieldLD)
		case "na":
			err = json.Unmarshal(value, &c.NA)
			c.set(FieldNA)
		default:
			return fmt.Errorf("unsupported edit %q: %w", key, ErrInvalidOp)
		}
		if err != nil {
			return fmt.Errorf("decode %q: %v: %w", key, err, ErrInvalidOp)
		}
	}

	if _, ok := raw["p"]; !ok {
		return fmt.Errorf("component has no path: %w", ErrInvalidOp)
	}
	return nil
}

func (c *Component) decodePath(data []byte) error {
	var elems []any
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}

	c.P = make(Path, len(elems))
	for i, elem := range elems {
		switch e := elem.(type) {
		case string:
			c.P[i] = e
		case float64:
			if e != math.Trunc(e) || e < 0 {
				return fmt.Errorf("index %v is not a natural number", e)
			}
			c.P[i] = int(e)
		default:
			return fmt.Errorf("path element %v is neither a key nor an index", elem)
		}
	}
	return nil
}

func decodeValue(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Clone returns a deep copy of the op.
func (op Op) Clone() Op {
	if op == nil {
		return nil
	}
	cloned := make(Op, len(op))
	for i, c := range op {
		cloned[i] = c.clone()
	}
	return cloned
}

func (c Component) clone() Component {
	cloned := c
	cloned.P = append(Path{}, c.P...)
	cloned.OI = Clone(c.OI)
	cloned.OD = Clone(c.OD)
	cloned.LI = Clone(c.LI)
	cloned.LD = Clone(c.LD)
	return cloned
}

// Clone returns a deep copy of a JSON value made of maps, slices and
// scalars.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		cloned := make(map[string]any, len(val))
		for k, elem := range val {
			cloned[k] = Clone(elem)
		}
		return cloned
	case []any:
		cloned := make([]any, len(val))
		for i, elem := range val {
			cloned[i] = Clone(elem)
		}
		return cloned
	default:
		return v
	}
}
