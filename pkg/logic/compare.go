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

package logic

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// equals compares two values. Two arrays are equal when they have the same
// length and their elements are strictly equal in order. Other values are
// compared loosely.
func equals(a, b any) bool {
	left, lok := a.([]any)
	right, rok := b.([]any)
	if lok && rok {
		if len(left) != len(right) {
			return false
		}
		for i := range left {
			if !strictEquals(left[i], right[i]) {
				return false
			}
		}
		return true
	}

	return looseEquals(a, b)
}

// strictEquals compares values without type coercion.
func strictEquals(a, b any) bool {
	if x, ok := toNumber(a); ok {
		y, ok := toNumber(b)
		return ok && x == y
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	}

	return reflect.DeepEqual(a, b)
}

// looseEquals compares values with the conversions of JavaScript's ==.
// Numbers, numeric strings and booleans convert to numbers, blank strings
// to 0, and an array compared with a scalar to its joined elements.
func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if strictEquals(a, b) {
		return true
	}

	_, aArray := a.([]any)
	_, bArray := b.([]any)
	if aArray != bArray {
		if aArray {
			return looseEquals(joinArray(a.([]any)), b)
		}
		return looseEquals(a, joinArray(b.([]any)))
	}

	x, xok := coerceNumber(a)
	y, yok := coerceNumber(b)
	return xok && yok && x == y
}

// compare orders two numbers or two strings. Numeric strings are converted
// when compared against numbers. The second result is false when the values
// are not comparable.
func compare(a, b any) (int, bool) {
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	}

	x, xok := coerceNumber(a)
	y, yok := coerceNumber(b)
	if !xok || !yok {
		return 0, false
	}

	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	default:
		return 0, true
	}
}

// containsAll reports whether the value, or every element of it when it is
// an array, is a member of the set.
func containsAll(set []any, value any) bool {
	if values, ok := value.([]any); ok {
		for _, v := range values {
			if !contains(set, v) {
				return false
			}
		}
		return true
	}
	return contains(set, value)
}

// containsNone reports whether neither the value nor any element of it is a
// member of the set.
func containsNone(set []any, value any) bool {
	if values, ok := value.([]any); ok {
		for _, v := range values {
			if contains(set, v) {
				return false
			}
		}
		return true
	}
	return !contains(set, value)
}

func contains(set []any, value any) bool {
	for _, member := range set {
		if strictEquals(member, value) {
			return true
		}
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func coerceNumber(v any) (float64, bool) {
	if n, ok := toNumber(v); ok {
		return n, true
	}

	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// joinArray renders an array the way JavaScript converts it to a string:
// elements joined by commas, with null as the empty string.
func joinArray(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case string:
			parts[i] = x
		case bool:
			parts[i] = strconv.FormatBool(x)
		case []any:
			parts[i] = joinArray(x)
		case map[string]any:
			parts[i] = "[object Object]"
		default:
			if n, ok := toNumber(x); ok {
				parts[i] = strconv.FormatFloat(n, 'f', -1, 64)
			} else {
				parts[i] = fmt.Sprint(x)
			}
		}
	}
	return strings.Join(parts, ",")
}
