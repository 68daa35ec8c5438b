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

package jsonpath_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/pkg/jsonpath"
)

func decode(t *testing.T, s string) any {
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestQuery(t *testing.T) {
	doc := decode(t, `{
		"params": {"options": [{"id": "opt1"}, {"id": "opt2"}, {"id": "opt3"}]},
		"data": {"votes": {"opt1": 1, "opt2": 2, "opt3": 3}},
		"odd key": true
	}`)

	tests := []struct {
		name     string
		expr     string
		want     any
		definite bool
	}{
		{"root", "$", doc, true},
		{"member", "$.data.votes.opt2", float64(2), true},
		{"bracket member", "$['odd key']", true, true},
		{"double quoted member", `$["data"]["votes"]["opt3"]`, float64(3), true},
		{"index", "$.params.options[1].id", "opt2", true},
		{"negative index", "$.params.options[-1].id", "opt3", true},
		{"missing member", "$.data.nothing", nil, true},
		{"out of range", "$.params.options[7]", nil, true},
		{"wildcard", "$.params.options[*].id", []any{"opt1", "opt2", "opt3"}, false},
		{"dot wildcard", "$.data.votes.*", []any{float64(1), float64(2), float64(3)}, false},
		{"member names", "$.data.votes[*]~", []any{"opt1", "opt2", "opt3"}, false},
		{"index names", "$.params.options[*]~", []any{float64(0), float64(1), float64(2)}, false},
		{"definite name", "$.data.votes~", "votes", true},
		{"recursive", "$..id", []any{"opt1", "opt2", "opt3"}, false},
		{"empty wildcard", "$.data.nothing[*]", []any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := jsonpath.Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.definite, p.Definite())
			assert.Equal(t, tt.want, p.Query(doc))
			assert.Equal(t, tt.expr, p.String())
		})
	}
}

func TestCompile(t *testing.T) {
	t.Run("invalid expressions", func(t *testing.T) {
		for _, expr := range []string{
			"data.votes",
			"$.",
			"$.a[",
			"$.a[x]",
			"$['a",
			"$a",
		} {
			_, err := jsonpath.Compile(expr)
			assert.ErrorIs(t, err, jsonpath.ErrInvalidPath, expr)
		}
	})

	t.Run("default engine compiles", func(t *testing.T) {
		p, err := jsonpath.Default.Compile("$.a")
		assert.NoError(t, err)
		assert.Equal(t, "b", p.Query(map[string]any{"a": "b"}))
	})

	t.Run("must compile panics", func(t *testing.T) {
		assert.Panics(t, func() { jsonpath.MustCompile("nope") })
	})
}
