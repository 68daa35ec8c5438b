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

package json0_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
)

func decode(t *testing.T, s string) any {
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func decodeOp(t *testing.T, s string) json0.Op {
	var op json0.Op
	require.NoError(t, json.Unmarshal([]byte(s), &op))
	return op
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		op   string
		want string
	}{
		{"object insert", `{}`, `[{"p":["a"],"oi":1}]`, `{"a":1}`},
		{"object delete", `{"a":1,"b":2}`, `[{"p":["a"],"od":1}]`, `{"b":2}`},
		{"object replace", `{"a":1}`, `[{"p":["a"],"od":1,"oi":{"x":[]}}]`, `{"a":{"x":[]}}`},
		{"list insert", `{"l":[1,3]}`, `[{"p":["l",1],"li":2}]`, `{"l":[1,2,3]}`},
		{"list append", `{"l":[1]}`, `[{"p":["l",1],"li":2}]`, `{"l":[1,2]}`},
		{"list delete", `{"l":[1,2,3]}`, `[{"p":["l",0],"ld":1}]`, `{"l":[2,3]}`},
		{"list replace", `{"l":[1,2]}`, `[{"p":["l",1],"ld":2,"li":"two"}]`, `{"l":[1,"two"]}`},
		{"number add", `{"votes":{"opt1":1}}`, `[{"p":["votes","opt1"],"na":2}]`, `{"votes":{"opt1":3}}`},
		{"number add in list", `[1,2]`, `[{"p":[1],"na":-2}]`, `[1,0]`},
		{"root replace", `{"a":1}`, `[{"p":[],"od":{"a":1},"oi":[1]}]`, `[1]`},
		{"several components", `{}`, `[{"p":["l"],"oi":[]},{"p":["l",0],"li":"x"}]`, `{"l":["x"]}`},
		{"null insert", `{}`, `[{"p":["a"],"oi":null}]`, `{"a":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decode(t, tt.doc)
			got, err := json0.Apply(doc, decodeOp(t, tt.op))
			require.NoError(t, err)
			assert.Equal(t, decode(t, tt.want), got)
			assert.Equal(t, decode(t, tt.doc), doc)
		})
	}

	t.Run("invalid ops", func(t *testing.T) {
		doc := decode(t, `{"a":1,"l":[1],"s":"x"}`)
		for _, op := range []string{
			`[{"p":["missing","b"],"oi":1}]`,
			`[{"p":["l",5],"li":1}]`,
			`[{"p":["l",1],"ld":1}]`,
			`[{"p":["s"],"na":1}]`,
			`[{"p":["a"],"li":1}]`,
			`[{"p":["l","x"],"oi":1}]`,
			`[{"p":["a"],"oi":1,"na":1}]`,
			`[{"p":[],"li":1}]`,
		} {
			_, err := json0.Apply(doc, decodeOp(t, op))
			assert.ErrorIs(t, err, json0.ErrInvalidOp, op)
		}
	})
}

func TestCodec(t *testing.T) {
	t.Run("decode paths", func(t *testing.T) {
		op := decodeOp(t, `[{"p":["votes",2,"n"],"na":1}]`)
		require.Len(t, op, 1)
		assert.Equal(t, json0.Path{"votes", 2, "n"}, op[0].P)
		assert.True(t, op[0].Has(json0.FieldNA))
		assert.False(t, op[0].Has(json0.FieldOI))
	})

	t.Run("keep null values", func(t *testing.T) {
		op := decodeOp(t, `[{"p":[0],"li":null}]`)
		assert.True(t, op[0].Has(json0.FieldLI))
		assert.Nil(t, op[0].LI)

		data, err := json.Marshal(op)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"p":[0],"li":null}]`, string(data))
	})

	t.Run("encode constructors", func(t *testing.T) {
		data, err := json.Marshal(json0.Op{
			json0.ObjectReplace(json0.Path{"a"}, 1, 2),
			json0.NumberAdd(nil, 1),
		})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"p":["a"],"od":1,"oi":2},{"p":[],"na":1}]`, string(data))
	})

	t.Run("reject unsupported edits", func(t *testing.T) {
		for _, s := range []string{
			`[{"p":["a",0],"si":"x"}]`,
			`[{"oi":1}]`,
			`[{"p":[0.5],"li":1}]`,
			`[{"p":[true],"oi":1}]`,
		} {
			var op json0.Op
			assert.ErrorIs(t, json.Unmarshal([]byte(s), &op), json0.ErrInvalidOp, s)
		}
	})
}

// assertConverge checks that left and right commute once transformed.
func assertConverge(t *testing.T, doc any, left, right json0.Op) any {
	leftT, rightT := json0.TransformX(left, right)

	afterLeft, err := json0.Apply(doc, left)
	require.NoError(t, err)
	viaLeft, err := json0.Apply(afterLeft, rightT)
	require.NoError(t, err)

	afterRight, err := json0.Apply(doc, right)
	require.NoError(t, err)
	viaRight, err := json0.Apply(afterRight, leftT)
	require.NoError(t, err)

	assert.Equal(t, viaLeft, viaRight)
	return viaLeft
}

func TestTransform(t *testing.T) {
	t.Run("concurrent list inserts at one index", func(t *testing.T) {
		doc := decode(t, `[]`)
		left := json0.Op{json0.ListInsert(json0.Path{0}, "a")}
		right := json0.Op{json0.ListInsert(json0.Path{0}, "b")}

		got := assertConverge(t, doc, left, right)
		assert.Equal(t, []any{"a", "b"}, got)

		assert.Equal(t, json0.Path{0}, json0.Transform(left, right, json0.Left)[0].P)
		assert.Equal(t, json0.Path{1}, json0.Transform(right, left, json0.Right)[0].P)
	})

	t.Run("delete before insert shifts the insert", func(t *testing.T) {
		doc := decode(t, `["x","y","z"]`)
		got := assertConverge(t, doc,
			json0.Op{json0.ListDelete(json0.Path{0}, "x")},
			json0.Op{json0.ListInsert(json0.Path{2}, "w")},
		)
		assert.Equal(t, []any{"y", "w", "z"}, got)
	})

	t.Run("concurrent number adds", func(t *testing.T) {
		doc := decode(t, `{"votes":{"opt1":1}}`)
		inc := json0.Op{json0.NumberAdd(json0.Path{"votes", "opt1"}, 1)}
		got := assertConverge(t, doc, inc, inc)
		assert.Equal(t, decode(t, `{"votes":{"opt1":3}}`), got)
	})

	t.Run("left wins concurrent object inserts", func(t *testing.T) {
		doc := decode(t, `{}`)
		got := assertConverge(t, doc,
			json0.Op{json0.ObjectInsert(json0.Path{"k"}, "left")},
			json0.Op{json0.ObjectInsert(json0.Path{"k"}, "right")},
		)
		assert.Equal(t, decode(t, `{"k":"left"}`), got)
	})

	t.Run("delete of a parent drops edits below it", func(t *testing.T) {
		doc := decode(t, `{"votes":{"opt1":1},"n":0}`)
		left := json0.Op{json0.ObjectDelete(json0.Path{"votes"}, map[string]any{"opt1": float64(1)})}
		right := json0.Op{
			json0.NumberAdd(json0.Path{"votes", "opt1"}, 1),
			json0.NumberAdd(json0.Path{"n"}, 1),
		}

		got := assertConverge(t, doc, left, right)
		assert.Equal(t, decode(t, `{"n":1}`), got)

		leftT, rightT := json0.TransformX(left, right)
		assert.Equal(t, map[string]any{"opt1": float64(2)}, leftT[0].OD)
		assert.Len(t, rightT, 1)
	})

	t.Run("concurrent deletes of one element", func(t *testing.T) {
		doc := decode(t, `[1,2,3]`)
		del := json0.Op{json0.ListDelete(json0.Path{1}, float64(2))}
		got := assertConverge(t, doc, del, del)
		assert.Equal(t, []any{float64(1), float64(3)}, got)
	})

	t.Run("empty ops", func(t *testing.T) {
		op := json0.Op{json0.ObjectInsert(json0.Path{"a"}, 1)}
		assert.Equal(t, op, json0.Transform(op, nil, json0.Left))
		assert.Nil(t, json0.Transform(nil, op, json0.Right))
	})
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		src  string
		dst  string
	}{
		{"object changes", `{"votes":{"opt1":1},"title":"x"}`, `{"votes":{"opt1":2,"opt2":0}}`},
		{"list changes", `{"l":[1,2,3]}`, `{"l":[1,3,4,5]}`},
		{"nested keys with slashes", `{"a/b":{"c~d":1}}`, `{"a/b":{"c~d":2}}`},
		{"root type change", `{"a":1}`, `[1,2]`},
		{"identical", `{"a":[1]}`, `{"a":[1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := decode(t, tt.src)
			op, err := json0.Diff(src, decode(t, tt.dst))
			require.NoError(t, err)
			require.NoError(t, op.Validate())

			got, err := json0.Apply(src, op)
			require.NoError(t, err)
			assert.Equal(t, decode(t, tt.dst), got)
		})
	}

	t.Run("deleted values come from the source", func(t *testing.T) {
		op, err := json0.Diff(decode(t, `{"a":{"b":1},"c":2}`), decode(t, `{"c":2}`))
		require.NoError(t, err)
		require.Len(t, op, 1)
		assert.True(t, op[0].Has(json0.FieldOD))
		assert.Equal(t, map[string]any{"b": float64(1)}, op[0].OD)
	})
}
