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

package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
)

func TestDocInfo(t *testing.T) {
	t.Run("deep copy test", func(t *testing.T) {
		info := &database.DocInfo{
			ID:      "content-1",
			Version: 3,
			Type:    json0.TypeName,
			Data:    map[string]any{"votes": map[string]any{"opt1": float64(1)}},
		}

		clone := info.DeepCopy()
		clone.Data.(map[string]any)["votes"].(map[string]any)["opt1"] = float64(9)
		assert.Equal(t, float64(1), info.Data.(map[string]any)["votes"].(map[string]any)["opt1"])

		var nilInfo *database.DocInfo
		assert.Nil(t, nilInfo.DeepCopy())
	})

	t.Run("snapshot test", func(t *testing.T) {
		info := &database.DocInfo{ID: "content-1", Version: 2, Type: json0.TypeName, Data: []any{"a"}}
		snapshot := info.Snapshot()
		assert.Equal(t, int64(2), snapshot.Version)
		assert.True(t, snapshot.Exists())

		snapshot.Data.([]any)[0] = "b"
		assert.Equal(t, []any{"a"}, info.Data)
	})
}

func TestOpInfo(t *testing.T) {
	op := &types.Operation{
		Src:    "conn-1",
		Seq:    4,
		Create: &types.CreateData{Type: json0.TypeName, Data: map[string]any{}},
	}

	info := database.NewOpInfo("content-1", 0, op)
	assert.Equal(t, "content-1", info.DocID)
	assert.False(t, info.CommittedAt.IsZero())

	committed := info.Operation()
	assert.Equal(t, "conn-1", committed.Src)
	assert.Equal(t, int64(4), committed.Seq)
	assert.True(t, committed.IsCreate())

	committed.Create.Data.(map[string]any)["x"] = true
	assert.Empty(t, info.Create.Data)
}
