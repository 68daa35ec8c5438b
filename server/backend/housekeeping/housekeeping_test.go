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

package housekeeping_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database/memory"
	"github.com/yorkie-team/h5p-shared-state/server/backend/housekeeping"
	"github.com/yorkie-team/h5p-shared-state/server/backend/sync"
)

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		validConf := housekeeping.Config{
			Interval:       "1m",
			OpLogRetention: 100,
			MaxConcurrency: 4,
		}
		assert.NoError(t, validConf.Validate())

		conf1 := validConf
		conf1.Interval = "hour"
		assert.Error(t, conf1.Validate())

		conf2 := validConf
		conf2.OpLogRetention = -1
		assert.Error(t, conf2.Validate())

		conf3 := validConf
		conf3.MaxConcurrency = 0
		assert.Error(t, conf3.Validate())
	})
}

func commitOps(t *testing.T, db database.Database, docID string, count int) {
	ctx := context.Background()

	doc := &database.DocInfo{ID: docID}
	for i := 0; i < count; i++ {
		op := &types.Operation{Version: doc.Version}
		if i == 0 {
			op.Create = &types.CreateData{Type: json0.TypeName, Data: float64(0)}
		} else {
			op.Op = json0.Op{json0.NumberAdd(json0.Path{}, 1)}
		}
		next := &database.DocInfo{ID: docID, Version: doc.Version + 1, Type: json0.TypeName, Data: float64(i)}
		require.NoError(t, db.CommitOpInfo(ctx, next, database.NewOpInfo(docID, doc.Version, op)))
		doc = next
	}
}

func TestCompact(t *testing.T) {
	ctx := context.Background()

	t.Run("trim logs beyond retention test", func(t *testing.T) {
		db, err := memory.New()
		require.NoError(t, err)
		commitOps(t, db, "long", 10)
		commitOps(t, db, "short", 2)

		h, err := housekeeping.New(&housekeeping.Config{
			Interval:       "1m",
			OpLogRetention: 3,
			MaxConcurrency: 2,
		}, db, sync.New(), nil)
		require.NoError(t, err)

		purged, err := h.Compact(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, purged)

		ops, err := db.FindOpInfosSince(ctx, "long", 0)
		require.NoError(t, err)
		require.Len(t, ops, 3)
		assert.Equal(t, int64(7), ops[0].Version)

		ops, err = db.FindOpInfosSince(ctx, "short", 0)
		require.NoError(t, err)
		assert.Len(t, ops, 2)

		purged, err = h.Compact(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, purged)
	})

	t.Run("unlimited retention test", func(t *testing.T) {
		db, err := memory.New()
		require.NoError(t, err)
		commitOps(t, db, "doc", 5)

		h, err := housekeeping.New(&housekeeping.Config{
			Interval:       "1m",
			MaxConcurrency: 1,
		}, db, sync.New(), nil)
		require.NoError(t, err)

		purged, err := h.Compact(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, purged)
	})
}
