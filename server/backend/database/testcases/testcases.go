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

// Package testcases contains testcases shared by the database
// implementations.
package testcases

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
)

// commit stores an operation on top of the given state and returns the new
// state.
func commit(
	t *testing.T,
	db database.Database,
	prev *database.DocInfo,
	op *types.Operation,
	data any,
	docType string,
) *database.DocInfo {
	next := &database.DocInfo{ID: prev.ID, Version: prev.Version + 1, Type: docType, Data: data}
	require.NoError(t, db.CommitOpInfo(context.Background(), next, database.NewOpInfo(prev.ID, prev.Version, op)))
	return next
}

// RunFindDocInfoTest runs the FindDocInfo tests for the given db.
func RunFindDocInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	t.Run("find missing document test", func(t *testing.T) {
		_, err := db.FindDocInfo(ctx, t.Name())
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
	})

	t.Run("find committed document test", func(t *testing.T) {
		doc := &database.DocInfo{ID: t.Name()}
		doc = commit(t, db, doc, &types.Operation{Create: &types.CreateData{Type: json0.TypeName}},
			map[string]any{"n": float64(1)}, json0.TypeName)

		found, err := db.FindDocInfo(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.Version)
		assert.Equal(t, json0.TypeName, found.Type)
		assert.False(t, found.UpdatedAt.IsZero())

		found.Data.(map[string]any)["n"] = float64(2)
		again, err := db.FindDocInfo(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": float64(1)}, again.Data)
	})
}

// RunCommitOpInfoTest runs the CommitOpInfo tests for the given db.
func RunCommitOpInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	t.Run("reject stale commit test", func(t *testing.T) {
		doc := &database.DocInfo{ID: t.Name()}
		create := &types.Operation{Create: &types.CreateData{Type: json0.TypeName}}
		commit(t, db, doc, create, map[string]any{}, json0.TypeName)

		stale := &database.DocInfo{ID: doc.ID, Version: 1, Type: json0.TypeName}
		err := db.CommitOpInfo(ctx, stale, database.NewOpInfo(doc.ID, 0, create))
		assert.ErrorIs(t, err, database.ErrConflictOnUpdate)
	})

	t.Run("reject mismatched versions test", func(t *testing.T) {
		doc := &database.DocInfo{ID: t.Name(), Version: 3}
		err := db.CommitOpInfo(ctx, doc, database.NewOpInfo(doc.ID, 0, &types.Operation{Del: true}))
		assert.ErrorIs(t, err, database.ErrConflictOnUpdate)
	})

	t.Run("concurrent commits on one version test", func(t *testing.T) {
		docID := t.Name()
		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := &database.DocInfo{ID: docID, Version: 1, Type: json0.TypeName, Data: float64(i)}
				op := &types.Operation{Create: &types.CreateData{Type: json0.TypeName, Data: float64(i)}}
				errs[i] = db.CommitOpInfo(ctx, next, database.NewOpInfo(docID, 0, op))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, database.ErrConflictOnUpdate)
			}
		}
		assert.Equal(t, 1, succeeded)
	})
}

// RunFindOpInfosSinceTest runs the FindOpInfosSince and PurgeOpInfos tests
// for the given db.
func RunFindOpInfosSinceTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	t.Run("find ops in commit order test", func(t *testing.T) {
		doc := &database.DocInfo{ID: t.Name()}
		doc = commit(t, db, doc, &types.Operation{Create: &types.CreateData{Type: json0.TypeName}},
			map[string]any{"n": float64(0)}, json0.TypeName)
		for i := 1; i <= 300; i++ {
			op := &types.Operation{Seq: int64(i), Op: json0.Op{json0.NumberAdd(json0.Path{"n"}, 1)}}
			doc = commit(t, db, doc, op, map[string]any{"n": float64(i)}, json0.TypeName)
		}

		ops, err := db.FindOpInfosSince(ctx, doc.ID, 120)
		require.NoError(t, err)
		require.Len(t, ops, 181)
		for i, op := range ops {
			assert.Equal(t, int64(120+i), op.Version, fmt.Sprintf("op %d", i))
		}

		ops, err = db.FindOpInfosSince(ctx, doc.ID, doc.Version)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})

	t.Run("purge old ops test", func(t *testing.T) {
		doc := &database.DocInfo{ID: t.Name()}
		doc = commit(t, db, doc, &types.Operation{Create: &types.CreateData{Type: json0.TypeName}},
			map[string]any{}, json0.TypeName)
		for i := 0; i < 5; i++ {
			doc = commit(t, db, doc, &types.Operation{Op: json0.Op{}}, map[string]any{}, json0.TypeName)
		}

		removed, err := db.PurgeOpInfos(ctx, doc.ID, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, removed)

		ops, err := db.FindOpInfosSince(ctx, doc.ID, 0)
		require.NoError(t, err)
		require.Len(t, ops, 2)
		assert.Equal(t, int64(4), ops[0].Version)
	})
}

// RunRemoveDocInfoTest runs the RemoveDocInfo and ListDocInfos tests for the
// given db.
func RunRemoveDocInfoTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	t.Run("remove document test", func(t *testing.T) {
		doc := &database.DocInfo{ID: t.Name()}
		commit(t, db, doc, &types.Operation{Create: &types.CreateData{Type: json0.TypeName}},
			map[string]any{}, json0.TypeName)

		infos, err := db.ListDocInfos(ctx)
		require.NoError(t, err)
		found := false
		for _, info := range infos {
			found = found || info.ID == doc.ID
		}
		assert.True(t, found)

		require.NoError(t, db.RemoveDocInfo(ctx, doc.ID))
		_, err = db.FindDocInfo(ctx, doc.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		ops, err := db.FindOpInfosSince(ctx, doc.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})
}
