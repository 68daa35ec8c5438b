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

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database/memory"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database/testcases"
)

func TestDB(t *testing.T) {
	db, err := memory.New()
	assert.NoError(t, err)
	defer func() {
		assert.NoError(t, db.Close())
	}()

	t.Run("FindDocInfo test", func(t *testing.T) {
		testcases.RunFindDocInfoTest(t, db)
	})

	t.Run("CommitOpInfo test", func(t *testing.T) {
		testcases.RunCommitOpInfoTest(t, db)
	})

	t.Run("FindOpInfosSince test", func(t *testing.T) {
		testcases.RunFindOpInfosSinceTest(t, db)
	})

	t.Run("RemoveDocInfo test", func(t *testing.T) {
		testcases.RunRemoveDocInfoTest(t, db)
	})
}

func TestClosedDB(t *testing.T) {
	ctx := context.Background()
	db, err := memory.New()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.FindDocInfo(ctx, "poll")
	assert.ErrorIs(t, err, database.ErrClosed)

	_, err = db.ListDocInfos(ctx)
	assert.ErrorIs(t, err, database.ErrClosed)

	err = db.CommitOpInfo(ctx, &database.DocInfo{ID: "poll", Version: 1}, &database.OpInfo{DocID: "poll"})
	assert.ErrorIs(t, err, database.ErrClosed)

	_, err = db.PurgeOpInfos(ctx, "poll", 1)
	assert.ErrorIs(t, err, database.ErrClosed)

	assert.ErrorIs(t, db.RemoveDocInfo(ctx, "poll"), database.ErrClosed)
}
