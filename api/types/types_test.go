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

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
)

func TestLibraryName(t *testing.T) {
	t.Run("parse ubernames", func(t *testing.T) {
		for _, s := range []string{"H5P.Poll-1.2", "H5P.Poll 1.2"} {
			name, err := types.ParseLibraryName(s)
			require.NoError(t, err)
			assert.Equal(t, types.LibraryName{MachineName: "H5P.Poll", MajorVersion: 1, MinorVersion: 2}, name)
			assert.Equal(t, "H5P.Poll-1.2", name.String())
		}
	})

	t.Run("reject invalid ubernames", func(t *testing.T) {
		for _, s := range []string{"", "H5P.Poll", "H5P.Poll-1", "H5P.Poll-a.b", "../x-1.0/y"} {
			_, err := types.ParseLibraryName(s)
			assert.ErrorIs(t, err, types.ErrInvalidLibraryName, s)
		}
	})
}

func TestMetadata(t *testing.T) {
	t.Run("main library version from dependencies", func(t *testing.T) {
		meta := &types.ContentMetadata{
			MainLibrary: "H5P.Poll",
			PreloadedDependencies: []types.LibraryName{
				{MachineName: "H5P.Question", MajorVersion: 1, MinorVersion: 4},
				{MachineName: "H5P.Poll", MajorVersion: 2, MinorVersion: 0},
			},
		}
		name, ok := meta.MainLibraryName()
		assert.True(t, ok)
		assert.Equal(t, "H5P.Poll-2.0", name.String())

		meta.MainLibrary = "H5P.Missing"
		_, ok = meta.MainLibraryName()
		assert.False(t, ok)
	})

	t.Run("absent extension and state sections", func(t *testing.T) {
		var nilMeta *types.LibraryMetadata
		assert.Equal(t, 0, nilMeta.SharedStateVersion())

		meta := &types.LibraryMetadata{MachineName: "H5P.Poll"}
		assert.Equal(t, 0, meta.SharedStateVersion())
		assert.False(t, meta.Artifacts().OpSchema)

		meta.RequiredExtensions = &types.RequiredExtensions{SharedState: 1}
		meta.State = &types.StateArtifacts{OpSchema: true}
		assert.Equal(t, 1, meta.SharedStateVersion())
		assert.True(t, meta.Artifacts().OpSchema)
	})
}

func TestOperation(t *testing.T) {
	op := &types.Operation{Create: &types.CreateData{Type: "json0"}}
	assert.True(t, op.IsCreate())
	assert.False(t, op.IsEdit())
	assert.Equal(t, 1, op.Kinds())

	op = &types.Operation{Del: true}
	assert.True(t, op.IsDelete())

	var snap *types.Snapshot
	assert.False(t, snap.Exists())
	assert.True(t, (&types.Snapshot{Type: "json0"}).Exists())
}
