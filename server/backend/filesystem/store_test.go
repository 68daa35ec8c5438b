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

package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/filesystem"
)

var poll = types.LibraryName{MachineName: "H5P.SharedPoll", MajorVersion: 1, MinorVersion: 0}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newStore(t *testing.T) (*filesystem.Store, *filesystem.Config) {
	libs := t.TempDir()
	contents := t.TempDir()

	writeFile(t, filepath.Join(libs, "H5P.SharedPoll-1.0", "library.json"), `{
		"title": "Shared Poll",
		"machineName": "H5P.SharedPoll",
		"majorVersion": 1,
		"minorVersion": 0,
		"patchVersion": 3,
		"requiredExtensions": {"sharedState": 1},
		"state": {"opSchema": true}
	}`)
	writeFile(t, filepath.Join(libs, "H5P.SharedPoll-1.0", "opSchema.json"), `{"type": "object"}`)
	writeFile(t, filepath.Join(libs, "H5P.SharedPoll-1.0", "snapshotSchema.json"), `{"type": `)

	writeFile(t, filepath.Join(contents, "42", "h5p.json"), `{
		"title": "Poll",
		"mainLibrary": "H5P.SharedPoll",
		"preloadedDependencies": [{"machineName": "H5P.SharedPoll", "majorVersion": 1, "minorVersion": 0}]
	}`)
	writeFile(t, filepath.Join(contents, "42", "content", "content.json"), `{"question": "Why?"}`)

	conf := &filesystem.Config{LibrariesDir: libs, ContentDir: contents}
	return filesystem.New(conf), conf
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, conf := newStore(t)

	t.Run("config test", func(t *testing.T) {
		assert.NoError(t, conf.Validate())
		assert.Error(t, (&filesystem.Config{LibrariesDir: conf.LibrariesDir}).Validate())
		assert.Error(t, (&filesystem.Config{
			LibrariesDir: conf.LibrariesDir,
			ContentDir:   filepath.Join(conf.ContentDir, "missing"),
		}).Validate())
	})

	t.Run("library metadata test", func(t *testing.T) {
		metadata, err := store.GetLibraryMetadata(ctx, poll)
		require.NoError(t, err)
		assert.Equal(t, poll, metadata.Name())
		assert.Equal(t, 1, metadata.SharedStateVersion())
		assert.True(t, metadata.Artifacts().OpSchema)

		_, err = store.GetLibraryMetadata(ctx, types.LibraryName{MachineName: "H5P.Missing", MajorVersion: 1})
		assert.ErrorIs(t, err, backend.ErrLibraryNotFound)
	})

	t.Run("library file test", func(t *testing.T) {
		value, err := store.GetLibraryFileAsJSON(ctx, poll, "opSchema.json")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"type": "object"}, value)

		_, err = store.GetLibraryFileAsJSON(ctx, poll, "opLogicCheck.json")
		assert.ErrorIs(t, err, backend.ErrLibraryFileNotFound)

		_, err = store.GetLibraryFileAsJSON(ctx, poll, "snapshotSchema.json")
		assert.ErrorIs(t, err, backend.ErrMalformedLibraryFile)

		_, err = store.GetLibraryFileAsJSON(ctx, poll, "../../etc/passwd")
		assert.ErrorIs(t, err, backend.ErrLibraryFileNotFound)
	})

	t.Run("content test", func(t *testing.T) {
		metadata, err := store.GetContentMetadata(ctx, "42", nil)
		require.NoError(t, err)
		lib, ok := metadata.MainLibraryName()
		assert.True(t, ok)
		assert.Equal(t, poll, lib)

		params, err := store.GetContentParameters(ctx, "42", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"question": "Why?"}, params)

		_, err = store.GetContentMetadata(ctx, "43", nil)
		assert.ErrorIs(t, err, types.ErrContentNotFound)

		_, err = store.GetContentParameters(ctx, "../42", nil)
		assert.ErrorIs(t, err, types.ErrContentNotFound)
	})
}

func TestWatch(t *testing.T) {
	store, conf := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	changed := map[types.LibraryName]bool{}
	watcher, err := store.Watch(ctx, func(lib types.LibraryName) {
		mu.Lock()
		defer mu.Unlock()
		changed[lib] = true
	})
	require.NoError(t, err)
	defer func() {
		_ = watcher.Close()
	}()

	writeFile(t, filepath.Join(conf.LibrariesDir, "H5P.SharedPoll-1.0", "opSchema.json"), `{"type": "array"}`)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return changed[poll]
	}, 2*time.Second, 10*time.Millisecond)
}
