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

package validators_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/server/validators"
)

var errUnavailable = errors.New("store unavailable")

// countingStore serves library files from memory and counts lookups. While
// fail is set, lookups fail with it.
type countingStore struct {
	mu    sync.Mutex
	files map[string]string
	fail  error
	calls int32
	delay time.Duration
}

func (s *countingStore) GetLibraryFileAsJSON(ctx context.Context, lib types.LibraryName, filename string) (any, error) {
	atomic.AddInt32(&s.calls, 1)
	time.Sleep(s.delay)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	raw, ok := s.files[lib.String()+"/"+filename]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", lib, filename, types.ErrLibraryFileNotFound)
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%s/%s: %v: %w", lib, filename, err, types.ErrMalformedLibraryFile)
	}
	return doc, nil
}

func (s *countingStore) set(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
}

func (s *countingStore) setFail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

var poll = types.LibraryName{MachineName: "H5P.Poll", MajorVersion: 1, MinorVersion: 0}

func newRepository(t *testing.T, store *countingStore, ttl time.Duration) *validators.Repository {
	repo, err := validators.NewRepository(store, validators.Config{CacheSize: 16, CacheTTL: ttl})
	require.NoError(t, err)
	return repo
}

func opSchema(t *testing.T, ctx context.Context, repo *validators.Repository, lib types.LibraryName) *jsonschema.Schema {
	t.Helper()
	schema, err := repo.OperationSchema(ctx, lib)
	require.NoError(t, err)
	return schema
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("compile and cache schemas test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{
			"H5P.Poll-1.0/opSchema.json": `{"type": "object", "required": ["op"]}`,
		}}
		repo := newRepository(t, store, 0)

		schema := opSchema(t, ctx, repo, poll)
		require.NotNil(t, schema)
		assert.NoError(t, validators.Validate(schema, map[string]any{"op": []any{}}))
		assert.Error(t, validators.Validate(schema, map[string]any{"create": true}))

		assert.Same(t, schema, opSchema(t, ctx, repo, poll))
		assert.Equal(t, int32(1), atomic.LoadInt32(&store.calls))
		assert.Equal(t, int64(1), repo.Stats().Hits())
	})

	t.Run("cache absent artifacts test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{}}
		repo := newRepository(t, store, 0)

		for i := 0; i < 2; i++ {
			schema, err := repo.SnapshotSchema(ctx, poll)
			assert.NoError(t, err)
			assert.Nil(t, schema)
		}
		checks, err := repo.SnapshotLogicChecks(ctx, poll)
		assert.NoError(t, err)
		assert.Nil(t, checks)
		assert.Equal(t, int32(2), atomic.LoadInt32(&store.calls))
	})

	t.Run("cache malformed and invalid schemas as absent test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{
			"H5P.Poll-1.0/presenceSchema.json": `{"type": 12}`,
			"H5P.Poll-1.0/snapshotSchema.json": `{"type": `,
		}}
		repo := newRepository(t, store, 0)

		for i := 0; i < 2; i++ {
			schema, err := repo.PresenceSchema(ctx, poll)
			assert.NoError(t, err)
			assert.Nil(t, schema)

			schema, err = repo.SnapshotSchema(ctx, poll)
			assert.NoError(t, err)
			assert.Nil(t, schema)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(&store.calls))
	})

	t.Run("do not cache failed lookups test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{
			"H5P.Poll-1.0/opSchema.json": `{"type": "object"}`,
		}}
		repo := newRepository(t, store, 0)

		store.setFail(errUnavailable)
		schema, err := repo.OperationSchema(ctx, poll)
		assert.ErrorIs(t, err, errUnavailable)
		assert.Nil(t, schema)

		store.setFail(nil)
		assert.NotNil(t, opSchema(t, ctx, repo, poll))
		assert.Equal(t, int32(2), atomic.LoadInt32(&store.calls))
	})

	t.Run("load despite a canceled caller test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{
			"H5P.Poll-1.0/opSchema.json": `{"type": "object"}`,
		}}
		repo := newRepository(t, store, 0)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.NotNil(t, opSchema(t, canceled, repo, poll))
		assert.NotNil(t, opSchema(t, ctx, repo, poll))
		assert.Equal(t, int32(1), atomic.LoadInt32(&store.calls))
	})

	t.Run("return logic checks raw test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{
			"H5P.Poll-1.0/opLogicCheck.json":       `[{"$.op[0].p[0]": "votes"}]`,
			"H5P.Poll-1.0/presenceLogicCheck.json": `[]`,
		}}
		repo := newRepository(t, store, 0)

		checks, err := repo.OperationLogicChecks(ctx, poll)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"$.op[0].p[0]": "votes"}}, checks)

		checks, err = repo.PresenceLogicChecks(ctx, poll)
		require.NoError(t, err)
		assert.Equal(t, []any{}, checks)
	})

	t.Run("collapse concurrent lookups test", func(t *testing.T) {
		store := &countingStore{
			files: map[string]string{"H5P.Poll-1.0/snapshotSchema.json": `{"type": "object"}`},
			delay: 50 * time.Millisecond,
		}
		repo := newRepository(t, store, 0)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				schema, err := repo.SnapshotSchema(ctx, poll)
				assert.NoError(t, err)
				assert.NotNil(t, schema)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), atomic.LoadInt32(&store.calls))
	})

	t.Run("invalidate reloads artifacts test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{}}
		repo := newRepository(t, store, 0)
		quiz := types.LibraryName{MachineName: "H5P.Quiz", MajorVersion: 1, MinorVersion: 0}

		assert.Nil(t, opSchema(t, ctx, repo, poll))
		assert.Nil(t, opSchema(t, ctx, repo, quiz))
		store.set("H5P.Poll-1.0/opSchema.json", `{"type": "object"}`)

		repo.Invalidate(poll)
		assert.NotNil(t, opSchema(t, ctx, repo, poll))
		assert.Nil(t, opSchema(t, ctx, repo, quiz))
		assert.Equal(t, int32(3), atomic.LoadInt32(&store.calls))

		repo.Purge()
		assert.NotNil(t, opSchema(t, ctx, repo, poll))
		assert.Equal(t, int32(4), atomic.LoadInt32(&store.calls))
	})

	t.Run("expire artifacts after the ttl test", func(t *testing.T) {
		store := &countingStore{files: map[string]string{}}
		repo := newRepository(t, store, 20*time.Millisecond)

		assert.Nil(t, opSchema(t, ctx, repo, poll))
		store.set("H5P.Poll-1.0/opSchema.json", `{"type": "object"}`)
		assert.Eventually(t, func() bool {
			schema, err := repo.OperationSchema(ctx, poll)
			return err == nil && schema != nil
		}, time.Second, 10*time.Millisecond)
	})
}

func TestDrafts(t *testing.T) {
	for _, name := range []string{"", "2020-12", "2019-09", "7", "draft-07", "6", "4"} {
		_, err := validators.ParseDraft(name)
		assert.NoError(t, err, name)
	}
	_, err := validators.ParseDraft("3")
	assert.Error(t, err)

	_, err = validators.NewRepository(&countingStore{}, validators.Config{CacheSize: 1, SchemaDraft: "5"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	store := &countingStore{files: map[string]string{
		"H5P.Poll-1.0/snapshotSchema.json": `{
			"type": "object",
			"properties": {"votes": {"type": "object", "additionalProperties": {"type": "integer", "minimum": 0}}}
		}`,
	}}
	repo := newRepository(t, store, 0)
	schema, err := repo.SnapshotSchema(context.Background(), poll)
	require.NoError(t, err)
	require.NotNil(t, schema)

	assert.NoError(t, validators.Validate(schema, map[string]any{"votes": map[string]int{"opt1": 2}}))

	err = validators.Validate(schema, map[string]any{"votes": map[string]any{"opt1": -1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/votes/opt1")
}
