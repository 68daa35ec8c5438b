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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/internal/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLogicEval(t *testing.T) {
	dir := t.TempDir()
	ctxPath := writeFile(t, dir, "context.json", `{"snapshot": {"votes": 3}, "context": {"user": "u1"}}`)

	t.Run("passing checks test", func(t *testing.T) {
		checks := writeFile(t, dir, "pass.json", `[{"$.snapshot.votes": {"$lte": 10}}, {"$.context.user": "u1"}]`)

		out, err := execute(t, "logic", "eval", "--checks", checks, "--context", ctxPath)
		assert.NoError(t, err)
		assert.Contains(t, out, "$.snapshot.votes")
		assert.Contains(t, out, "$lte")
		assert.NotContains(t, out, "false")
	})

	t.Run("failing checks test", func(t *testing.T) {
		checks := writeFile(t, dir, "fail.json", `[{"$.snapshot.votes": {"$gt": 10}}]`)

		out, err := execute(t, "logic", "eval", "--checks", checks, "--context", ctxPath)
		assert.ErrorIs(t, err, ErrChecksFailed)
		assert.Contains(t, out, "false")
	})

	t.Run("malformed checks test", func(t *testing.T) {
		checks := writeFile(t, dir, "bad.json", `[{"$.snapshot.votes": {"$between": [1, 2]}}]`)

		_, err := execute(t, "logic", "eval", "--checks", checks, "--context", ctxPath)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrChecksFailed)
	})

	t.Run("missing file test", func(t *testing.T) {
		_, err := execute(t, "logic", "eval", "--checks", filepath.Join(dir, "none.json"), "--context", ctxPath)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--output", "json")
	require.NoError(t, err)

	info := versionInfo{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.ProtocolVersion, info.ProtocolVersion)

	_, err = execute(t, "version", "--output", "xml")
	assert.Error(t, err)
	output = ""
}
