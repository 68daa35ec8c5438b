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

// Package helper provides an in-memory host and library fixtures for tests.
package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/logic"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/housekeeping"
	"github.com/yorkie-team/h5p-shared-state/server/middleware"
	"github.com/yorkie-team/h5p-shared-state/server/profiling/prometheus"
)

// UserHeader is the request header the test host reads the user id from.
const UserHeader = "X-Test-User"

// Below are the fixtures every new Host carries.
var (
	// PollLibrary ships every validation artifact.
	PollLibrary = types.LibraryName{MachineName: "H5P.SharedPoll", MajorVersion: 1, MinorVersion: 0}

	// LegacyLibrary does not declare the shared-state extension.
	LegacyLibrary = types.LibraryName{MachineName: "H5P.Legacy", MajorVersion: 1, MinorVersion: 2}

	// PlainLibrary declares the extension but ships no artifacts.
	PlainLibrary = types.LibraryName{MachineName: "H5P.SharedNotes", MajorVersion: 2, MinorVersion: 0}
)

// Below are the contents every new Host carries.
const (
	PollContent   = "poll"
	LegacyContent = "legacy"
	PlainContent  = "notes"
)

var pollFiles = map[string]string{
	"opSchema.json": `{
		"type": "object",
		"properties": {
			"op": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["p"],
					"properties": {"p": {"type": "array", "minItems": 2}}
				}
			},
			"create": {"type": "object", "properties": {"type": {"const": "json0"}}},
			"del": {"const": true}
		},
		"additionalProperties": false
	}`,
	"snapshotSchema.json": `{
		"type": "object",
		"required": ["votes"],
		"properties": {
			"votes": {
				"type": "object",
				"additionalProperties": {"type": "number", "minimum": 0}
			}
		}
	}`,
	"opLogicCheck.json": `[
		{"$.op[*].p[1]": {"$in": {"$query": "$.params.options[*].id"}}},
		{"$.op[*].na": {"$in": [1, -1]}}
	]`,
	"snapshotLogicCheck.json": `[
		{"$.snapshot.votes[*]~": {"$in": {"$query": "$.params.options[*].id"}}}
	]`,
	"presenceSchema.json": `{
		"type": "object",
		"required": ["option"],
		"properties": {"option": {"type": "string"}}
	}`,
	"presenceLogicCheck.json": `[
		{"$.presence.option": {"$in": {"$query": "$.params.options[*].id"}}}
	]`,
}

// PollParams returns the parameters of PollContent.
func PollParams() any {
	return MustParse(`{"question": "Best option?", "options": [{"id": "opt1"}, {"id": "opt2"}, {"id": "opt3"}]}`)
}

// MustParse parses a JSON document or panics.
func MustParse(doc string) any {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		panic(fmt.Sprintf("parse %s: %v", doc, err))
	}
	return v
}

type library struct {
	metadata *types.LibraryMetadata
	files    map[string]any
}

type content struct {
	metadata *types.ContentMetadata
	params   any
}

// Host is an in-memory implementation of the host collaborators. It is safe
// for concurrent use.
type Host struct {
	mu          sync.Mutex
	libraries   map[types.LibraryName]*library
	contents    map[string]*content
	permissions map[string]types.Permission
	lookups     map[string]int
}

// NewHost creates a host with the fixture libraries and contents. Every user
// has user permission until SetPermission says otherwise.
func NewHost() *Host {
	h := &Host{
		libraries:   make(map[types.LibraryName]*library),
		contents:    make(map[string]*content),
		permissions: make(map[string]types.Permission),
		lookups:     make(map[string]int),
	}

	files := make(map[string]any, len(pollFiles))
	for name, doc := range pollFiles {
		files[name] = MustParse(doc)
	}
	h.AddLibrary(&types.LibraryMetadata{
		Title:              "Shared Poll",
		MachineName:        PollLibrary.MachineName,
		MajorVersion:       PollLibrary.MajorVersion,
		MinorVersion:       PollLibrary.MinorVersion,
		RequiredExtensions: &types.RequiredExtensions{SharedState: 1},
		State: &types.StateArtifacts{
			OpSchema:            true,
			SnapshotSchema:      true,
			OpLogicChecks:       true,
			SnapshotLogicChecks: true,
			PresenceSchema:      true,
			PresenceLogicChecks: true,
		},
	}, files)
	h.AddLibrary(&types.LibraryMetadata{
		Title:        "Legacy",
		MachineName:  LegacyLibrary.MachineName,
		MajorVersion: LegacyLibrary.MajorVersion,
		MinorVersion: LegacyLibrary.MinorVersion,
	}, nil)
	h.AddLibrary(&types.LibraryMetadata{
		Title:              "Shared Notes",
		MachineName:        PlainLibrary.MachineName,
		MajorVersion:       PlainLibrary.MajorVersion,
		MinorVersion:       PlainLibrary.MinorVersion,
		RequiredExtensions: &types.RequiredExtensions{SharedState: 1},
	}, nil)

	h.AddContent(PollContent, PollLibrary, PollParams())
	h.AddContent(LegacyContent, LegacyLibrary, map[string]any{})
	h.AddContent(PlainContent, PlainLibrary, map[string]any{})
	return h
}

// AddLibrary installs a library with the given JSON files.
func (h *Host) AddLibrary(metadata *types.LibraryMetadata, files map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.libraries[metadata.Name()] = &library{metadata: metadata, files: files}
}

// SetLibraryFile replaces a JSON file of an installed library.
func (h *Host) SetLibraryFile(lib types.LibraryName, filename string, doc any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.libraries[lib].files[filename] = doc
}

// AddContent creates a content whose main library is lib.
func (h *Host) AddContent(contentID string, lib types.LibraryName, params any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.contents[contentID] = &content{
		metadata: &types.ContentMetadata{
			Title:                 contentID,
			MainLibrary:           lib.MachineName,
			PreloadedDependencies: []types.LibraryName{lib},
		},
		params: params,
	}
}

// RemoveContent deletes a content.
func (h *Host) RemoveContent(contentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.contents, contentID)
}

// SetPermission sets the permission of the user on every content.
func (h *Host) SetPermission(userID string, permission types.Permission) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.permissions[userID] = permission
}

// Lookups returns how many times the file of the library was read.
func (h *Host) Lookups(lib types.LibraryName, filename string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lookups[lib.String()+"/"+filename]
}

// GetLibraryMetadata returns the metadata of an installed library.
func (h *Host) GetLibraryMetadata(_ context.Context, lib types.LibraryName) (*types.LibraryMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.libraries[lib]
	if !ok {
		return nil, fmt.Errorf("%s: %w", lib, backend.ErrLibraryNotFound)
	}
	return l.metadata, nil
}

// GetLibraryFileAsJSON returns a JSON file of an installed library.
func (h *Host) GetLibraryFileAsJSON(_ context.Context, lib types.LibraryName, filename string) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lookups[lib.String()+"/"+filename]++
	l, ok := h.libraries[lib]
	if !ok {
		return nil, fmt.Errorf("%s: %w", lib, backend.ErrLibraryNotFound)
	}
	doc, ok := l.files[filename]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", lib, filename, backend.ErrLibraryFileNotFound)
	}
	return doc, nil
}

// GetContentMetadata returns the metadata of a content.
func (h *Host) GetContentMetadata(_ context.Context, contentID string, _ *types.User) (*types.ContentMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.contents[contentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", contentID, types.ErrContentNotFound)
	}
	return c.metadata, nil
}

// GetContentParameters returns the parameters of a content.
func (h *Host) GetContentParameters(_ context.Context, contentID string, _ *types.User) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.contents[contentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", contentID, types.ErrContentNotFound)
	}
	return c.params, nil
}

// Permission returns the permission of the user.
func (h *Host) Permission(_ context.Context, user *types.User, _ string) (types.Permission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if permission, ok := h.permissions[user.ID]; ok {
		return permission, nil
	}
	return types.PermissionUser, nil
}

// RequestToUser reads the user id from the UserHeader header or the "user"
// query parameter. Requests without either are anonymous.
func (h *Host) RequestToUser(r *http.Request) (*types.User, error) {
	id := r.Header.Get(UserHeader)
	if id == "" {
		id = r.URL.Query().Get("user")
	}
	if id == "" {
		return nil, nil
	}
	return &types.User{ID: id, Name: "User " + id, Type: "local"}, nil
}

// Backend returns the host collaborators backed by this host.
func (h *Host) Backend() *backend.Host {
	return &backend.Host{
		Libraries:     h,
		Contents:      h,
		RequestToUser: h.RequestToUser,
		Permission:    h.Permission,
	}
}

// BackendConfig returns a backend configuration for tests.
func BackendConfig() *backend.Config {
	return &backend.Config{
		ValidatorCacheSize:     100,
		ValidatorCacheTTL:      "0",
		SubscriptionBufferSize: 64,
		PublishTimeout:         "1s",
	}
}

// NewBackend creates a backend over the host and the default pipeline. The
// backend is shut down when the test ends.
func NewBackend(t *testing.T, host *Host) (*backend.Backend, *middleware.Pipeline) {
	t.Helper()

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(BackendConfig(), &housekeeping.Config{
		Interval:       "1m",
		MaxConcurrency: 1,
	}, host.Backend(), metrics)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, be.Shutdown())
	})

	return be, middleware.Default(host.Backend(), be.Validators, logic.Default)
}
