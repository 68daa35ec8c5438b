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

// Package validators loads and caches the validation artifacts that
// libraries ship for their shared state.
package validators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/singleflight"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/cache"
	pkgerrors "github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

// ErrInvalidSchema is returned when a library schema cannot be compiled.
var ErrInvalidSchema = pkgerrors.Internal("invalid library schema").WithCode("ErrInvalidLibrarySchema")

// Kind is a kind of validation artifact.
type Kind string

// Below are the artifacts a library may ship.
const (
	OpSchema            Kind = "opSchema"
	SnapshotSchema      Kind = "snapshotSchema"
	OpLogicChecks       Kind = "opLogicCheck"
	SnapshotLogicChecks Kind = "snapshotLogicCheck"
	PresenceSchema      Kind = "presenceSchema"
	PresenceLogicChecks Kind = "presenceLogicCheck"
)

// Filename returns the name of the library file holding the artifact.
func (k Kind) Filename() string {
	return string(k) + ".json"
}

// IsSchema returns whether the artifact is a JSON Schema.
func (k Kind) IsSchema() bool {
	return k == OpSchema || k == SnapshotSchema || k == PresenceSchema
}

// FileStore reads JSON files of libraries.
type FileStore interface {
	GetLibraryFileAsJSON(ctx context.Context, lib types.LibraryName, filename string) (any, error)
}

// Config is the configuration of the repository.
type Config struct {
	// CacheSize is the maximum number of cached artifacts.
	CacheSize int

	// CacheTTL is how long an artifact stays cached. Zero keeps artifacts
	// until they are invalidated.
	CacheTTL time.Duration

	// SchemaDraft is the JSON Schema dialect used for schemas that do not
	// declare one: "2020-12", "2019-09", "7", "6" or "4".
	SchemaDraft string
}

// artifact is a cached lookup result. A nil value marks an absent artifact.
type artifact struct {
	schema *jsonschema.Schema
	checks any
}

// Repository loads artifacts on first use and keeps them cached. It is safe
// for concurrent use.
type Repository struct {
	store  FileStore
	draft  *jsonschema.Draft
	cache  *cache.LRUWithExpires[string, artifact]
	flight singleflight.Group
	logger logging.Logger
}

// NewRepository creates a repository reading artifacts from the store.
func NewRepository(store FileStore, conf Config) (*Repository, error) {
	draft, err := ParseDraft(conf.SchemaDraft)
	if err != nil {
		return nil, err
	}

	c, err := cache.NewLRUWithExpires[string, artifact](conf.CacheSize, conf.CacheTTL, "validators")
	if err != nil {
		return nil, fmt.Errorf("create validator cache: %w", err)
	}

	return &Repository{
		store:  store,
		draft:  draft,
		cache:  c,
		logger: logging.New("validators"),
	}, nil
}

// ParseDraft returns the JSON Schema draft with the given name. An empty name
// selects 2020-12.
func ParseDraft(name string) (*jsonschema.Draft, error) {
	switch strings.TrimPrefix(name, "draft") {
	case "", "2020-12":
		return jsonschema.Draft2020, nil
	case "2019-09":
		return jsonschema.Draft2019, nil
	case "7", "-07":
		return jsonschema.Draft7, nil
	case "6", "-06":
		return jsonschema.Draft6, nil
	case "4", "-04":
		return jsonschema.Draft4, nil
	}
	return nil, fmt.Errorf("unknown schema draft %q", name)
}

// OperationSchema returns the schema of operations, or nil when the library
// does not ship a usable one.
func (r *Repository) OperationSchema(ctx context.Context, lib types.LibraryName) (*jsonschema.Schema, error) {
	a, err := r.get(ctx, OpSchema, lib)
	return a.schema, err
}

// SnapshotSchema returns the schema of snapshots, or nil.
func (r *Repository) SnapshotSchema(ctx context.Context, lib types.LibraryName) (*jsonschema.Schema, error) {
	a, err := r.get(ctx, SnapshotSchema, lib)
	return a.schema, err
}

// PresenceSchema returns the schema of presences, or nil.
func (r *Repository) PresenceSchema(ctx context.Context, lib types.LibraryName) (*jsonschema.Schema, error) {
	a, err := r.get(ctx, PresenceSchema, lib)
	return a.schema, err
}

// OperationLogicChecks returns the logic checks of operations, or nil.
func (r *Repository) OperationLogicChecks(ctx context.Context, lib types.LibraryName) (any, error) {
	a, err := r.get(ctx, OpLogicChecks, lib)
	return a.checks, err
}

// SnapshotLogicChecks returns the logic checks of snapshots, or nil.
func (r *Repository) SnapshotLogicChecks(ctx context.Context, lib types.LibraryName) (any, error) {
	a, err := r.get(ctx, SnapshotLogicChecks, lib)
	return a.checks, err
}

// PresenceLogicChecks returns the logic checks of presences, or nil.
func (r *Repository) PresenceLogicChecks(ctx context.Context, lib types.LibraryName) (any, error) {
	a, err := r.get(ctx, PresenceLogicChecks, lib)
	return a.checks, err
}

// Invalidate drops every cached artifact of the library.
func (r *Repository) Invalidate(lib types.LibraryName) {
	suffix := ":" + lib.String()
	n := r.cache.RemoveFunc(func(key string) bool {
		return strings.HasSuffix(key, suffix)
	})
	if n > 0 {
		r.logger.Infof("invalidated %d artifacts of %s", n, lib)
	}
}

// Purge drops every cached artifact.
func (r *Repository) Purge() {
	r.cache.Purge()
}

// Stats returns the statistics of the artifact cache.
func (r *Repository) Stats() *cache.Stats {
	return r.cache.Stats()
}

func cacheKey(kind Kind, lib types.LibraryName) string {
	return string(kind) + ":" + lib.String()
}

// get returns the cached artifact or loads it. Missing, malformed and
// uncompilable files are cached as absent; any other lookup failure is
// returned without being cached.
func (r *Repository) get(ctx context.Context, kind Kind, lib types.LibraryName) (artifact, error) {
	key := cacheKey(kind, lib)
	if a, ok := r.cache.Get(key); ok {
		return a, nil
	}

	v, err, _ := r.flight.Do(key, func() (interface{}, error) {
		if a, ok := r.cache.Peek(key); ok {
			return a, nil
		}

		// Waiting callers share this load.
		a, err := r.load(context.WithoutCancel(ctx), kind, lib)
		if err != nil {
			if !isAbsent(err) {
				return artifact{}, err
			}
			logging.From(ctx).Warnf("load %s of %s: %v", kind.Filename(), lib, err)
		}
		r.cache.Add(key, a)
		return a, nil
	})
	if err != nil {
		return artifact{}, fmt.Errorf("load %s of %s: %w", kind.Filename(), lib, err)
	}
	return v.(artifact), nil
}

func isAbsent(err error) bool {
	return errors.Is(err, types.ErrLibraryFileNotFound) ||
		errors.Is(err, types.ErrLibraryNotFound) ||
		errors.Is(err, types.ErrMalformedLibraryFile) ||
		errors.Is(err, ErrInvalidSchema)
}

func (r *Repository) load(ctx context.Context, kind Kind, lib types.LibraryName) (artifact, error) {
	doc, err := r.store.GetLibraryFileAsJSON(ctx, lib, kind.Filename())
	if err != nil {
		return artifact{}, err
	}

	if !kind.IsSchema() {
		return artifact{checks: doc}, nil
	}

	schema, err := r.compile(lib, kind, doc)
	if err != nil {
		return artifact{}, fmt.Errorf("%v: %w", err, ErrInvalidSchema)
	}
	return artifact{schema: schema}, nil
}

func (r *Repository) compile(lib types.LibraryName, kind Kind, doc any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	url := fmt.Sprintf("h5p://libraries/%s/%s", lib, kind.Filename())
	compiler := jsonschema.NewCompiler()
	compiler.Draft = r.draft
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
