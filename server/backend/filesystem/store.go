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

// Package filesystem provides the host stores of the standalone server. It
// reads libraries and contents from the directory layout H5P uses on disk:
//
//	<libraries>/<Machine.Name-Major.Minor>/library.json
//	<contents>/<contentID>/h5p.json
//	<contents>/<contentID>/content/content.json
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/internal/validation"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
)

const (
	libraryMetadataFile = "library.json"
	contentMetadataFile = "h5p.json"
	contentParamsFile   = "content.json"
	contentParamsDir    = "content"
)

// Config is the configuration of the filesystem stores.
type Config struct {
	// LibrariesDir is the directory holding the installed libraries.
	LibrariesDir string `yaml:"LibrariesDir" validate:"required"`

	// ContentDir is the directory holding the contents.
	ContentDir string `yaml:"ContentDir" validate:"required"`

	// Watch enables invalidation of cached library artifacts when library
	// files change.
	Watch bool `yaml:"Watch"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	for _, dir := range []string{c.LibrariesDir, c.ContentDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage: %s is not a directory", dir)
		}
	}
	return nil
}

// Store reads libraries and contents from the local filesystem. It
// implements backend.LibraryStore and backend.ContentStore.
type Store struct {
	librariesDir string
	contentDir   string
}

// New creates a Store reading from the configured directories.
func New(conf *Config) *Store {
	return &Store{
		librariesDir: conf.LibrariesDir,
		contentDir:   conf.ContentDir,
	}
}

// GetLibraryMetadata returns the library.json of the library.
func (s *Store) GetLibraryMetadata(_ context.Context, lib types.LibraryName) (*types.LibraryMetadata, error) {
	path, err := s.libraryPath(lib, libraryMetadataFile)
	if err != nil {
		return nil, err
	}

	metadata := &types.LibraryMetadata{}
	if err := readJSON(path, metadata); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", lib, backend.ErrLibraryNotFound)
		}
		return nil, fmt.Errorf("%s: %v: %w", lib, err, backend.ErrMalformedLibraryFile)
	}
	return metadata, nil
}

// GetLibraryFileAsJSON returns the parsed content of a JSON file of the
// library.
func (s *Store) GetLibraryFileAsJSON(_ context.Context, lib types.LibraryName, filename string) (any, error) {
	path, err := s.libraryPath(lib, filename)
	if err != nil {
		return nil, err
	}

	var value any
	if err := readJSON(path, &value); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", lib, filename, backend.ErrLibraryFileNotFound)
		}
		return nil, fmt.Errorf("%s/%s: %v: %w", lib, filename, err, backend.ErrMalformedLibraryFile)
	}
	return value, nil
}

// GetContentMetadata returns the h5p.json of the content.
func (s *Store) GetContentMetadata(_ context.Context, contentID string, _ *types.User) (*types.ContentMetadata, error) {
	path, err := s.contentPath(contentID, contentMetadataFile)
	if err != nil {
		return nil, err
	}

	metadata := &types.ContentMetadata{}
	if err := readJSON(path, metadata); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", contentID, types.ErrContentNotFound)
		}
		return nil, fmt.Errorf("read metadata of %s: %w", contentID, err)
	}
	return metadata, nil
}

// GetContentParameters returns the content.json of the content.
func (s *Store) GetContentParameters(_ context.Context, contentID string, _ *types.User) (any, error) {
	path, err := s.contentPath(contentID, contentParamsDir, contentParamsFile)
	if err != nil {
		return nil, err
	}

	var params any
	if err := readJSON(path, &params); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", contentID, types.ErrContentNotFound)
		}
		return nil, fmt.Errorf("read parameters of %s: %w", contentID, err)
	}
	return params, nil
}

func (s *Store) libraryPath(lib types.LibraryName, filename string) (string, error) {
	if err := validation.ValidateValue(lib.MachineName, "required,machine_name"); err != nil {
		return "", fmt.Errorf("%s: %w", lib, backend.ErrLibraryNotFound)
	}
	if !filepath.IsLocal(filename) {
		return "", fmt.Errorf("%s/%s: %w", lib, filename, backend.ErrLibraryFileNotFound)
	}
	return filepath.Join(s.librariesDir, lib.String(), filename), nil
}

func (s *Store) contentPath(contentID string, elem ...string) (string, error) {
	if err := validation.ValidateValue(contentID, "required,content_id"); err != nil || !filepath.IsLocal(contentID) {
		return "", fmt.Errorf("%q: %w", contentID, types.ErrContentNotFound)
	}
	return filepath.Join(append([]string{s.contentDir, contentID}, elem...)...), nil
}

// libraryOf returns the library whose directory contains the given path.
func (s *Store) libraryOf(path string) (types.LibraryName, bool) {
	rel, err := filepath.Rel(s.librariesDir, path)
	if err != nil || !filepath.IsLocal(rel) {
		return types.LibraryName{}, false
	}

	dir, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	lib, err := types.ParseLibraryName(dir)
	if err != nil {
		return types.LibraryName{}, false
	}
	return lib, true
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
