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

package backend

import (
	"context"
	"net/http"

	"github.com/yorkie-team/h5p-shared-state/api/types"
)

var (
	// ErrLibraryNotFound is returned when a library is not installed.
	ErrLibraryNotFound = types.ErrLibraryNotFound

	// ErrLibraryFileNotFound is returned when a library does not ship a file.
	ErrLibraryFileNotFound = types.ErrLibraryFileNotFound

	// ErrMalformedLibraryFile is returned when a library file is not valid JSON.
	ErrMalformedLibraryFile = types.ErrMalformedLibraryFile
)

// LibraryStore gives access to the installed libraries of the host.
type LibraryStore interface {
	// GetLibraryMetadata returns the metadata (library.json) of the library.
	GetLibraryMetadata(ctx context.Context, lib types.LibraryName) (*types.LibraryMetadata, error)

	// GetLibraryFileAsJSON returns the parsed content of a JSON file of the
	// library. It returns ErrLibraryFileNotFound when the file does not exist
	// and ErrMalformedLibraryFile when it cannot be parsed.
	GetLibraryFileAsJSON(ctx context.Context, lib types.LibraryName, filename string) (any, error)
}

// ContentStore gives access to the contents of the host.
type ContentStore interface {
	// GetContentMetadata returns the metadata (h5p.json) of the content. It
	// returns types.ErrContentNotFound when the content does not exist.
	GetContentMetadata(ctx context.Context, contentID string, user *types.User) (*types.ContentMetadata, error)

	// GetContentParameters returns the parameters (content.json) of the
	// content.
	GetContentParameters(ctx context.Context, contentID string, user *types.User) (any, error)
}

// RequestToUserFunc resolves the user of a connection request. It returns a
// nil user for anonymous requests.
type RequestToUserFunc func(r *http.Request) (*types.User, error)

// PermissionFunc returns the permission of the user on the content. An empty
// permission denies access.
type PermissionFunc func(ctx context.Context, user *types.User, contentID string) (types.Permission, error)

// Host is the set of collaborators the host system provides.
type Host struct {
	Libraries     LibraryStore
	Contents      ContentStore
	RequestToUser RequestToUserFunc
	Permission    PermissionFunc
}
