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

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	pkgerrors "github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

var (
	// ErrInvalidLibraryName is returned when a library name cannot be parsed.
	ErrInvalidLibraryName = errors.New("invalid library name")

	// ErrLibraryNotFound is returned when a library is not installed.
	ErrLibraryNotFound = pkgerrors.NotFound("library not found").WithCode("ErrLibraryNotFound")

	// ErrLibraryFileNotFound is returned when a library does not ship a file.
	ErrLibraryFileNotFound = pkgerrors.NotFound("library file not found").WithCode("ErrLibraryFileNotFound")

	// ErrMalformedLibraryFile is returned when a library file is not valid JSON.
	ErrMalformedLibraryFile = pkgerrors.Internal("malformed library file").WithCode("ErrMalformedLibraryFile")
)

var ubernameRegex = regexp.MustCompile(`^([\w.-]+)[ -](\d+)\.(\d+)$`)

// LibraryName identifies a version of a library.
type LibraryName struct {
	MachineName  string `json:"machineName"`
	MajorVersion int    `json:"majorVersion"`
	MinorVersion int    `json:"minorVersion"`
}

// ParseLibraryName parses an ubername like "H5P.Poll-1.2" or "H5P.Poll 1.2".
func ParseLibraryName(ubername string) (LibraryName, error) {
	m := ubernameRegex.FindStringSubmatch(ubername)
	if m == nil {
		return LibraryName{}, fmt.Errorf("%q: %w", ubername, ErrInvalidLibraryName)
	}

	major, err := strconv.Atoi(m[2])
	if err != nil {
		return LibraryName{}, fmt.Errorf("%q: %w", ubername, ErrInvalidLibraryName)
	}
	minor, err := strconv.Atoi(m[3])
	if err != nil {
		return LibraryName{}, fmt.Errorf("%q: %w", ubername, ErrInvalidLibraryName)
	}

	return LibraryName{MachineName: m[1], MajorVersion: major, MinorVersion: minor}, nil
}

// String returns the ubername of the library, e.g. "H5P.Poll-1.2".
func (n LibraryName) String() string {
	return fmt.Sprintf("%s-%d.%d", n.MachineName, n.MajorVersion, n.MinorVersion)
}

// RequiredExtensions lists the server extensions a library needs.
type RequiredExtensions struct {
	// SharedState is the version of the shared-state protocol the library
	// speaks. Only version 1 is supported.
	SharedState int `json:"sharedState,omitempty"`
}

// StateArtifacts declares which validation artifacts a library ships.
type StateArtifacts struct {
	OpSchema            bool `json:"opSchema,omitempty"`
	SnapshotSchema      bool `json:"snapshotSchema,omitempty"`
	OpLogicChecks       bool `json:"opLogicChecks,omitempty"`
	SnapshotLogicChecks bool `json:"snapshotLogicChecks,omitempty"`
	PresenceSchema      bool `json:"presenceSchema,omitempty"`
	PresenceLogicChecks bool `json:"presenceLogicChecks,omitempty"`
}

// LibraryMetadata is the part of a library's library.json the server reads.
type LibraryMetadata struct {
	Title        string `json:"title,omitempty"`
	MachineName  string `json:"machineName"`
	MajorVersion int    `json:"majorVersion"`
	MinorVersion int    `json:"minorVersion"`
	PatchVersion int    `json:"patchVersion"`

	RequiredExtensions *RequiredExtensions `json:"requiredExtensions,omitempty"`
	State              *StateArtifacts     `json:"state,omitempty"`
}

// Name returns the name of the library version described by the metadata.
func (m *LibraryMetadata) Name() LibraryName {
	return LibraryName{
		MachineName:  m.MachineName,
		MajorVersion: m.MajorVersion,
		MinorVersion: m.MinorVersion,
	}
}

// SharedStateVersion returns the shared-state extension version the library
// declares, or 0 when it declares none.
func (m *LibraryMetadata) SharedStateVersion() int {
	if m == nil || m.RequiredExtensions == nil {
		return 0
	}
	return m.RequiredExtensions.SharedState
}

// Artifacts returns the declared validation artifacts. A library without a
// state section declares none.
func (m *LibraryMetadata) Artifacts() StateArtifacts {
	if m == nil || m.State == nil {
		return StateArtifacts{}
	}
	return *m.State
}
