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
	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

// ErrContentNotFound is returned by content stores when a content id does not
// resolve.
var ErrContentNotFound = errors.NotFound("content not found").WithCode("ErrContentNotFound")

// ContentMetadata is the part of a content's h5p.json the server reads.
type ContentMetadata struct {
	Title                 string        `json:"title,omitempty"`
	MainLibrary           string        `json:"mainLibrary"`
	PreloadedDependencies []LibraryName `json:"preloadedDependencies"`
}

// MainLibraryName resolves the version of the main library by matching its
// machine name against the preloaded dependencies.
func (m *ContentMetadata) MainLibraryName() (LibraryName, bool) {
	for _, dep := range m.PreloadedDependencies {
		if dep.MachineName == m.MainLibrary {
			return dep, true
		}
	}
	return LibraryName{}, false
}
