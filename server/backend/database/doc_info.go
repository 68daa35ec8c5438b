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

package database

import (
	"time"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
)

// DocInfo is the stored state of a document.
type DocInfo struct {
	// ID is the content id of the document.
	ID string

	// Version is the number of operations committed to the document.
	Version int64

	// Type is the OT type of the document. It is empty once the document is
	// deleted.
	Type string

	// Data is the JSON value of the document.
	Data any

	// CreatedAt is the time when the document was last created.
	CreatedAt time.Time

	// UpdatedAt is the time of the last commit.
	UpdatedAt time.Time
}

// Snapshot returns the snapshot of the document.
func (i *DocInfo) Snapshot() *types.Snapshot {
	return &types.Snapshot{
		ID:      i.ID,
		Version: i.Version,
		Type:    i.Type,
		Data:    json0.Clone(i.Data),
	}
}

// DeepCopy returns a deep copy of the DocInfo.
func (i *DocInfo) DeepCopy() *DocInfo {
	if i == nil {
		return nil
	}

	clone := *i
	clone.Data = json0.Clone(i.Data)
	return &clone
}
