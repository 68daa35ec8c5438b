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

// OpInfo is an operation committed to a document.
type OpInfo struct {
	// DocID is the content id of the document.
	DocID string

	// Version is the version of the document the operation was applied at.
	Version int64

	// Src is the id of the connection that submitted the operation.
	Src string

	// Seq is the sequence number the connection assigned to the operation.
	Seq int64

	Op     json0.Op
	Create *types.CreateData
	Del    bool

	// CommittedAt is the time when the operation was committed.
	CommittedAt time.Time
}

// NewOpInfo creates the record of an operation committed at the given
// version.
func NewOpInfo(docID string, version int64, op *types.Operation) *OpInfo {
	info := &OpInfo{
		DocID:       docID,
		Version:     version,
		Src:         op.Src,
		Seq:         op.Seq,
		Op:          op.Op.Clone(),
		Del:         op.Del,
		CommittedAt: time.Now(),
	}
	if op.Create != nil {
		info.Create = &types.CreateData{Type: op.Create.Type, Data: json0.Clone(op.Create.Data)}
	}
	return info
}

// Operation returns the committed operation.
func (i *OpInfo) Operation() *types.Operation {
	clone := i.DeepCopy()
	return &types.Operation{
		Src:     clone.Src,
		Seq:     clone.Seq,
		Version: clone.Version,
		Op:      clone.Op,
		Create:  clone.Create,
		Del:     clone.Del,
	}
}

// DeepCopy returns a deep copy of the OpInfo.
func (i *OpInfo) DeepCopy() *OpInfo {
	if i == nil {
		return nil
	}

	clone := *i
	clone.Op = i.Op.Clone()
	if i.Create != nil {
		clone.Create = &types.CreateData{Type: i.Create.Type, Data: json0.Clone(i.Create.Data)}
	}
	return &clone
}
