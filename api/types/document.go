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
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
)

// Snapshot is the state of a document at a version.
type Snapshot struct {
	// ID is the content id of the document.
	ID string `json:"-"`

	// Version is the number of operations committed to the document.
	Version int64 `json:"v"`

	// Type is the OT type of the document. It is empty when the document
	// does not exist.
	Type string `json:"type,omitempty"`

	// Data is the JSON value of the document.
	Data any `json:"data"`
}

// Exists returns whether the document has been created and not deleted.
func (s *Snapshot) Exists() bool {
	return s != nil && s.Type != ""
}

// CreateData is the payload of an operation that creates a document.
type CreateData struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Operation is a mutation submitted to a document. Exactly one of Op, Create
// and Del is set.
type Operation struct {
	// Src is the id of the connection that submitted the operation.
	Src string `json:"src,omitempty"`

	// Seq is the sequence number the connection assigned to the operation.
	Seq int64 `json:"seq,omitempty"`

	// Version is the document version the operation is based on. After a
	// commit it is the version the operation was applied at.
	Version int64 `json:"v"`

	Op     json0.Op    `json:"op,omitempty"`
	Create *CreateData `json:"create,omitempty"`
	Del    bool        `json:"del,omitempty"`
}

// IsCreate returns whether the operation creates a document.
func (o *Operation) IsCreate() bool {
	return o.Create != nil
}

// IsDelete returns whether the operation deletes a document.
func (o *Operation) IsDelete() bool {
	return o.Del
}

// IsEdit returns whether the operation edits an existing document.
func (o *Operation) IsEdit() bool {
	return o.Create == nil && !o.Del
}

// Kinds returns how many of op, create and del the operation carries.
func (o *Operation) Kinds() int {
	kinds := 0
	if o.Op != nil {
		kinds++
	}
	if o.Create != nil {
		kinds++
	}
	if o.Del {
		kinds++
	}
	return kinds
}

// Presence is the ephemeral cursor or selection state a connection shares
// with the other subscribers of a document.
type Presence struct {
	// ID identifies the presence channel of the client.
	ID string `json:"id"`

	// Value is the presence value. A nil value clears the presence.
	Value any `json:"p"`

	// Version is the document version the presence refers to.
	Version int64 `json:"v"`

	// Seq is the sequence number the client assigned to the presence.
	Seq int64 `json:"seq,omitempty"`
}
