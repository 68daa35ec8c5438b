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

package middleware

import (
	"github.com/rs/xid"

	"github.com/yorkie-team/h5p-shared-state/api/types"
)

// Agent is the state of a connection shared by the stages of its requests.
// A connection processes its messages one at a time, so the per-operation
// fields are never written concurrently.
type Agent struct {
	// ID is the unique id of the connection.
	ID string

	// User is the identity resolved when the connection was opened. It is
	// nil for anonymous connections.
	User *types.User

	// FromServer marks connections opened by the server itself. They bypass
	// authorization and validation.
	FromServer bool

	// Permission is the permission of the user on the content of the current
	// operation.
	Permission types.Permission

	// Params are the parameters of the content of the current operation.
	Params any

	// Ubername is the name of the main library of the content of the current
	// operation, e.g. "H5P.SharedPoll-1.0".
	Ubername string

	// LibraryMetadata is the metadata of the main library of the content of
	// the current operation.
	LibraryMetadata *types.LibraryMetadata
}

// NewAgent creates the agent of a connection opened by a client.
func NewAgent() *Agent {
	return &Agent{ID: xid.New().String()}
}

// NewServerAgent creates the agent of a connection opened by the server.
func NewServerAgent() *Agent {
	return &Agent{ID: "server-" + xid.New().String(), FromServer: true}
}

// Library returns the name of the main library of the current operation.
func (a *Agent) Library() (types.LibraryName, bool) {
	if a.LibraryMetadata == nil {
		return types.LibraryName{}, false
	}
	return a.LibraryMetadata.Name(), true
}

// reset clears the per-operation fields.
func (a *Agent) reset() {
	a.Permission = types.PermissionNone
	a.Params = nil
	a.Ubername = ""
	a.LibraryMetadata = nil
}

// userContext returns the "context" object handed to logic checks.
func (a *Agent) userContext() map[string]any {
	return map[string]any{
		"user":       a.User,
		"permission": a.Permission,
	}
}
