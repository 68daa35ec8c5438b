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

// Package types provides the types shared by the shared-state server, its
// host integrations and its clients.
package types

// User is the identity acting on a connection.
type User struct {
	// ID is the unique ID of the user in the host system.
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name,omitempty"`

	// Email is the email address of the user.
	Email string `json:"email,omitempty"`

	// Type is the kind of account, e.g. "local" or "external".
	Type string `json:"type,omitempty"`
}

// Permission is the coarse privilege level a user has on a content.
type Permission string

// Below are the permission levels. The empty permission denies access.
const (
	PermissionNone       Permission = ""
	PermissionUser       Permission = "user"
	PermissionPrivileged Permission = "privileged"
)

// Valid returns whether the permission grants access.
func (p Permission) Valid() bool {
	return p == PermissionUser || p == PermissionPrivileged
}
