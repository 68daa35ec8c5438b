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

package server

import (
	"errors"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/filesystem"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/rpc/auth"
	"github.com/yorkie-team/h5p-shared-state/server/webhook"
)

// ErrStorageNotConfigured is returned when the standalone host is built
// without a storage section.
var ErrStorageNotConfigured = errors.New("storage is not configured")

// NewHost builds the host collaborators of the standalone server from the
// Storage, Auth and Webhook sections of the config. Libraries and contents
// are read from the filesystem, users are identified by tokens, and
// permissions are asked from the webhook. Without a webhook every identified
// user gets user permission.
func NewHost(conf *Config) (*backend.Host, *filesystem.Store, error) {
	if conf.Storage == nil {
		return nil, nil, ErrStorageNotConfigured
	}
	store := filesystem.New(conf.Storage)

	host := &backend.Host{
		Libraries:  store,
		Contents:   store,
		Permission: webhook.StaticPermission(types.PermissionUser),
	}

	if conf.Auth != nil {
		verifier, err := auth.NewTokenVerifierFromConfig(conf.Auth)
		if err != nil {
			return nil, nil, err
		}
		host.RequestToUser = verifier.RequestToUser
	} else {
		logging.DefaultLogger().Warn("auth is not configured, every connection is anonymous")
	}

	if conf.Webhook != nil && conf.Webhook.Enabled() {
		hook, err := webhook.NewPermissionWebhook(conf.Webhook)
		if err != nil {
			return nil, nil, err
		}
		host.Permission = hook.Permission
	}

	return host, store, nil
}
