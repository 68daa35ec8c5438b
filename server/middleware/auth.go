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
	"context"
	"fmt"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

const sharedStateExtensionVersion = 1

var (
	// ErrNoUser is returned when an anonymous connection submits a request.
	ErrNoUser = errors.Unauthenticated("no user").WithCode("ErrNoUser")

	// ErrPermissionDenied is returned when the user may not access the content.
	ErrPermissionDenied = errors.PermissionDenied("permission denied").WithCode("ErrPermissionDenied")

	// ErrUnsupportedExtensionVersion is returned when the main library of the
	// content does not speak the supported shared-state extension version.
	ErrUnsupportedExtensionVersion = errors.FailedPrecond(
		"unsupported shared-state extension version",
	).WithCode("ErrUnsupportedExtensionVersion")

	// ErrMainLibraryNotResolved is returned when the main library of the
	// content is not one of its preloaded dependencies.
	ErrMainLibraryNotResolved = errors.FailedPrecond(
		"main library is not a preloaded dependency",
	).WithCode("ErrMainLibraryNotResolved")
)

// InjectUser resolves the user of a new connection. Failures leave the user
// unset so that later stages reject the requests of the connection.
func InjectUser(requestToUser backend.RequestToUserFunc) Middleware {
	return func(ctx context.Context, req *Request) error {
		if req.Agent.FromServer || requestToUser == nil || req.HTTPRequest == nil {
			return nil
		}

		user, err := requestToUser(req.HTTPRequest)
		if err != nil {
			logging.From(ctx).Warnf("resolve user of %s: %v", req.Agent.ID, err)
			return nil
		}
		if user == nil {
			logging.From(ctx).Debugf("anonymous connection %s", req.Agent.ID)
			return nil
		}

		req.Agent.User = user
		return nil
	}
}

// InjectPermission authorizes the user on the content of the request and
// loads the parameters and the main library of the content onto the agent.
func InjectPermission(host *backend.Host) Middleware {
	return func(ctx context.Context, req *Request) error {
		agent := req.Agent
		if agent.FromServer {
			return nil
		}
		agent.reset()

		if agent.User == nil {
			return ErrNoUser
		}

		if host.Permission == nil {
			return ErrPermissionDenied
		}
		permission, err := host.Permission(ctx, agent.User, req.ContentID)
		if err != nil {
			logging.From(ctx).Warnf("permission of %s on %s: %v", agent.User.ID, req.ContentID, err)
			return fmt.Errorf("%s on %s: %w", agent.User.ID, req.ContentID, ErrPermissionDenied)
		}
		if !permission.Valid() {
			return fmt.Errorf("%s on %s: %w", agent.User.ID, req.ContentID, ErrPermissionDenied)
		}
		agent.Permission = permission

		if req.ContentID == "" {
			return nil
		}

		metadata, err := host.Contents.GetContentMetadata(ctx, req.ContentID, agent.User)
		if err != nil {
			return fmt.Errorf("get metadata of %s: %w", req.ContentID, err)
		}
		lib, ok := metadata.MainLibraryName()
		if !ok {
			return fmt.Errorf("%s of %s: %w", metadata.MainLibrary, req.ContentID, ErrMainLibraryNotResolved)
		}

		libMetadata, err := host.Libraries.GetLibraryMetadata(ctx, lib)
		if err != nil {
			return fmt.Errorf("get metadata of %s: %w", lib, err)
		}
		if v := libMetadata.SharedStateVersion(); v != sharedStateExtensionVersion {
			return fmt.Errorf("%s declares %d: %w", lib, v, ErrUnsupportedExtensionVersion)
		}

		params, err := host.Contents.GetContentParameters(ctx, req.ContentID, agent.User)
		if err != nil {
			return fmt.Errorf("get parameters of %s: %w", req.ContentID, err)
		}

		agent.Ubername = lib.String()
		agent.LibraryMetadata = libMetadata
		agent.Params = params
		return nil
	}
}
