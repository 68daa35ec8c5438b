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

// Package webhook resolves the permissions of users from the host
// application.
package webhook

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/cache"
	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/pkg/webhook"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

var (
	// ErrPermissionWebhookFailed is returned when the webhook does not answer
	// with a permission.
	ErrPermissionWebhookFailed = errors.Internal("permission webhook failed").WithCode("ErrPermissionWebhookFailed")
)

// PermissionRequest is the body posted to the webhook.
type PermissionRequest struct {
	User      *types.User `json:"user"`
	ContentID string      `json:"contentId"`
}

// PermissionResponse is the body the webhook answers with. An empty
// permission denies access.
type PermissionResponse struct {
	Permission types.Permission `json:"permission"`
}

// PermissionWebhook asks the host application for the permissions of users.
// Answers are cached per user and content.
type PermissionWebhook struct {
	url    string
	secret string
	client *webhook.Client[PermissionRequest, PermissionResponse]
	cache  *cache.LRUWithExpires[string, types.Permission]
	group  singleflight.Group
}

// NewPermissionWebhook creates a new PermissionWebhook.
func NewPermissionWebhook(conf *Config) (*PermissionWebhook, error) {
	ttl, err := time.ParseDuration(conf.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("parse cache ttl %s: %w", conf.CacheTTL, err)
	}

	permissions, err := cache.NewLRUWithExpires[string, types.Permission](conf.CacheSize, ttl, "permission_webhook")
	if err != nil {
		return nil, fmt.Errorf("create permission cache: %w", err)
	}

	return &PermissionWebhook{
		url:    conf.URL,
		secret: conf.Secret,
		client: webhook.NewClient[PermissionRequest, PermissionResponse](conf.options()),
		cache:  permissions,
	}, nil
}

// Permission returns the permission of the user on the content.
func (w *PermissionWebhook) Permission(
	ctx context.Context,
	user *types.User,
	contentID string,
) (types.Permission, error) {
	if user == nil {
		return types.PermissionNone, nil
	}

	key := user.ID + "/" + contentID
	if permission, ok := w.cache.Get(key); ok {
		return permission, nil
	}

	v, err, _ := w.group.Do(key, func() (any, error) {
		req := &PermissionRequest{User: user, ContentID: contentID}
		res, status, err := w.client.Send(ctx, w.url, w.secret, req)
		if err != nil {
			logging.From(ctx).Warnf("permission webhook %d: %v", status, err)
			return types.PermissionNone, fmt.Errorf("%s on %s: %v: %w", user.ID, contentID, err, ErrPermissionWebhookFailed)
		}
		if res.Permission != types.PermissionNone && !res.Permission.Valid() {
			return types.PermissionNone, fmt.Errorf("%q: %w", res.Permission, ErrPermissionWebhookFailed)
		}

		w.cache.Add(key, res.Permission)
		return res.Permission, nil
	})
	if err != nil {
		return types.PermissionNone, err
	}

	return v.(types.Permission), nil
}

// Stats returns the statistics of the permission cache.
func (w *PermissionWebhook) Stats() *cache.Stats {
	return w.cache.Stats()
}

// StaticPermission grants the same permission to every identified user. It
// serves deployments without a permission webhook.
func StaticPermission(permission types.Permission) backend.PermissionFunc {
	return func(_ context.Context, user *types.User, _ string) (types.Permission, error) {
		if user == nil {
			return types.PermissionNone, nil
		}
		return permission, nil
	}
}
