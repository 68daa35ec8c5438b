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

package documents

import (
	"context"
	"fmt"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	pkgerrors "github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/pubsub"
	"github.com/yorkie-team/h5p-shared-state/server/backend/sync"
	"github.com/yorkie-team/h5p-shared-state/server/middleware"
)

var (
	// ErrInvalidPresence is returned when a presence has no id or refers to a
	// version the document has not reached.
	ErrInvalidPresence = pkgerrors.InvalidArgument("invalid presence").WithCode("ErrInvalidPresence")
)

// BroadcastPresence runs the presence through the pipeline and publishes it
// to the other subscribers of the document.
func BroadcastPresence(
	ctx context.Context,
	be *backend.Backend,
	pipe *middleware.Pipeline,
	agent *middleware.Agent,
	contentID string,
	presence *types.Presence,
) (err error) {
	defer func() {
		be.Metrics.AddPresence(codeOf(err))
	}()

	if presence == nil || presence.ID == "" {
		return fmt.Errorf("missing id: %w", ErrInvalidPresence)
	}

	req := &middleware.Request{Agent: agent, ContentID: contentID, Presence: presence}
	if err := pipe.Run(ctx, middleware.PresenceStage, req); err != nil {
		return err
	}

	// Presences are published under the lock so that subscribers receive them
	// after the operations they refer to.
	locker := be.Lockers.Locker(sync.NewKey(contentID))
	locker.Lock()
	defer unlock(ctx, locker)

	info, err := findDocInfo(ctx, be, contentID)
	if err != nil {
		return err
	}
	if presence.Version > info.Version {
		return fmt.Errorf("presence@%d, doc@%d: %w", presence.Version, info.Version, ErrInvalidPresence)
	}

	be.PubSub.Publish(ctx, pubsub.DocEvent{
		Type:      pubsub.PresenceUpdated,
		DocID:     contentID,
		Publisher: agent.ID,
		Presence: &types.Presence{
			ID:      presence.ID,
			Value:   json0.Clone(presence.Value),
			Version: presence.Version,
			Seq:     presence.Seq,
		},
	})
	be.Metrics.AddBroadcast(string(pubsub.PresenceUpdated))
	return nil
}
