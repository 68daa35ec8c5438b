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

package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/server/backend/pubsub"
)

func TestPubSub(t *testing.T) {
	ctx := context.Background()

	t.Run("publish skips the publisher test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Config{})

		subA, err := ps.Subscribe(ctx, "a", "content-1")
		require.NoError(t, err)
		subB, err := ps.Subscribe(ctx, "b", "content-1")
		require.NoError(t, err)
		other, err := ps.Subscribe(ctx, "c", "content-2")
		require.NoError(t, err)

		event := pubsub.DocEvent{
			Type:      pubsub.OpCommitted,
			DocID:     "content-1",
			Publisher: "a",
			Op:        &types.Operation{Src: "a", Seq: 1, Version: 3},
		}
		ps.Publish(ctx, event)

		select {
		case got := <-subB.Events():
			assert.Equal(t, event, got)
		case <-time.After(time.Second):
			t.Fatal("event was not delivered")
		}
		assert.Len(t, subA.Events(), 0)
		assert.Len(t, other.Events(), 0)
		assert.Equal(t, []string{"a", "b"}, ps.Subscribers("content-1"))
	})

	t.Run("unsubscribe test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Config{})

		sub, err := ps.Subscribe(ctx, "a", "content-1")
		require.NoError(t, err)
		ps.Unsubscribe(ctx, sub)

		_, ok := <-sub.Events()
		assert.False(t, ok)
		assert.Empty(t, ps.Subscribers("content-1"))

		// publishing to a document without subscribers is a no-op
		ps.Publish(ctx, pubsub.DocEvent{Type: pubsub.OpCommitted, DocID: "content-1"})
	})

	t.Run("subscriber limit test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Config{MaxSubscribers: 1})

		_, err := ps.Subscribe(ctx, "a", "content-1")
		require.NoError(t, err)
		_, err = ps.Subscribe(ctx, "b", "content-1")
		assert.ErrorIs(t, err, pubsub.ErrTooManySubscribers)
		assert.Equal(t, "ErrTooManySubscribers", errors.CodeOf(err))
	})

	t.Run("slow subscriber is dropped test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Config{BufferSize: 1, PublishTimeout: 10 * time.Millisecond})

		slow, err := ps.Subscribe(ctx, "slow", "content-1")
		require.NoError(t, err)

		for seq := 1; seq <= 2; seq++ {
			ps.Publish(ctx, pubsub.DocEvent{
				Type:      pubsub.PresenceUpdated,
				DocID:     "content-1",
				Publisher: "other",
				Presence:  &types.Presence{ID: "other", Seq: int64(seq)},
			})
		}

		assert.Empty(t, ps.Subscribers("content-1"))

		got, ok := <-slow.Events()
		assert.True(t, ok)
		assert.Equal(t, int64(1), got.Presence.Seq)
		_, ok = <-slow.Events()
		assert.False(t, ok)
	})
}
