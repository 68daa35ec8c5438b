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

// Package pubsub delivers committed operations and presences of a document
// to the connections subscribed to it.
package pubsub

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/cmap"
	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

var (
	// ErrTooManySubscribers is returned when the subscription limit is exceeded.
	ErrTooManySubscribers = errors.ResourceExhausted("subscription limit exceeded").WithCode("ErrTooManySubscribers")
)

// EventType is the type of a document event.
type EventType string

// Below are the types of document events.
const (
	OpCommitted     EventType = "op"
	PresenceUpdated EventType = "presence"
)

// DocEvent is an event published to the subscribers of a document.
type DocEvent struct {
	Type EventType

	// DocID is the content id of the document.
	DocID string

	// Publisher is the id of the connection the event originates from. The
	// publisher does not receive its own events.
	Publisher string

	Op       *types.Operation
	Presence *types.Presence
}

// Config is the configuration of PubSub.
type Config struct {
	// BufferSize is the number of events buffered per subscription.
	BufferSize int

	// PublishTimeout is how long publishing waits for a full buffer to drain.
	// A subscription that cannot keep up is closed.
	PublishTimeout time.Duration

	// MaxSubscribers is the maximum number of subscribers of a document. Zero
	// means unlimited.
	MaxSubscribers int
}

// PubSub is the memory implementation of PubSub, used for single server.
type PubSub struct {
	conf    Config
	docSubs *cmap.Map[string, *cmap.Map[string, *Subscription]]
}

// New creates an instance of PubSub.
func New(conf Config) *PubSub {
	if conf.BufferSize <= 0 {
		conf.BufferSize = 64
	}
	if conf.PublishTimeout <= 0 {
		conf.PublishTimeout = 100 * time.Millisecond
	}

	return &PubSub{
		conf:    conf,
		docSubs: cmap.New[string, *cmap.Map[string, *Subscription]](),
	}
}

// Subscribe subscribes the connection to the events of the document.
func (m *PubSub) Subscribe(ctx context.Context, subscriber, docID string) (*Subscription, error) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s)`, docID, subscriber)
	}

	var newSub *Subscription
	m.docSubs.Upsert(docID, func(subs *cmap.Map[string, *Subscription], exists bool) *cmap.Map[string, *Subscription] {
		if !exists {
			subs = cmap.New[string, *Subscription]()
		}
		if m.conf.MaxSubscribers > 0 && subs.Len() >= m.conf.MaxSubscribers {
			return subs
		}

		newSub = newSubscription(docID, subscriber, m.conf.BufferSize, m.conf.PublishTimeout)
		subs.Set(newSub.ID(), newSub)
		return subs
	})

	if newSub == nil {
		return nil, fmt.Errorf("%d subscribers allowed per document: %w", m.conf.MaxSubscribers, ErrTooManySubscribers)
	}
	return newSub, nil
}

// Unsubscribe closes the subscription and forgets it.
func (m *PubSub) Unsubscribe(ctx context.Context, sub *Subscription) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s)`, sub.DocID(), sub.Subscriber())
	}

	sub.Close()
	m.docSubs.Delete(sub.DocID(), func(subs *cmap.Map[string, *Subscription], exists bool) bool {
		if !exists {
			return false
		}
		subs.Delete(sub.ID(), func(_ *Subscription, exists bool) bool {
			return exists
		})
		return subs.Len() == 0
	})
}

// Publish delivers the event to every subscriber of the document except the
// publisher. Subscriptions that cannot keep up are closed and removed.
func (m *PubSub) Publish(ctx context.Context, event DocEvent) {
	subs, ok := m.docSubs.Get(event.DocID)
	if !ok {
		return
	}

	targets := subs.Values()
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].ID() < targets[j].ID()
	})

	for _, sub := range targets {
		if sub.Subscriber() == event.Publisher {
			continue
		}
		if !sub.publish(event) {
			logging.From(ctx).Warnf("drop slow subscriber %s of %s", sub.Subscriber(), event.DocID)
			m.Unsubscribe(ctx, sub)
		}
	}
}

// Subscribers returns the ids of the connections subscribed to the document.
func (m *PubSub) Subscribers(docID string) []string {
	subs, ok := m.docSubs.Get(docID)
	if !ok {
		return nil
	}

	var ids []string
	for _, sub := range subs.Values() {
		ids = append(ids, sub.Subscriber())
	}
	sort.Strings(ids)
	return ids
}
