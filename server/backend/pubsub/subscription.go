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

package pubsub

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// Subscription represents a subscription of a connection to the events of a
// document.
type Subscription struct {
	id         string
	docID      string
	subscriber string
	timeout    time.Duration

	mu     sync.Mutex
	closed bool
	events chan DocEvent
}

func newSubscription(docID, subscriber string, bufSize int, timeout time.Duration) *Subscription {
	return &Subscription{
		id:         xid.New().String(),
		docID:      docID,
		subscriber: subscriber,
		timeout:    timeout,
		events:     make(chan DocEvent, bufSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// DocID returns the content id of the subscribed document.
func (s *Subscription) DocID() string {
	return s.docID
}

// Subscriber returns the id of the subscribed connection.
func (s *Subscription) Subscriber() string {
	return s.subscriber
}

// Events returns the event channel of this subscription. The channel is
// closed when the subscription is closed.
func (s *Subscription) Events() <-chan DocEvent {
	return s.events
}

// Close closes all resources of this Subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// publish delivers the event, waiting at most the publish timeout when the
// buffer is full. It returns false if the event could not be delivered.
func (s *Subscription) publish(event DocEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return true
	default:
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case s.events <- event:
		return true
	case <-timer.C:
		return false
	}
}
