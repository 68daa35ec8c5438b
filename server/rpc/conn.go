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

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/server/backend/pubsub"
	"github.com/yorkie-team/h5p-shared-state/server/documents"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/middleware"
)

// subscription is a document a connection is subscribed to.
type subscription struct {
	collection string
	sub        *pubsub.Subscription
}

// conn is a client connection. Its messages are read and handled one at a
// time by the read loop, and written by the write loop.
type conn struct {
	server  *Server
	ws      *websocket.Conn
	agent   *middleware.Agent
	logger  logging.Logger
	limiter *rate.Limiter

	send    chan []byte
	closing chan struct{}
	once    gosync.Once

	mu   gosync.Mutex
	subs map[string]*subscription
}

func newConn(s *Server, ws *websocket.Conn, agent *middleware.Agent) *conn {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if s.conf.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.conf.MessagesPerSecond), s.conf.MessageBurst)
	}

	return &conn{
		server:  s,
		ws:      ws,
		agent:   agent,
		logger:  logging.New("rpc", logging.NewField("conn", agent.ID)),
		limiter: limiter,
		send:    make(chan []byte, s.conf.SendBufferSize),
		closing: make(chan struct{}),
		subs:    make(map[string]*subscription),
	}
}

// run serves the connection until it is closed.
func (c *conn) run(ctx context.Context) {
	if c.agent.User != nil {
		c.logger = c.logger.With("user", c.agent.User.ID)
	}
	ctx = logging.With(ctx, c.logger)

	go c.writeLoop()
	c.push(handshake(c.agent.ID))
	c.readLoop(ctx)
}

// close closes the connection and releases its subscriptions. It is safe to
// call more than once.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.closing)
		if err := c.ws.Close(); err != nil {
			c.logger.Debugf("close: %v", err)
		}

		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]*subscription)
		c.mu.Unlock()

		for _, s := range subs {
			c.server.be.PubSub.Unsubscribe(context.Background(), s.sub)
		}
	})
}

func (c *conn) readLoop(ctx context.Context) {
	defer c.close()

	pingInterval := c.server.conf.ParsePingInterval()
	c.ws.SetReadLimit(c.server.conf.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * pingInterval))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	for {
		kind, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Infof("read: %v", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(2 * pingInterval))

		if kind != websocket.TextMessage {
			c.reject(raw, "", fmt.Errorf("binary frame: %w", ErrMalformedMessage))
			continue
		}
		c.handle(ctx, raw)
	}
}

func (c *conn) writeLoop() {
	writeTimeout := c.server.conf.ParseWriteTimeout()
	ticker := time.NewTicker(c.server.conf.ParsePingInterval())
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Infof("write: %v", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(writeTimeout),
			); err != nil {
				c.close()
				return
			}
		case <-c.closing:
			return
		}
	}
}

// handle handles a single client message.
func (c *conn) handle(ctx context.Context, raw []byte) {
	start := time.Now()

	msg := &Message{}
	if err := json.Unmarshal(raw, msg); err != nil {
		c.reject(raw, "", fmt.Errorf("%v: %w", err, ErrMalformedMessage))
		return
	}

	var err error
	if !c.limiter.Allow() {
		err = ErrTooManyMessages
	} else {
		err = c.dispatch(ctx, msg)
	}

	logging.LogMessage(c.logger, string(msg.Action), msg.Document, time.Since(start), err)
	if err != nil {
		c.reject(raw, msg.Action, err)
		return
	}
	c.server.be.Metrics.AddMessage(string(msg.Action), "ok")
}

func (c *conn) dispatch(ctx context.Context, msg *Message) error {
	switch msg.Action {
	case ActionHandshake:
		c.push(handshake(c.agent.ID))
		return nil
	case ActionPing:
		c.push(&Message{Action: ActionPing})
		return nil
	case ActionFetch, ActionSubscribe, ActionUnsubscribe, ActionOp, ActionPresence:
		if msg.Document == "" {
			return ErrMissingDocument
		}
	default:
		return fmt.Errorf("%q: %w", msg.Action, ErrUnknownAction)
	}

	switch msg.Action {
	case ActionFetch:
		return c.fetch(ctx, msg)
	case ActionSubscribe:
		return c.subscribe(ctx, msg)
	case ActionUnsubscribe:
		c.unsubscribe(ctx, msg.Document)
		c.push(&Message{Action: ActionUnsubscribe, Collection: msg.Collection, Document: msg.Document})
		return nil
	case ActionOp:
		return c.submit(ctx, msg)
	default:
		return c.broadcastPresence(ctx, msg)
	}
}

func (c *conn) fetch(ctx context.Context, msg *Message) error {
	snapshot, err := documents.Fetch(ctx, c.server.be, c.server.pipe, c.agent, msg.Document)
	if err != nil {
		return err
	}

	c.push(&Message{Action: ActionFetch, Collection: msg.Collection, Document: msg.Document, Data: snapshot})
	return nil
}

func (c *conn) subscribe(ctx context.Context, msg *Message) error {
	c.mu.Lock()
	_, subscribed := c.subs[msg.Document]
	c.mu.Unlock()
	if subscribed {
		snapshot, err := documents.Fetch(ctx, c.server.be, c.server.pipe, c.agent, msg.Document)
		if err != nil {
			return err
		}
		c.push(&Message{Action: ActionSubscribe, Collection: msg.Collection, Document: msg.Document, Data: snapshot})
		return nil
	}

	snapshot, sub, err := documents.Subscribe(ctx, c.server.be, c.server.pipe, c.agent, msg.Document)
	if err != nil {
		return err
	}

	s := &subscription{collection: msg.Collection, sub: sub}
	c.mu.Lock()
	c.subs[msg.Document] = s
	c.mu.Unlock()

	// The reply is queued before the forwarder starts, so the client
	// receives the snapshot before the operations committed after it.
	c.push(&Message{Action: ActionSubscribe, Collection: msg.Collection, Document: msg.Document, Data: snapshot})
	go c.forward(s)
	return nil
}

func (c *conn) unsubscribe(ctx context.Context, docID string) {
	c.mu.Lock()
	s, ok := c.subs[docID]
	delete(c.subs, docID)
	c.mu.Unlock()

	if ok {
		c.server.be.PubSub.Unsubscribe(ctx, s.sub)
	}
}

// forward relays the events of the subscription to the connection. A
// subscription closed by the broker rather than by the connection was
// dropped for being too slow, and the connection is closed with it.
func (c *conn) forward(s *subscription) {
	for event := range s.sub.Events() {
		if msg := eventMessage(s.collection, event); msg != nil {
			c.push(msg)
		}
	}

	c.mu.Lock()
	current, ok := c.subs[s.sub.DocID()]
	dropped := ok && current == s
	c.mu.Unlock()

	if dropped {
		c.logger.Warnf("subscription to %s dropped, closing", s.sub.DocID())
		c.server.be.Metrics.AddDroppedSubscription()
		c.close()
	}
}

func (c *conn) submit(ctx context.Context, msg *Message) error {
	committed, err := documents.Submit(ctx, c.server.be, c.server.pipe, c.agent, msg.Document, msg.operation())
	if err != nil {
		return err
	}

	c.push(&Message{
		Action:     ActionOp,
		Collection: msg.Collection,
		Document:   msg.Document,
		Version:    versionOf(committed.Version),
		Seq:        committed.Seq,
		Src:        committed.Src,
	})
	return nil
}

func (c *conn) broadcastPresence(ctx context.Context, msg *Message) error {
	presence := msg.presence()
	if err := documents.BroadcastPresence(
		ctx, c.server.be, c.server.pipe, c.agent, msg.Document, presence,
	); err != nil {
		return err
	}

	c.push(&Message{
		Action:     ActionPresence,
		Collection: msg.Collection,
		Document:   msg.Document,
		ID:         presence.ID,
		Version:    versionOf(presence.Version),
		Seq:        presence.Seq,
	})
	return nil
}

// reject sends the rejection of a request to the connection.
func (c *conn) reject(raw []byte, action Action, err error) {
	info := errors.ErrorInfoOf(err)
	c.server.be.Metrics.AddMessage(string(action), info.Code)
	c.enqueue(rejection(raw, err))
}

func (c *conn) push(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Errorf("marshal %s: %v", msg.Action, err)
		return
	}
	if logging.Enabled(zap.DebugLevel) {
		c.logger.Debugf("send %s", data)
	}
	c.enqueue(data)
}

// enqueue queues the frame for the write loop. It blocks while the queue is
// full, which in turn slows down the broker for the subscriptions of this
// connection.
func (c *conn) enqueue(data []byte) {
	select {
	case c.send <- data:
	case <-c.closing:
	}
}
