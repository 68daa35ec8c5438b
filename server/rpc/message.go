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
	"encoding/json"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/internal/version"
	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
	"github.com/yorkie-team/h5p-shared-state/server/backend/pubsub"
)

// Action is the kind of a message.
type Action string

// Below are the actions of the protocol.
const (
	ActionHandshake   Action = "hs"
	ActionFetch       Action = "f"
	ActionSubscribe   Action = "s"
	ActionUnsubscribe Action = "us"
	ActionOp          Action = "op"
	ActionPresence    Action = "p"
	ActionPing        Action = "pp"
)

var (
	// ErrMalformedMessage is returned when a message is not a JSON object.
	ErrMalformedMessage = errors.InvalidArgument("malformed message").WithCode("ErrMalformedMessage")

	// ErrUnknownAction is returned when a message carries an unknown action.
	ErrUnknownAction = errors.InvalidArgument("unknown action").WithCode("ErrUnknownAction")

	// ErrMissingDocument is returned when a document message has no "d".
	ErrMissingDocument = errors.InvalidArgument("missing document id").WithCode("ErrMissingDocument")

	// ErrTooManyMessages is returned when a connection exceeds its message rate.
	ErrTooManyMessages = errors.ResourceExhausted("too many messages").WithCode("ErrTooManyMessages")
)

// Message is a frame of the protocol. Only the fields of its action are set.
type Message struct {
	Action Action `json:"a"`

	// Collection is echoed back as is.
	Collection string `json:"c,omitempty"`
	Document   string `json:"d,omitempty"`

	// handshake
	ID       string `json:"id,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
	Type     string `json:"type,omitempty"`

	// fetch and subscribe replies
	Data *types.Snapshot `json:"data,omitempty"`

	// ops and presences
	Version *int64            `json:"v,omitempty"`
	Seq     int64             `json:"seq,omitempty"`
	Src     string            `json:"src,omitempty"`
	Op      json0.Op          `json:"op,omitempty"`
	Create  *types.CreateData `json:"create,omitempty"`
	Del     bool              `json:"del,omitempty"`
	Value   any               `json:"p,omitempty"`
	Error   *ErrorBody        `json:"error,omitempty"`
}

// ErrorBody is the error of a rejected message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func handshake(agentID string) *Message {
	return &Message{
		Action:   ActionHandshake,
		ID:       agentID,
		Protocol: version.ProtocolVersion,
		Type:     json0.TypeName,
	}
}

func versionOf(v int64) *int64 {
	return &v
}

// operation returns the operation carried by an op message.
func (m *Message) operation() *types.Operation {
	op := &types.Operation{
		Seq:    m.Seq,
		Op:     m.Op,
		Create: m.Create,
		Del:    m.Del,
	}
	if m.Version != nil {
		op.Version = *m.Version
	}
	return op
}

// presence returns the presence carried by a presence message.
func (m *Message) presence() *types.Presence {
	p := &types.Presence{ID: m.ID, Value: m.Value, Seq: m.Seq}
	if m.Version != nil {
		p.Version = *m.Version
	}
	return p
}

// eventMessage converts an event published to a subscription into the
// message its subscriber receives.
func eventMessage(collection string, event pubsub.DocEvent) *Message {
	switch event.Type {
	case pubsub.OpCommitted:
		op := event.Op
		return &Message{
			Action:     ActionOp,
			Collection: collection,
			Document:   event.DocID,
			Version:    versionOf(op.Version),
			Seq:        op.Seq,
			Src:        op.Src,
			Op:         op.Op,
			Create:     op.Create,
			Del:        op.Del,
		}
	case pubsub.PresenceUpdated:
		p := event.Presence
		return &Message{
			Action:     ActionPresence,
			Collection: collection,
			Document:   event.DocID,
			ID:         p.ID,
			Value:      p.Value,
			Version:    versionOf(p.Version),
			Seq:        p.Seq,
			Src:        event.Publisher,
		}
	}
	return nil
}

// rejection echoes the raw request with the error of the rejection. A
// request that is not a JSON object is answered with the error alone.
func rejection(raw []byte, err error) []byte {
	info := errors.ErrorInfoOf(err)

	echo := map[string]any{}
	if jsonErr := json.Unmarshal(raw, &echo); jsonErr != nil || echo == nil {
		echo = map[string]any{}
	}
	echo["error"] = &ErrorBody{Code: info.Code, Message: info.Message}

	data, marshalErr := json.Marshal(echo)
	if marshalErr != nil {
		return []byte(`{"error":{"code":"ErrInternal","message":"internal"}}`)
	}
	return data
}
