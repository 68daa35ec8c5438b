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

// Package middleware provides the pipeline every request of a connection runs
// through, and the stages that authorize and validate operations.
package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

// Stage is a point in the lifecycle of a request.
type Stage string

// Below are the stages in the order an operation passes them.
const (
	// Connect runs once when a connection is opened.
	Connect Stage = "connect"

	// Fetch runs when a connection reads or subscribes to a document.
	Fetch Stage = "fetch"

	// Submit runs when an operation arrives, before the document is locked.
	Submit Stage = "submit"

	// Apply runs after the operation was transformed to the current version
	// of the document, before it is applied.
	Apply Stage = "apply"

	// Commit runs after the operation was applied, before the new snapshot is
	// stored.
	Commit Stage = "commit"

	// PresenceStage runs when a presence arrives.
	PresenceStage Stage = "presence"
)

// Request is the subject of a stage.
type Request struct {
	Agent *Agent

	// HTTPRequest is the upgrade request of the connection. It is only set in
	// the connect stage.
	HTTPRequest *http.Request

	// ContentID is the id of the content the document belongs to.
	ContentID string

	Op       *types.Operation
	Presence *types.Presence

	// Snapshot is the document before the operation is applied.
	Snapshot *types.Snapshot

	// NewSnapshot is the document after the operation is applied.
	NewSnapshot *types.Snapshot
}

// Middleware is a step of a stage. Returning an error rejects the request.
type Middleware func(ctx context.Context, req *Request) error

// Pipeline runs the middlewares registered for each stage.
type Pipeline struct {
	stages map[Stage][]Middleware
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{stages: make(map[Stage][]Middleware)}
}

// Use appends middlewares to the stage.
func (p *Pipeline) Use(stage Stage, middlewares ...Middleware) *Pipeline {
	p.stages[stage] = append(p.stages[stage], middlewares...)
	return p
}

// Len returns the number of middlewares registered for the stage.
func (p *Pipeline) Len(stage Stage) int {
	return len(p.stages[stage])
}

// Run runs the middlewares of the stage in registration order and stops at
// the first error.
func (p *Pipeline) Run(ctx context.Context, stage Stage, req *Request) error {
	for _, mw := range p.stages[stage] {
		if err := mw(ctx, req); err != nil {
			if logging.Enabled(zap.DebugLevel) {
				logging.From(ctx).Debugf("%s rejected %s: %v", stage, req.ContentID, err)
			}
			return err
		}
	}
	return nil
}
