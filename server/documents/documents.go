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

// Package documents synchronizes the shared states of contents. Operations
// are transformed against the operations committed since their base
// version, run through the middleware pipeline, applied, stored and
// broadcast to the other subscribers of the document.
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	pkgerrors "github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/pkg/json0"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
	"github.com/yorkie-team/h5p-shared-state/server/backend/pubsub"
	"github.com/yorkie-team/h5p-shared-state/server/backend/sync"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/middleware"
)

var (
	// ErrInvalidOperation is returned when an operation does not carry exactly
	// one of op, create and del.
	ErrInvalidOperation = pkgerrors.InvalidArgument(
		"operation must carry exactly one of op, create and del",
	).WithCode("ErrInvalidOperation")

	// ErrUnknownType is returned when a document is created with an OT type
	// other than json0.
	ErrUnknownType = pkgerrors.InvalidArgument("unknown document type").WithCode("ErrUnknownType")

	// ErrOpVersionAhead is returned when an operation is based on a version
	// the document has not reached.
	ErrOpVersionAhead = pkgerrors.InvalidArgument("op version is ahead of the document").WithCode("ErrOpVersionAhead")

	// ErrOpTooOld is returned when the operations an operation would have to
	// be transformed against were purged from the log.
	ErrOpTooOld = pkgerrors.FailedPrecond("op version is no longer in the log").WithCode("ErrOpTooOld")

	// ErrOpAlreadySubmitted is returned when a connection resubmits an
	// operation that was already committed.
	ErrOpAlreadySubmitted = pkgerrors.AlreadyExists("op already submitted").WithCode("ErrOpAlreadySubmitted")

	// ErrDocumentAlreadyCreated is returned when a create targets an existing
	// document, or when the document was created after the op's base version.
	ErrDocumentAlreadyCreated = pkgerrors.AlreadyExists("document already created").WithCode("ErrDocumentAlreadyCreated")

	// ErrDocumentDoesNotExist is returned when an edit or a deletion targets a
	// document that does not exist.
	ErrDocumentDoesNotExist = pkgerrors.NotFound("document does not exist").WithCode("ErrDocumentDoesNotExist")

	// ErrDocumentWasDeleted is returned when the document was deleted after
	// the op's base version.
	ErrDocumentWasDeleted = pkgerrors.Aborted("document was deleted").WithCode("ErrDocumentWasDeleted")
)

// Fetch returns the current snapshot of the document. The snapshot of a
// document that was never created has version 0 and no type.
func Fetch(
	ctx context.Context,
	be *backend.Backend,
	pipe *middleware.Pipeline,
	agent *middleware.Agent,
	contentID string,
) (*types.Snapshot, error) {
	if err := pipe.Run(ctx, middleware.Fetch, &middleware.Request{Agent: agent, ContentID: contentID}); err != nil {
		return nil, err
	}

	info, err := findDocInfo(ctx, be, contentID)
	if err != nil {
		return nil, err
	}
	return info.Snapshot(), nil
}

// Subscribe returns the current snapshot of the document and subscribes the
// agent to the operations committed after it.
func Subscribe(
	ctx context.Context,
	be *backend.Backend,
	pipe *middleware.Pipeline,
	agent *middleware.Agent,
	contentID string,
) (*types.Snapshot, *pubsub.Subscription, error) {
	if err := pipe.Run(ctx, middleware.Fetch, &middleware.Request{Agent: agent, ContentID: contentID}); err != nil {
		return nil, nil, err
	}

	// Commits publish while holding the lock, so no operation falls between
	// the snapshot and the subscription.
	locker := be.Lockers.Locker(sync.NewKey(contentID))
	locker.Lock()
	defer unlock(ctx, locker)

	info, err := findDocInfo(ctx, be, contentID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := be.PubSub.Subscribe(ctx, agent.ID, contentID)
	if err != nil {
		return nil, nil, err
	}

	return info.Snapshot(), sub, nil
}

// Submit runs the operation through the pipeline and commits it. It returns
// the committed operation, whose version is the version it was applied at.
// A content that no longer resolves has its document deleted.
func Submit(
	ctx context.Context,
	be *backend.Backend,
	pipe *middleware.Pipeline,
	agent *middleware.Agent,
	contentID string,
	op *types.Operation,
) (committed *types.Operation, err error) {
	start := time.Now()
	stage := middleware.Submit
	defer func() {
		be.Metrics.AddOperation(kindOf(op), string(stage), codeOf(err))
		be.Metrics.ObserveOperationSeconds(time.Since(start).Seconds())
	}()

	if op == nil || op.Kinds() != 1 {
		return nil, ErrInvalidOperation
	}
	if op.IsEdit() {
		if err := op.Op.Validate(); err != nil {
			return nil, err
		}
	}
	op.Src = agent.ID

	req := &middleware.Request{Agent: agent, ContentID: contentID, Op: op}
	if err := pipe.Run(ctx, middleware.Submit, req); err != nil {
		if errors.Is(err, types.ErrContentNotFound) {
			deleteOrphan(ctx, be, pipe, contentID)
		}
		return nil, err
	}

	locker := be.Lockers.Locker(sync.NewKey(contentID))
	locker.Lock()
	defer unlock(ctx, locker)

	info, err := findDocInfo(ctx, be, contentID)
	if err != nil {
		return nil, err
	}

	return commit(ctx, be, pipe, req, info, &stage)
}

// Delete deletes the document on behalf of the server. Deleting a document
// that does not exist does nothing.
func Delete(ctx context.Context, be *backend.Backend, pipe *middleware.Pipeline, contentID string) error {
	agent := middleware.NewServerAgent()

	locker := be.Lockers.Locker(sync.NewKey(contentID))
	locker.Lock()
	defer unlock(ctx, locker)

	info, err := findDocInfo(ctx, be, contentID)
	if err != nil {
		return err
	}
	if info.Type == "" {
		return nil
	}

	op := &types.Operation{Src: agent.ID, Version: info.Version, Del: true}
	stage := middleware.Submit
	_, err = commit(ctx, be, pipe, &middleware.Request{Agent: agent, ContentID: contentID, Op: op}, info, &stage)
	be.Metrics.AddOperation(kindOf(op), string(stage), codeOf(err))
	return err
}

// Replace replaces the data of the document on behalf of the server. The
// replacement is committed as the operation that turns the current data into
// the given data, so connected clients receive it like any other edit. A
// document that does not exist is created.
func Replace(
	ctx context.Context,
	be *backend.Backend,
	pipe *middleware.Pipeline,
	contentID string,
	data any,
) (*types.Operation, error) {
	agent := middleware.NewServerAgent()

	locker := be.Lockers.Locker(sync.NewKey(contentID))
	locker.Lock()
	defer unlock(ctx, locker)

	info, err := findDocInfo(ctx, be, contentID)
	if err != nil {
		return nil, err
	}

	op := &types.Operation{Src: agent.ID, Version: info.Version}
	if info.Type == "" {
		op.Create = &types.CreateData{Type: json0.TypeName, Data: json0.Clone(data)}
	} else {
		diff, err := json0.Diff(info.Data, data)
		if err != nil {
			return nil, err
		}
		if len(diff) == 0 {
			return nil, nil
		}
		op.Op = diff
	}

	stage := middleware.Submit
	committed, err := commit(ctx, be, pipe, &middleware.Request{Agent: agent, ContentID: contentID, Op: op}, info, &stage)
	be.Metrics.AddOperation(kindOf(op), string(stage), codeOf(err))
	return committed, err
}

// commit transforms, applies, stores and publishes the operation of the
// request. The lock of the document must be held. stage is updated with the
// last stage the operation reached.
func commit(
	ctx context.Context,
	be *backend.Backend,
	pipe *middleware.Pipeline,
	req *middleware.Request,
	info *database.DocInfo,
	stage *middleware.Stage,
) (*types.Operation, error) {
	op := req.Op

	// 01. Bring the operation to the current version of the document.
	if err := transform(ctx, be, info, op); err != nil {
		return nil, err
	}

	// 02. Check that the operation can be applied to the document.
	switch {
	case op.IsCreate():
		if info.Type != "" {
			return nil, fmt.Errorf("%s@%d: %w", info.ID, info.Version, ErrDocumentAlreadyCreated)
		}
		if op.Create.Type != json0.TypeName {
			return nil, fmt.Errorf("%q: %w", op.Create.Type, ErrUnknownType)
		}
	default:
		if info.Type == "" {
			return nil, fmt.Errorf("%s@%d: %w", info.ID, info.Version, ErrDocumentDoesNotExist)
		}
	}

	// 03. Run the apply stage against the current snapshot.
	*stage = middleware.Apply
	req.Snapshot = info.Snapshot()
	if err := pipe.Run(ctx, middleware.Apply, req); err != nil {
		return nil, err
	}

	// 04. Apply the operation and run the commit stage against the result.
	next := &database.DocInfo{
		ID:        info.ID,
		Version:   info.Version + 1,
		Type:      info.Type,
		CreatedAt: info.CreatedAt,
	}
	switch {
	case op.IsCreate():
		next.Type = op.Create.Type
		next.Data = json0.Clone(op.Create.Data)
		next.CreatedAt = time.Now()
	case op.IsDelete():
		next.Type = ""
	default:
		data, err := json0.Apply(info.Data, op.Op)
		if err != nil {
			return nil, err
		}
		next.Data = data
	}

	*stage = middleware.Commit
	req.NewSnapshot = next.Snapshot()
	if err := pipe.Run(ctx, middleware.Commit, req); err != nil {
		return nil, err
	}

	// 05. Store the new state and publish the operation to the subscribers.
	if err := be.DB.CommitOpInfo(ctx, next, database.NewOpInfo(info.ID, op.Version, op)); err != nil {
		return nil, err
	}

	committed := database.NewOpInfo(info.ID, op.Version, op).Operation()
	be.PubSub.Publish(ctx, pubsub.DocEvent{
		Type:      pubsub.OpCommitted,
		DocID:     info.ID,
		Publisher: req.Agent.ID,
		Op:        committed,
	})
	be.Metrics.AddBroadcast(string(pubsub.OpCommitted))

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("commit %s@%d from %s: %s", info.ID, op.Version, req.Agent.ID, kindOf(op))
	}

	return committed, nil
}

// transform transforms the operation against the operations committed since
// its base version and rebases it on the current version.
func transform(ctx context.Context, be *backend.Backend, info *database.DocInfo, op *types.Operation) error {
	if op.Version > info.Version {
		return fmt.Errorf("%s: op@%d, doc@%d: %w", info.ID, op.Version, info.Version, ErrOpVersionAhead)
	}
	if op.Version == info.Version {
		return nil
	}

	concurrent, err := be.DB.FindOpInfosSince(ctx, info.ID, op.Version)
	if err != nil {
		return err
	}
	if len(concurrent) == 0 || concurrent[0].Version != op.Version {
		return fmt.Errorf("%s: op@%d: %w", info.ID, op.Version, ErrOpTooOld)
	}

	for _, other := range concurrent {
		if other.Src == op.Src && op.Seq != 0 && other.Seq == op.Seq {
			return fmt.Errorf("%s: %s#%d: %w", info.ID, op.Src, op.Seq, ErrOpAlreadySubmitted)
		}
		if other.Del {
			return fmt.Errorf("%s@%d: %w", info.ID, other.Version, ErrDocumentWasDeleted)
		}
		if other.Create != nil {
			return fmt.Errorf("%s@%d: %w", info.ID, other.Version, ErrDocumentAlreadyCreated)
		}
		if op.IsEdit() {
			op.Op = json0.Transform(op.Op, other.Op, json0.Left)
		}
	}

	be.Metrics.AddTransformedOperations(len(concurrent))
	op.Version = info.Version
	return nil
}

// deleteOrphan deletes the document of a content that no longer resolves.
func deleteOrphan(ctx context.Context, be *backend.Backend, pipe *middleware.Pipeline, contentID string) {
	if err := Delete(ctx, be, pipe, contentID); err != nil {
		logging.From(ctx).Warnf("delete state of removed content %s: %v", contentID, err)
		return
	}
	logging.From(ctx).Infof("deleted state of removed content %s", contentID)
}

func findDocInfo(ctx context.Context, be *backend.Backend, contentID string) (*database.DocInfo, error) {
	info, err := be.DB.FindDocInfo(ctx, contentID)
	if errors.Is(err, database.ErrDocumentNotFound) {
		return &database.DocInfo{ID: contentID}, nil
	}
	return info, err
}

func unlock(ctx context.Context, locker sync.Locker) {
	if err := locker.Unlock(); err != nil {
		logging.From(ctx).Error(err)
	}
}

func kindOf(op *types.Operation) string {
	switch {
	case op == nil:
		return "invalid"
	case op.IsCreate():
		return "create"
	case op.IsDelete():
		return "del"
	default:
		return "op"
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return pkgerrors.ErrorInfoOf(err).Code
}
