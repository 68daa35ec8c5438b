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

// Package database provides the storage interface of the shared-state
// backend: the current state of every document and its log of committed
// operations.
package database

import (
	"context"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

var (
	// ErrDocumentNotFound is returned when the document has never been created.
	ErrDocumentNotFound = errors.NotFound("document not found").WithCode("ErrDocumentNotFound")

	// ErrConflictOnUpdate is returned when a commit is not based on the stored
	// version of the document.
	ErrConflictOnUpdate = errors.Aborted("conflict on update").WithCode("ErrConflictOnUpdate")

	// ErrClosed is returned by a database that has been closed.
	ErrClosed = errors.FailedPrecond("database closed").WithCode("ErrDatabaseClosed")
)

// Database represents database which reads or saves shared states.
type Database interface {
	// Close all resources of this database.
	Close() error

	// FindDocInfo returns the stored state of the document.
	FindDocInfo(ctx context.Context, docID string) (*DocInfo, error)

	// ListDocInfos returns the stored states of all documents.
	ListDocInfos(ctx context.Context) ([]*DocInfo, error)

	// CommitOpInfo stores the new state of a document together with the
	// operation that produced it. The operation must be based on the stored
	// version of the document.
	CommitOpInfo(ctx context.Context, doc *DocInfo, op *OpInfo) error

	// FindOpInfosSince returns the committed operations applied at versions
	// greater than or equal to from, in commit order.
	FindOpInfosSince(ctx context.Context, docID string, from int64) ([]*OpInfo, error)

	// PurgeOpInfos removes the committed operations applied at versions lower
	// than before and returns how many were removed.
	PurgeOpInfos(ctx context.Context, docID string, before int64) (int, error)

	// RemoveDocInfo removes the document and its operations.
	RemoveDocInfo(ctx context.Context, docID string) error
}
