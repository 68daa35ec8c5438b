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

// Package memory implements the database on go-memdb. It keeps shared states
// only for the lifetime of the process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db     *memdb.MemDB
	closed atomic.Bool
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database. Later calls fail with database.ErrClosed.
func (d *DB) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *DB) txn(write bool) (*memdb.Txn, error) {
	if d.closed.Load() {
		return nil, database.ErrClosed
	}
	return d.db.Txn(write), nil
}

// FindDocInfo returns the stored state of the document.
func (d *DB) FindDocInfo(_ context.Context, docID string) (*database.DocInfo, error) {
	txn, err := d.txn(false)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", docID)
	if err != nil {
		return nil, fmt.Errorf("find document of %s: %w", docID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", docID, database.ErrDocumentNotFound)
	}

	return raw.(*database.DocInfo).DeepCopy(), nil
}

// ListDocInfos returns the stored states of all documents ordered by id.
func (d *DB) ListDocInfos(_ context.Context) ([]*database.DocInfo, error) {
	txn, err := d.txn(false)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	iterator, err := txn.Get(tblDocuments, "id")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var infos []*database.DocInfo
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		infos = append(infos, raw.(*database.DocInfo).DeepCopy())
	}
	return infos, nil
}

// CommitOpInfo stores the new state of a document together with the
// operation that produced it.
func (d *DB) CommitOpInfo(_ context.Context, doc *database.DocInfo, op *database.OpInfo) error {
	if op.DocID != doc.ID || op.Version+1 != doc.Version {
		return fmt.Errorf("commit op %s@%d as version %d: %w",
			op.DocID, op.Version, doc.Version, database.ErrConflictOnUpdate)
	}

	txn, err := d.txn(true)
	if err != nil {
		return err
	}
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", doc.ID)
	if err != nil {
		return fmt.Errorf("find document of %s: %w", doc.ID, err)
	}

	var current int64
	if raw != nil {
		current = raw.(*database.DocInfo).Version
	}
	if current != op.Version {
		return fmt.Errorf("commit op %s@%d on version %d: %w",
			op.DocID, op.Version, current, database.ErrConflictOnUpdate)
	}

	stored := doc.DeepCopy()
	stored.UpdatedAt = time.Now()
	if err := txn.Insert(tblDocuments, stored); err != nil {
		return fmt.Errorf("update document of %s: %w", doc.ID, err)
	}
	if err := txn.Insert(tblOperations, op.DeepCopy()); err != nil {
		return fmt.Errorf("insert op of %s: %w", doc.ID, err)
	}

	txn.Commit()
	return nil
}

// FindOpInfosSince returns the committed operations applied at versions
// greater than or equal to from, in commit order.
func (d *DB) FindOpInfosSince(_ context.Context, docID string, from int64) ([]*database.OpInfo, error) {
	txn, err := d.txn(false)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	iterator, err := txn.Get(tblOperations, "doc_id", docID)
	if err != nil {
		return nil, fmt.Errorf("find ops of %s: %w", docID, err)
	}

	var infos []*database.OpInfo
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		info := raw.(*database.OpInfo)
		if info.Version >= from {
			infos = append(infos, info.DeepCopy())
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Version < infos[j].Version
	})
	return infos, nil
}

// PurgeOpInfos removes the committed operations applied at versions lower
// than before.
func (d *DB) PurgeOpInfos(_ context.Context, docID string, before int64) (int, error) {
	txn, err := d.txn(true)
	if err != nil {
		return 0, err
	}
	defer txn.Abort()

	iterator, err := txn.Get(tblOperations, "doc_id", docID)
	if err != nil {
		return 0, fmt.Errorf("find ops of %s: %w", docID, err)
	}

	var stale []*database.OpInfo
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		if info := raw.(*database.OpInfo); info.Version < before {
			stale = append(stale, info)
		}
	}
	for _, info := range stale {
		if err := txn.Delete(tblOperations, info); err != nil {
			return 0, fmt.Errorf("delete op %s@%d: %w", docID, info.Version, err)
		}
	}

	txn.Commit()
	return len(stale), nil
}

// RemoveDocInfo removes the document and its operations.
func (d *DB) RemoveDocInfo(_ context.Context, docID string) error {
	txn, err := d.txn(true)
	if err != nil {
		return err
	}
	defer txn.Abort()

	if _, err := txn.DeleteAll(tblDocuments, "id", docID); err != nil {
		return fmt.Errorf("delete document of %s: %w", docID, err)
	}
	if _, err := txn.DeleteAll(tblOperations, "doc_id", docID); err != nil {
		return fmt.Errorf("delete ops of %s: %w", docID, err)
	}

	txn.Commit()
	return nil
}
