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

package housekeeping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yorkie-team/h5p-shared-state/server/backend/background"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
	bsync "github.com/yorkie-team/h5p-shared-state/server/backend/sync"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/profiling/prometheus"
)

const taskType = "housekeeping"

// Housekeeping is the housekeeping service. It periodically removes the
// operations that fall out of the retention window of each document.
type Housekeeping struct {
	database database.Database
	lockers  *bsync.LockerManager
	metrics  *prometheus.Metrics

	interval  time.Duration
	retention int64
	semaphore *semaphore.Weighted
}

// New creates a new housekeeping instance.
func New(
	conf *Config,
	db database.Database,
	lockers *bsync.LockerManager,
	metrics *prometheus.Metrics,
) (*Housekeeping, error) {
	interval, err := conf.ParseInterval()
	if err != nil {
		return nil, err
	}

	return &Housekeeping{
		database:  db,
		lockers:   lockers,
		metrics:   metrics,
		interval:  interval,
		retention: conf.OpLogRetention,
		semaphore: semaphore.NewWeighted(conf.MaxConcurrency),
	}, nil
}

// Start attaches the housekeeping loop to the given background service. It
// does nothing when the whole log is retained.
func (h *Housekeeping) Start(bg *background.Background) {
	if h.retention == 0 || h.interval <= 0 {
		return
	}

	bg.AttachTicker(func(ctx context.Context) {
		if _, err := h.Compact(ctx); err != nil {
			logging.From(ctx).Error(err)
		}
	}, h.interval, taskType)
}

// Compact trims the operation log of every document and returns the number
// of removed operations.
func (h *Housekeeping) Compact(ctx context.Context) (int, error) {
	if h.retention == 0 {
		return 0, nil
	}

	start := time.Now()
	infos, err := h.database.ListDocInfos(ctx)
	if err != nil {
		return 0, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		purged   int
		firstErr error
	)
	for _, info := range infos {
		if info.Version <= h.retention {
			continue
		}

		wg.Add(1)
		go func(docID string) {
			defer wg.Done()

			if err := h.semaphore.Acquire(ctx, 1); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer h.semaphore.Release(1)

			count, err := h.compactDocument(ctx, docID)

			mu.Lock()
			defer mu.Unlock()
			purged += count
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(info.ID)
	}
	wg.Wait()

	if purged > 0 {
		if h.metrics != nil {
			h.metrics.AddPurgedOperations(purged)
		}
		logging.From(ctx).Infof("HSKP: documents %d, purged ops %d, %s", len(infos), purged, time.Since(start))
	}

	return purged, firstErr
}

func (h *Housekeeping) compactDocument(ctx context.Context, docID string) (int, error) {
	locker := h.lockers.Locker(bsync.NewKey(docID))
	locker.Lock()
	defer func() {
		if err := locker.Unlock(); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	info, err := h.database.FindDocInfo(ctx, docID)
	if err != nil {
		return 0, err
	}

	count, err := h.database.PurgeOpInfos(ctx, docID, info.Version-h.retention)
	if err != nil {
		return 0, fmt.Errorf("compact %s: %w", docID, err)
	}
	return count, nil
}
