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

// Package backend provides the backend implementation of the shared-state
// server. This package is responsible for managing the operation log and
// other resources required to synchronize documents.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/yorkie-team/h5p-shared-state/server/backend/background"
	"github.com/yorkie-team/h5p-shared-state/server/backend/database"
	memdb "github.com/yorkie-team/h5p-shared-state/server/backend/database/memory"
	"github.com/yorkie-team/h5p-shared-state/server/backend/housekeeping"
	"github.com/yorkie-team/h5p-shared-state/server/backend/pubsub"
	"github.com/yorkie-team/h5p-shared-state/server/backend/sync"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/profiling/prometheus"
	"github.com/yorkie-team/h5p-shared-state/server/validators"
)

const metricsInterval = 10 * time.Second

// Backend manages the backend of the shared-state server such as the
// operation log. It also provides the validator cache, pubsub, and locker.
type Backend struct {
	Config *Config

	// Host is the set of collaborators provided by the host system.
	Host *Host

	// Validators caches the validation artifacts of libraries.
	Validators *validators.Repository
	// PubSub is used to publish/subscribe events to/from connections.
	PubSub *pubsub.PubSub
	// Lockers is used to lock/unlock documents.
	Lockers *sync.LockerManager

	// Background is used to manage background tasks.
	Background *background.Background
	// Housekeeping is used to trim operation logs.
	Housekeeping *housekeeping.Housekeeping

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	housekeepingConf *housekeeping.Config,
	host *Host,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	if host == nil || host.Libraries == nil || host.Contents == nil {
		return nil, fmt.Errorf("backend: library and content stores are required")
	}

	// 01. Create the validator repository reading the artifacts of the host
	// libraries.
	cacheTTL, err := conf.ParseValidatorCacheTTL()
	if err != nil {
		return nil, err
	}
	repo, err := validators.NewRepository(host.Libraries, validators.Config{
		CacheSize:   conf.ValidatorCacheSize,
		CacheTTL:    cacheTTL,
		SchemaDraft: conf.SchemaDraft,
	})
	if err != nil {
		return nil, err
	}

	// 02. Create the pubsub and lockers.
	publishTimeout, err := conf.ParsePublishTimeout()
	if err != nil {
		return nil, err
	}
	lockers := sync.New()
	ps := pubsub.New(pubsub.Config{
		BufferSize:     conf.SubscriptionBufferSize,
		PublishTimeout: publishTimeout,
		MaxSubscribers: conf.MaxSubscribersPerDocument,
	})

	// 03. Create the database instance holding the operation logs.
	db, err := memdb.New()
	if err != nil {
		return nil, err
	}

	// 04. Create the background service and the housekeeping.
	bg := background.New(metrics)
	housekeeper, err := housekeeping.New(housekeepingConf, db, lockers, metrics)
	if err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof(
		"backend created: db: memory, op log retention: %d",
		housekeepingConf.OpLogRetention,
	)

	return &Backend{
		Config: conf,
		Host:   host,

		Validators: repo,
		PubSub:     ps,
		Lockers:    lockers,

		Background:   bg,
		Housekeeping: housekeeper,

		Metrics: metrics,
		DB:      db,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start(_ context.Context) error {
	b.Housekeeping.Start(b.Background)

	if b.Metrics != nil {
		b.Background.AttachTicker(func(ctx context.Context) {
			stats := b.Validators.Stats()
			b.Metrics.SetCacheStats("validators", stats.Hits(), stats.Misses())
		}, metricsInterval, "metrics")
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	b.Background.Close()

	if err := b.DB.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
