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

// Package server provides the shared-state server, the main entry point of
// the system. The server accepts the connections of clients, synchronizes
// the shared states of contents and serves the profiling endpoints.
package server

import (
	"context"
	"net/http"
	gosync "sync"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/logic"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/filesystem"
	"github.com/yorkie-team/h5p-shared-state/server/documents"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/middleware"
	"github.com/yorkie-team/h5p-shared-state/server/profiling"
	"github.com/yorkie-team/h5p-shared-state/server/profiling/prometheus"
	"github.com/yorkie-team/h5p-shared-state/server/rpc"
	"github.com/yorkie-team/h5p-shared-state/server/validators"
)

// SharedState is a shared-state server. It receives operations from
// clients, validates and transforms them, and propagates them to the other
// clients of the same content.
type SharedState struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	pipeline        *middleware.Pipeline
	rpcServer       *rpc.Server
	profilingServer *profiling.Server
	watcher         *filesystem.Watcher
	watchCancel     context.CancelFunc

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of SharedState over the collaborators of the
// host system.
func New(conf *Config, host *backend.Host) (*SharedState, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.Housekeeping, host, metrics)
	if err != nil {
		return nil, err
	}

	pipeline := middleware.Default(host, be.Validators, logic.Default)
	rpcServer := rpc.NewServer(conf.RPC, be, pipeline)

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &SharedState{
		conf:            conf,
		backend:         be,
		pipeline:        pipeline,
		rpcServer:       rpcServer,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (s *SharedState) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.backend.Start(context.Background()); err != nil {
		return err
	}

	if s.profilingServer != nil {
		if err := s.profilingServer.Start(); err != nil {
			return err
		}
	}

	return s.rpcServer.Start()
}

// Shutdown shuts down this server.
func (s *SharedState) Shutdown(graceful bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.shutdown {
		return nil
	}

	if s.watcher != nil {
		s.watchCancel()
		if err := s.watcher.Close(); err != nil {
			logging.DefaultLogger().Error(err)
		}
	}

	s.rpcServer.Shutdown(graceful)

	if s.profilingServer != nil {
		s.profilingServer.Shutdown(graceful)
	}

	if err := s.backend.Shutdown(); err != nil {
		return err
	}

	close(s.shutdownCh)
	s.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (s *SharedState) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (s *SharedState) RPCAddr() string {
	return s.conf.RPCAddr()
}

// EndpointPath returns the path clients connect to, "/shared-state" under
// the configured base URL.
func (s *SharedState) EndpointPath() string {
	return s.rpcServer.Path()
}

// Handler returns the HTTP handler of the endpoint, for host applications
// that mount it in their own router instead of calling Start.
func (s *SharedState) Handler() http.Handler {
	return s.rpcServer.Handler()
}

// WatchLibraries invalidates the cached validation artifacts of a library
// whenever its files in the store change.
func (s *SharedState) WatchLibraries(store *filesystem.Store) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.watcher != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	watcher, err := store.Watch(ctx, func(lib types.LibraryName) {
		logging.DefaultLogger().Infof("library %s changed, invalidating artifacts", lib)
		s.backend.Validators.Invalidate(lib)
	})
	if err != nil {
		cancel()
		return err
	}

	s.watcher = watcher
	s.watchCancel = cancel
	return nil
}

// State returns the current state of the content. It bypasses permission
// checks.
func (s *SharedState) State(ctx context.Context, contentID string) (*types.Snapshot, error) {
	return documents.Fetch(ctx, s.backend, s.pipeline, middleware.NewServerAgent(), contentID)
}

// DeleteState deletes the state of the content, e.g. when the content is
// deleted or its parameters change in incompatible ways. Failures are
// logged only.
func (s *SharedState) DeleteState(ctx context.Context, contentID string) {
	if err := documents.Delete(ctx, s.backend, s.pipeline, contentID); err != nil {
		logging.From(ctx).Errorf("delete state of %s: %v", contentID, err)
	}
}

// ReplaceState replaces the state of the content with the given data. The
// state is created when it does not exist. Connected clients receive the
// replacement as an ordinary operation.
func (s *SharedState) ReplaceState(ctx context.Context, contentID string, data any) error {
	normalized, err := validators.Normalize(data)
	if err != nil {
		return err
	}

	if _, err := documents.Replace(ctx, s.backend, s.pipeline, contentID, normalized); err != nil {
		return err
	}
	return nil
}
