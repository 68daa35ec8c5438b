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

// Package rpc serves the shared-state protocol over WebSocket connections.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/h5p-shared-state/pkg/cmap"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/middleware"
)

const endpoint = "/shared-state"

// EndpointPath returns the path of the endpoint under the given base URL.
func EndpointPath(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + endpoint
}

// Server accepts the connections of clients.
type Server struct {
	conf       *Config
	be         *backend.Backend
	pipe       *middleware.Pipeline
	upgrader   websocket.Upgrader
	router     *mux.Router
	httpServer *http.Server
	conns      *cmap.Map[string, *conn]
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend, pipe *middleware.Pipeline) *Server {
	s := &Server{
		conf: conf,
		be:   be,
		pipe: pipe,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(conf.AllowedOrigins),
		},
		router: mux.NewRouter(),
		conns:  cmap.New[string, *conn](),
	}
	s.router.HandleFunc(EndpointPath(conf.BaseURL), s.serveWS).Methods(http.MethodGet)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// checkOrigin returns the origin policy of the upgrader. Requests without an
// Origin header do not come from browsers and are allowed.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	origins := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		origins[strings.ToLower(strings.TrimRight(origin, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(origins) > 0 {
			return origins[strings.ToLower(origin)]
		}

		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Handler returns the HTTP handler serving the endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Path returns the path of the endpoint.
func (s *Server) Path() string {
	return EndpointPath(s.conf.BaseURL)
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	return s.conns.Len()
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d%s", s.conf.Port, s.Path())

		if err := s.httpServer.Serve(lis); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logging.DefaultLogger().Error(err)
			}
		}
	}()

	return nil
}

// Shutdown shuts down this server. Open connections are closed either way;
// a graceful shutdown first waits for in-flight upgrades.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.DefaultLogger().Error(err)
		}
	} else if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}

	for _, c := range s.conns.Values() {
		c.close()
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	agent := middleware.NewAgent()
	if err := s.pipe.Run(r.Context(), middleware.Connect, &middleware.Request{
		Agent:       agent,
		HTTPRequest: r,
	}); err != nil {
		logging.DefaultLogger().Warnf("connect %s: %v", agent.ID, err)
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.DefaultLogger().Infof("upgrade %s: %v", agent.ID, err)
		return
	}

	c := newConn(s, ws, agent)
	s.conns.Set(agent.ID, c)
	s.be.Metrics.AddConnection()
	defer func() {
		c.close()
		s.conns.Delete(agent.ID, func(*conn, bool) bool { return true })
		s.be.Metrics.RemoveConnection()
	}()

	// The request context ends with the handler, which runs as long as the
	// connection.
	c.run(r.Context())
}
