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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/h5p-shared-state/server"
	"github.com/yorkie-team/h5p-shared-state/server/backend/filesystem"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
	"github.com/yorkie-team/h5p-shared-state/server/rpc"
	"github.com/yorkie-team/h5p-shared-state/server/rpc/auth"
	"github.com/yorkie-team/h5p-shared-state/server/webhook"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath  string
	flagLogLevel  string
	flagLogFormat string

	writeTimeout         time.Duration
	pingInterval         time.Duration
	housekeepingInterval time.Duration
	validatorCacheTTL    time.Duration
	publishTimeout       time.Duration

	librariesDir string
	contentDir   string
	watchLibs    bool

	authSecretKey     string
	authTokenDuration time.Duration
	authDisabled      bool

	webhookURL             string
	webhookSecret          string
	webhookAllowPrivateURL bool
	webhookCacheTTL        time.Duration
	webhookMaxWaitInterval time.Duration
	webhookRequestTimeout  time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start the shared-state server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.RPC.WriteTimeout = writeTimeout.String()
			conf.RPC.PingInterval = pingInterval.String()
			conf.Housekeeping.Interval = housekeepingInterval.String()
			conf.Backend.ValidatorCacheTTL = validatorCacheTTL.String()
			conf.Backend.PublishTimeout = publishTimeout.String()

			conf.Storage = &filesystem.Config{
				LibrariesDir: librariesDir,
				ContentDir:   contentDir,
				Watch:        watchLibs,
			}

			if !authDisabled {
				conf.Auth = &auth.Config{
					SecretKey:     authSecretKey,
					TokenDuration: authTokenDuration.String(),
				}
			}

			if webhookURL != "" {
				conf.Webhook = &webhook.Config{
					URL:             webhookURL,
					Secret:          webhookSecret,
					AllowPrivateURL: webhookAllowPrivateURL,
					CacheSize:       server.DefaultWebhookCacheSize,
					CacheTTL:        webhookCacheTTL.String(),
					MaxRetries:      server.DefaultWebhookMaxRetries,
					MinWaitInterval: server.DefaultWebhookMinWaitInterval.String(),
					MaxWaitInterval: webhookMaxWaitInterval.String(),
					RequestTimeout:  webhookRequestTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetLogFormat(flagLogFormat); err != nil {
				return err
			}

			if err := conf.Validate(); err != nil {
				return err
			}

			host, store, err := server.NewHost(conf)
			if err != nil {
				return err
			}

			s, err := server.New(conf, host)
			if err != nil {
				return err
			}

			if err := s.Start(); err != nil {
				return err
			}

			if conf.Storage.Watch {
				if err := s.WatchLibraries(store); err != nil {
					_ = s.Shutdown(false)
					return err
				}
			}

			if code := handleSignal(s); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(s *server.SharedState) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case sig = <-sigCh:
	case <-s.ShutdownCh():
		// the server is already shut down
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	logging.DefaultLogger().Infof("caught signal: %s", sig)

	gracefulCh := make(chan struct{})
	go func() {
		if err := s.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Errorf("shutdown: %v", err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		"console",
		"Log format: json, console",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.BaseURL,
		"base-url",
		"",
		"Base URL the shared-state endpoint is mounted under",
	)
	cmd.Flags().StringSliceVar(
		&conf.RPC.AllowedOrigins,
		"allowed-origins",
		nil,
		"Browser origins allowed to connect, \"*\" for any; defaults to the server's own origin",
	)
	cmd.Flags().Int64Var(
		&conf.RPC.MaxMessageBytes,
		"max-message-bytes",
		conf.RPC.MaxMessageBytes,
		"Maximum size of a single WebSocket message",
	)
	cmd.Flags().Float64Var(
		&conf.RPC.MessagesPerSecond,
		"messages-per-second",
		conf.RPC.MessagesPerSecond,
		"Messages a connection may send per second, 0 for unlimited",
	)
	cmd.Flags().IntVar(
		&conf.RPC.MessageBurst,
		"message-burst",
		conf.RPC.MessageBurst,
		"Burst of messages a connection may send at once",
	)
	cmd.Flags().IntVar(
		&conf.RPC.SendBufferSize,
		"send-buffer-size",
		conf.RPC.SendBufferSize,
		"Number of outgoing messages buffered per connection",
	)
	cmd.Flags().DurationVar(
		&writeTimeout,
		"write-timeout",
		rpc.DefaultWriteTimeout,
		"Timeout of a single WebSocket write",
	)
	cmd.Flags().DurationVar(
		&pingInterval,
		"ping-interval",
		rpc.DefaultPingInterval,
		"Interval between keepalive pings",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().DurationVar(
		&housekeepingInterval,
		"housekeeping-interval",
		server.DefaultHousekeepingInterval,
		"Interval between housekeeping runs",
	)
	cmd.Flags().Int64Var(
		&conf.Housekeeping.OpLogRetention,
		"op-log-retention",
		server.DefaultHousekeepingOpLogRetention,
		"Number of recent operations kept per document, 0 keeps all",
	)
	cmd.Flags().Int64Var(
		&conf.Housekeeping.MaxConcurrency,
		"housekeeping-max-concurrency",
		server.DefaultHousekeepingMaxConcurrency,
		"Maximum number of documents compacted at once",
	)
	cmd.Flags().IntVar(
		&conf.Backend.ValidatorCacheSize,
		"validator-cache-size",
		server.DefaultValidatorCacheSize,
		"Maximum number of cached validation artifacts",
	)
	cmd.Flags().DurationVar(
		&validatorCacheTTL,
		"validator-cache-ttl",
		server.DefaultValidatorCacheTTL,
		"TTL of cached validation artifacts, 0 keeps them until the library changes",
	)
	cmd.Flags().StringVar(
		&conf.Backend.SchemaDraft,
		"schema-draft",
		server.DefaultSchemaDraft,
		"JSON Schema draft of schemas that do not declare one",
	)
	cmd.Flags().IntVar(
		&conf.Backend.SubscriptionBufferSize,
		"subscription-buffer-size",
		server.DefaultSubscriptionBufferSize,
		"Number of events buffered per subscriber",
	)
	cmd.Flags().DurationVar(
		&publishTimeout,
		"publish-timeout",
		server.DefaultPublishTimeout,
		"How long a broadcast waits for a slow subscriber before dropping it",
	)
	cmd.Flags().IntVar(
		&conf.Backend.MaxSubscribersPerDocument,
		"max-subscribers-per-document",
		server.DefaultMaxSubscribersPerDocument,
		"Maximum subscribers of a document, 0 for unlimited",
	)
	cmd.Flags().StringVar(
		&librariesDir,
		"libraries-dir",
		"libraries",
		"Directory holding the installed libraries",
	)
	cmd.Flags().StringVar(
		&contentDir,
		"content-dir",
		"content",
		"Directory holding the contents",
	)
	cmd.Flags().BoolVar(
		&watchLibs,
		"watch",
		false,
		"Invalidate cached validation artifacts when library files change",
	)
	cmd.Flags().StringVar(
		&authSecretKey,
		"auth-secret-key",
		server.DefaultSecretKey,
		"Secret key that signs user tokens",
	)
	cmd.Flags().DurationVar(
		&authTokenDuration,
		"auth-token-duration",
		server.DefaultTokenDuration,
		"Lifetime of user tokens",
	)
	cmd.Flags().BoolVar(
		&authDisabled,
		"disable-auth",
		false,
		"Treat every connection as anonymous",
	)
	cmd.Flags().StringVar(
		&webhookURL,
		"permission-webhook-url",
		"",
		"URL asked for the permission of a user on a content",
	)
	cmd.Flags().StringVar(
		&webhookSecret,
		"permission-webhook-secret",
		"",
		"Secret that signs permission webhook requests",
	)
	cmd.Flags().BoolVar(
		&webhookAllowPrivateURL,
		"permission-webhook-allow-private-url",
		false,
		"Allow the permission webhook to target private addresses",
	)
	cmd.Flags().DurationVar(
		&webhookCacheTTL,
		"permission-webhook-cache-ttl",
		server.DefaultWebhookCacheTTL,
		"TTL of cached permission webhook responses",
	)
	cmd.Flags().DurationVar(
		&webhookMaxWaitInterval,
		"permission-webhook-max-wait-interval",
		server.DefaultWebhookMaxWaitInterval,
		"Maximum wait between permission webhook retries",
	)
	cmd.Flags().DurationVar(
		&webhookRequestTimeout,
		"permission-webhook-request-timeout",
		server.DefaultWebhookRequestTimeout,
		"Timeout of a single permission webhook request",
	)

	rootCmd.AddCommand(cmd)
}
