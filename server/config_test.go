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

package server_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/server"
	"github.com/yorkie-team/h5p-shared-state/server/rpc"
)

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, conf.RPCAddr(), "localhost:"+strconv.Itoa(server.DefaultRPCPort))
		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)

		assert.Equal(t, server.DefaultRPCPort, conf.RPC.Port)
		assert.Equal(t, server.DefaultValidatorCacheSize, conf.Backend.ValidatorCacheSize)
		assert.Nil(t, conf.Storage)
		assert.NoError(t, conf.Validate())
	})

	t.Run("read config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile("config.sample.yml")
		require.NoError(t, err)

		assert.Equal(t, server.DefaultRPCPort, conf.RPC.Port)
		assert.Equal(t, int64(rpc.DefaultMaxMessageBytes), conf.RPC.MaxMessageBytes)
		assert.Equal(t, rpc.DefaultWriteTimeout.String(), conf.RPC.WriteTimeout)
		assert.Equal(t, int64(1000), conf.Housekeeping.OpLogRetention)
		assert.Equal(t, "2020-12", conf.Backend.SchemaDraft)
		assert.Equal(t, server.DefaultSubscriptionBufferSize, conf.Backend.SubscriptionBufferSize)
		assert.Equal(t, "h5p-shared-state-secret", conf.Auth.SecretKey)
		assert.False(t, conf.Webhook.Enabled())
		assert.Equal(t, server.DefaultWebhookCacheSize, conf.Webhook.CacheSize)
		assert.Equal(t, "./h5p/libraries", conf.Storage.LibrariesDir)
		assert.True(t, conf.Storage.Watch)
	})

	t.Run("defaults of omitted sections test", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("RPC:\n  Port: 9000\n"), 0o600))

		conf, err := server.NewConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, conf.RPC.Port)
		assert.Equal(t, server.DefaultProfilingPort, conf.Profiling.Port)
		assert.Equal(t, server.DefaultHousekeepingInterval.String(), conf.Housekeeping.Interval)
		assert.Equal(t, server.DefaultPublishTimeout.String(), conf.Backend.PublishTimeout)
		assert.Nil(t, conf.Auth)
		assert.NoError(t, conf.Validate())
	})
}

func TestConfigValidate(t *testing.T) {
	conf := server.NewConfig()
	conf.RPC.Port = 0
	assert.ErrorIs(t, conf.Validate(), rpc.ErrInvalidRPCPort)

	conf = server.NewConfig()
	conf.Backend.PublishTimeout = "later"
	assert.Error(t, conf.Validate())

	conf = server.NewConfig()
	conf.Housekeeping.MaxConcurrency = 0
	assert.Error(t, conf.Validate())
}
