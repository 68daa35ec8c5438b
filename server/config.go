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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/backend/filesystem"
	"github.com/yorkie-team/h5p-shared-state/server/backend/housekeeping"
	"github.com/yorkie-team/h5p-shared-state/server/profiling"
	"github.com/yorkie-team/h5p-shared-state/server/rpc"
	"github.com/yorkie-team/h5p-shared-state/server/rpc/auth"
	"github.com/yorkie-team/h5p-shared-state/server/webhook"
)

// Below are the values of the default values of the server config.
const (
	DefaultRPCPort       = rpc.DefaultPort
	DefaultProfilingPort = 11102

	DefaultHousekeepingInterval       = 30 * time.Second
	DefaultHousekeepingOpLogRetention = 1000
	DefaultHousekeepingMaxConcurrency = 8

	DefaultValidatorCacheSize        = 1000
	DefaultValidatorCacheTTL         = time.Duration(0)
	DefaultSchemaDraft               = "2020-12"
	DefaultSubscriptionBufferSize    = 64
	DefaultPublishTimeout            = 100 * time.Millisecond
	DefaultMaxSubscribersPerDocument = 0

	DefaultSecretKey     = "h5p-shared-state-secret"
	DefaultTokenDuration = 24 * time.Hour

	DefaultWebhookCacheSize       = 5000
	DefaultWebhookCacheTTL        = 10 * time.Second
	DefaultWebhookMaxRetries      = 3
	DefaultWebhookMinWaitInterval = 100 * time.Millisecond
	DefaultWebhookMaxWaitInterval = 3 * time.Second
	DefaultWebhookRequestTimeout  = 3 * time.Second
)

// Config is the configuration for creating a Server instance. Auth, Webhook
// and Storage configure the host collaborators of the standalone binary; an
// application embedding the server provides its own.
type Config struct {
	RPC          *rpc.Config          `yaml:"RPC"`
	Profiling    *profiling.Config    `yaml:"Profiling"`
	Housekeeping *housekeeping.Config `yaml:"Housekeeping"`
	Backend      *backend.Config      `yaml:"Backend"`
	Auth         *auth.Config         `yaml:"Auth"`
	Webhook      *webhook.Config      `yaml:"Webhook"`
	Storage      *filesystem.Config   `yaml:"Storage"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Auth != nil {
		if err := c.Auth.Validate(); err != nil {
			return err
		}
	}

	if c.Webhook != nil {
		if err := c.Webhook.Validate(); err != nil {
			return err
		}
	}

	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	defaults := NewConfig()

	if c.RPC == nil {
		c.RPC = defaults.RPC
	}
	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.MaxMessageBytes == 0 {
		c.RPC.MaxMessageBytes = rpc.DefaultMaxMessageBytes
	}
	if c.RPC.SendBufferSize == 0 {
		c.RPC.SendBufferSize = rpc.DefaultSendBufferSize
	}
	if c.RPC.WriteTimeout == "" {
		c.RPC.WriteTimeout = rpc.DefaultWriteTimeout.String()
	}
	if c.RPC.PingInterval == "" {
		c.RPC.PingInterval = rpc.DefaultPingInterval.String()
	}

	if c.Profiling == nil {
		c.Profiling = defaults.Profiling
	}
	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Housekeeping == nil {
		c.Housekeeping = defaults.Housekeeping
	}
	if c.Housekeeping.Interval == "" {
		c.Housekeeping.Interval = DefaultHousekeepingInterval.String()
	}
	if c.Housekeeping.MaxConcurrency == 0 {
		c.Housekeeping.MaxConcurrency = DefaultHousekeepingMaxConcurrency
	}

	if c.Backend == nil {
		c.Backend = defaults.Backend
	}
	if c.Backend.ValidatorCacheSize == 0 {
		c.Backend.ValidatorCacheSize = DefaultValidatorCacheSize
	}
	if c.Backend.ValidatorCacheTTL == "" {
		c.Backend.ValidatorCacheTTL = DefaultValidatorCacheTTL.String()
	}
	if c.Backend.SchemaDraft == "" {
		c.Backend.SchemaDraft = DefaultSchemaDraft
	}
	if c.Backend.SubscriptionBufferSize == 0 {
		c.Backend.SubscriptionBufferSize = DefaultSubscriptionBufferSize
	}
	if c.Backend.PublishTimeout == "" {
		c.Backend.PublishTimeout = DefaultPublishTimeout.String()
	}

	if c.Auth != nil {
		if c.Auth.SecretKey == "" {
			c.Auth.SecretKey = DefaultSecretKey
		}
		if c.Auth.TokenDuration == "" {
			c.Auth.TokenDuration = DefaultTokenDuration.String()
		}
	}

	if c.Webhook != nil {
		if c.Webhook.CacheSize == 0 {
			c.Webhook.CacheSize = DefaultWebhookCacheSize
		}
		if c.Webhook.CacheTTL == "" {
			c.Webhook.CacheTTL = DefaultWebhookCacheTTL.String()
		}
		if c.Webhook.MaxRetries == 0 {
			c.Webhook.MaxRetries = DefaultWebhookMaxRetries
		}
		if c.Webhook.MinWaitInterval == "" {
			c.Webhook.MinWaitInterval = DefaultWebhookMinWaitInterval.String()
		}
		if c.Webhook.MaxWaitInterval == "" {
			c.Webhook.MaxWaitInterval = DefaultWebhookMaxWaitInterval.String()
		}
		if c.Webhook.RequestTimeout == "" {
			c.Webhook.RequestTimeout = DefaultWebhookRequestTimeout.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:              port,
			MaxMessageBytes:   rpc.DefaultMaxMessageBytes,
			MessagesPerSecond: rpc.DefaultMessagesPerSecond,
			MessageBurst:      rpc.DefaultMessageBurst,
			SendBufferSize:    rpc.DefaultSendBufferSize,
			WriteTimeout:      rpc.DefaultWriteTimeout.String(),
			PingInterval:      rpc.DefaultPingInterval.String(),
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Housekeeping: &housekeeping.Config{
			Interval:       DefaultHousekeepingInterval.String(),
			OpLogRetention: DefaultHousekeepingOpLogRetention,
			MaxConcurrency: DefaultHousekeepingMaxConcurrency,
		},
		Backend: &backend.Config{
			ValidatorCacheSize:        DefaultValidatorCacheSize,
			ValidatorCacheTTL:         DefaultValidatorCacheTTL.String(),
			SchemaDraft:               DefaultSchemaDraft,
			SubscriptionBufferSize:    DefaultSubscriptionBufferSize,
			PublishTimeout:            DefaultPublishTimeout.String(),
			MaxSubscribersPerDocument: DefaultMaxSubscribersPerDocument,
		},
	}
}
