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

package rpc

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.New("invalid port number for RPC server")
	// ErrInvalidMaxMessageBytes occurs when the message size limit is not positive.
	ErrInvalidMaxMessageBytes = errors.New("invalid max message bytes for RPC server")
	// ErrInvalidMessageRate occurs when the message rate or burst is negative.
	ErrInvalidMessageRate = errors.New("invalid message rate for RPC server")
	// ErrInvalidWriteTimeout occurs when the write timeout is invalid.
	ErrInvalidWriteTimeout = errors.New("invalid write timeout for RPC server")
	// ErrInvalidPingInterval occurs when the ping interval is invalid.
	ErrInvalidPingInterval = errors.New("invalid ping interval for RPC server")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the RPC server.
	Port int `yaml:"Port"`

	// BaseURL is the path prefix the endpoint is mounted under, e.g. "/h5p".
	BaseURL string `yaml:"BaseURL"`

	// MaxMessageBytes is the maximum size of a client message. Connections
	// sending larger messages are closed.
	MaxMessageBytes int64 `yaml:"MaxMessageBytes"`

	// MessagesPerSecond is the rate of messages a connection may send. Zero
	// disables rate limiting.
	MessagesPerSecond float64 `yaml:"MessagesPerSecond"`

	// MessageBurst is the number of messages a connection may send at once.
	MessageBurst int `yaml:"MessageBurst"`

	// SendBufferSize is the number of outgoing messages queued per connection.
	SendBufferSize int `yaml:"SendBufferSize"`

	// WriteTimeout is the deadline of a single write to a connection.
	WriteTimeout string `yaml:"WriteTimeout"`

	// PingInterval is the interval of keep-alive pings. A connection that
	// does not answer within two intervals is closed.
	PingInterval string `yaml:"PingInterval"`

	// AllowedOrigins lists the origins browsers may open connections from,
	// e.g. "https://lms.example.com". "*" allows every origin. When empty,
	// only the origin of the server itself is allowed.
	AllowedOrigins []string `yaml:"AllowedOrigins"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}

	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("must be positive, given %d: %w", c.MaxMessageBytes, ErrInvalidMaxMessageBytes)
	}

	if c.MessagesPerSecond < 0 || c.MessageBurst < 0 {
		return fmt.Errorf(
			"rate %v, burst %d: %w",
			c.MessagesPerSecond,
			c.MessageBurst,
			ErrInvalidMessageRate,
		)
	}

	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return fmt.Errorf("%s: %w", c.WriteTimeout, ErrInvalidWriteTimeout)
	}

	interval, err := time.ParseDuration(c.PingInterval)
	if err != nil || interval <= 0 {
		return fmt.Errorf("%s: %w", c.PingInterval, ErrInvalidPingInterval)
	}

	return nil
}

// ParseWriteTimeout returns the write timeout as a duration.
func (c *Config) ParseWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		return DefaultWriteTimeout
	}
	return d
}

// ParsePingInterval returns the ping interval as a duration.
func (c *Config) ParsePingInterval() time.Duration {
	d, err := time.ParseDuration(c.PingInterval)
	if err != nil || d <= 0 {
		return DefaultPingInterval
	}
	return d
}

// Below are the defaults of the RPC server.
const (
	DefaultPort              = 11101
	DefaultMaxMessageBytes   = 1024 * 1024
	DefaultMessagesPerSecond = 50
	DefaultMessageBurst      = 100
	DefaultSendBufferSize    = 256
	DefaultWriteTimeout      = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
)
