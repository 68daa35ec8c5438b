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

package webhook

import (
	"fmt"
	"time"

	"github.com/yorkie-team/h5p-shared-state/internal/validation"
	"github.com/yorkie-team/h5p-shared-state/pkg/webhook"
)

// Config is the configuration of the permission webhook.
type Config struct {
	// URL is the endpoint permissions are requested from. An empty URL
	// disables the webhook.
	URL string `yaml:"URL" validate:"omitempty,url"`

	// Secret signs request bodies. An empty secret sends unsigned requests.
	Secret string `yaml:"Secret"`

	// AllowPrivateURL allows URLs resolving to loopback or private networks.
	AllowPrivateURL bool `yaml:"AllowPrivateURL"`

	// CacheSize is the number of cached permissions.
	CacheSize int `yaml:"CacheSize" validate:"gt=0"`

	// CacheTTL is how long a permission stays cached.
	CacheTTL string `yaml:"CacheTTL" validate:"required,duration"`

	// MaxRetries is the number of retries of a failed request.
	MaxRetries uint64 `yaml:"MaxRetries"`

	// MinWaitInterval is the wait before the first retry. It doubles with
	// every retry up to MaxWaitInterval.
	MinWaitInterval string `yaml:"MinWaitInterval" validate:"required,duration"`

	// MaxWaitInterval is the longest wait between retries.
	MaxWaitInterval string `yaml:"MaxWaitInterval" validate:"required,duration"`

	// RequestTimeout is the timeout of a single request.
	RequestTimeout string `yaml:"RequestTimeout" validate:"required,duration"`
}

// Enabled returns whether a webhook URL is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// Validate validates this config.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	if c.Enabled() {
		if err := webhook.ValidateURL(c.URL, c.AllowPrivateURL); err != nil {
			return err
		}
	}

	return nil
}

// options returns the client options of this config.
func (c *Config) options() webhook.Options {
	return webhook.Options{
		MaxRetries:      c.MaxRetries,
		MinWaitInterval: parseDuration(c.MinWaitInterval),
		MaxWaitInterval: parseDuration(c.MaxWaitInterval),
		RequestTimeout:  parseDuration(c.RequestTimeout),
	}
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
