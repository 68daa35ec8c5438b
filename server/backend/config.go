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

package backend

import (
	"fmt"
	"time"

	"github.com/yorkie-team/h5p-shared-state/internal/validation"
	"github.com/yorkie-team/h5p-shared-state/server/validators"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// ValidatorCacheSize is the maximum number of cached validation artifacts.
	ValidatorCacheSize int `yaml:"ValidatorCacheSize" validate:"gt=0"`

	// ValidatorCacheTTL is how long a validation artifact stays cached. "0"
	// keeps artifacts until the library changes.
	ValidatorCacheTTL string `yaml:"ValidatorCacheTTL" validate:"required,duration"`

	// SchemaDraft is the JSON Schema dialect of schemas that do not declare
	// one.
	SchemaDraft string `yaml:"SchemaDraft"`

	// SubscriptionBufferSize is the number of events buffered per subscriber.
	SubscriptionBufferSize int `yaml:"SubscriptionBufferSize" validate:"gt=0"`

	// PublishTimeout is how long a broadcast waits for a slow subscriber
	// before dropping it.
	PublishTimeout string `yaml:"PublishTimeout" validate:"required,duration"`

	// MaxSubscribersPerDocument limits the subscribers of a document. Zero
	// means unlimited.
	MaxSubscribersPerDocument int `yaml:"MaxSubscribersPerDocument" validate:"gte=0"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	if _, err := validators.ParseDraft(c.SchemaDraft); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--schema-draft" flag: %w`, c.SchemaDraft, err)
	}

	return nil
}

// ParseValidatorCacheTTL returns the TTL of cached validation artifacts.
func (c *Config) ParseValidatorCacheTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.ValidatorCacheTTL)
	if err != nil {
		return 0, fmt.Errorf("parse validator cache ttl %s: %w", c.ValidatorCacheTTL, err)
	}
	return ttl, nil
}

// ParsePublishTimeout returns the publish timeout.
func (c *Config) ParsePublishTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.PublishTimeout)
	if err != nil {
		return 0, fmt.Errorf("parse publish timeout %s: %w", c.PublishTimeout, err)
	}
	return timeout, nil
}
