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

// Package housekeeping is the package for housekeeping service. It trims the
// operation logs of documents so that memory stays bounded.
package housekeeping

import (
	"fmt"
	"time"
)

// Config is the configuration for the housekeeping service.
type Config struct {
	// Interval is the time between housekeeping runs.
	Interval string `yaml:"Interval"`

	// OpLogRetention is the number of most recent operations kept per
	// document. Operations based on older versions can no longer be
	// transformed and are rejected. Zero keeps the whole log.
	OpLogRetention int64 `yaml:"OpLogRetention"`

	// MaxConcurrency is the maximum number of documents compacted at once.
	MaxConcurrency int64 `yaml:"MaxConcurrency"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-interval" flag: %w`,
			c.Interval,
			err,
		)
	}

	if c.OpLogRetention < 0 {
		return fmt.Errorf(
			`invalid argument %d for "--op-log-retention" flag`,
			c.OpLogRetention,
		)
	}

	if c.MaxConcurrency <= 0 {
		return fmt.Errorf(
			`invalid argument %d for "--housekeeping-max-concurrency" flag`,
			c.MaxConcurrency,
		)
	}

	return nil
}

// ParseInterval parses the interval.
func (c *Config) ParseInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %s: %w", c.Interval, err)
	}

	return interval, nil
}
