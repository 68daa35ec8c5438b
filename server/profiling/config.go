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

// Package profiling serves the metrics and pprof endpoints.
package profiling

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/yorkie-team/h5p-shared-state/internal/validation"
)

// ErrInvalidProfilingConfig is returned when the profiling config is invalid.
var ErrInvalidProfilingConfig = errors.New("invalid profiling config")

// Config is the configuration of the profiling server.
type Config struct {
	// Host is the interface the server binds. Empty binds all interfaces.
	Host string `yaml:"Host" validate:"omitempty,hostname|ip"`

	// Port is the port of the metrics and pprof endpoints.
	Port int `yaml:"Port" validate:"min=1,max=65535"`

	// EnablePprof exposes /debug/pprof next to the metrics.
	EnablePprof bool `yaml:"EnablePprof"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("profiling: %v: %w", err, ErrInvalidProfilingConfig)
	}
	return nil
}

// Addr returns the address the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
