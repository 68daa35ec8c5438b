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

package auth

import (
	"fmt"
	"time"

	"github.com/yorkie-team/h5p-shared-state/internal/validation"
)

// Config is the configuration of token authentication.
type Config struct {
	// SecretKey signs and verifies user tokens.
	SecretKey string `yaml:"SecretKey" validate:"required"`

	// TokenDuration is the lifetime of the tokens issued by Generate.
	TokenDuration string `yaml:"TokenDuration" validate:"required,duration"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// NewTokenVerifierFromConfig creates a TokenVerifier of the config.
func NewTokenVerifierFromConfig(conf *Config) (*TokenVerifier, error) {
	duration, err := time.ParseDuration(conf.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("parse token duration %s: %w", conf.TokenDuration, err)
	}
	return NewTokenVerifier(conf.SecretKey, duration), nil
}
