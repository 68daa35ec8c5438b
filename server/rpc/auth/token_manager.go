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

// Package auth resolves the users of connections from signed tokens.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

var (
	// ErrUnexpectedSigningMethod is returned when the signing method is unexpected.
	ErrUnexpectedSigningMethod = errors.Unauthenticated("unexpected signing method").WithCode("ErrUnexpectedSigningMethod")

	// ErrInvalidToken is returned when a token can not be verified.
	ErrInvalidToken = errors.Unauthenticated("invalid token").WithCode("ErrInvalidToken")
)

// TokenQueryParam is the query parameter carrying the token of clients that
// can not set headers on WebSocket upgrades.
const TokenQueryParam = "token"

// UserClaims is a JWT claims struct for a user.
type UserClaims struct {
	jwt.RegisteredClaims

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Type  string `json:"type,omitempty"`
}

// User returns the user the claims identify. The subject is the user id.
func (c *UserClaims) User() *types.User {
	return &types.User{
		ID:    c.Subject,
		Name:  c.Name,
		Email: c.Email,
		Type:  c.Type,
	}
}

// TokenVerifier issues and verifies HS256 user tokens.
type TokenVerifier struct {
	secretKey     string
	tokenDuration time.Duration
}

// NewTokenVerifier creates a new TokenVerifier.
func NewTokenVerifier(secretKey string, tokenDuration time.Duration) *TokenVerifier {
	return &TokenVerifier{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
	}
}

// Generate generates a new token for the user.
func (v *TokenVerifier) Generate(user *types.User) (string, error) {
	now := time.Now()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.tokenDuration)),
		},
		Name:  user.Name,
		Email: user.Email,
		Type:  user.Type,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(v.secretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// Verify verifies the given token.
func (v *TokenVerifier) Verify(token string) (*UserClaims, error) {
	claims := &UserClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: %w", token.Method.Alg(), ErrUnexpectedSigningMethod)
		}
		return []byte(v.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %v: %w", err, ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing subject: %w", ErrInvalidToken)
	}

	return claims, nil
}

// RequestToUser resolves the user of an upgrade request from the bearer
// token of its Authorization header, or from the token query parameter.
// Requests without a token are anonymous.
func (v *TokenVerifier) RequestToUser(r *http.Request) (*types.User, error) {
	token := ""
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return nil, fmt.Errorf("authorization scheme: %w", ErrInvalidToken)
		}
		token = strings.TrimSpace(value)
	} else {
		token = r.URL.Query().Get(TokenQueryParam)
	}
	if token == "" {
		return nil, nil
	}

	claims, err := v.Verify(token)
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}
