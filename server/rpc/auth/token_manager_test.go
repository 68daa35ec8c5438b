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

package auth_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/server/rpc/auth"
)

func TestTokenVerifier(t *testing.T) {
	verifier := auth.NewTokenVerifier("secret", time.Hour)
	alice := &types.User{ID: "alice", Name: "Alice", Type: "local"}

	t.Run("generate and verify test", func(t *testing.T) {
		token, err := verifier.Generate(alice)
		require.NoError(t, err)

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, alice, claims.User())
	})

	t.Run("reject tokens of other keys test", func(t *testing.T) {
		token, err := auth.NewTokenVerifier("other", time.Hour).Generate(alice)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("reject expired tokens test", func(t *testing.T) {
		token, err := auth.NewTokenVerifier("secret", -time.Minute).Generate(alice)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("reject unexpected signing methods test", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "alice"}).
			SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("reject tokens without subject test", func(t *testing.T) {
		token, err := verifier.Generate(&types.User{})
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestRequestToUser(t *testing.T) {
	verifier := auth.NewTokenVerifier("secret", time.Hour)
	token, err := verifier.Generate(&types.User{ID: "bob"})
	require.NoError(t, err)

	t.Run("bearer header test", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/shared-state", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		user, err := verifier.RequestToUser(r)
		require.NoError(t, err)
		assert.Equal(t, "bob", user.ID)
	})

	t.Run("query parameter test", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/shared-state?token="+token, nil)

		user, err := verifier.RequestToUser(r)
		require.NoError(t, err)
		assert.Equal(t, "bob", user.ID)
	})

	t.Run("anonymous request test", func(t *testing.T) {
		user, err := verifier.RequestToUser(httptest.NewRequest("GET", "/shared-state", nil))
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("malformed header test", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/shared-state", nil)
		r.Header.Set("Authorization", "Basic abc")

		_, err := verifier.RequestToUser(r)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
