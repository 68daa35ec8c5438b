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

package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/pkg/webhook"
)

type permissionRequest struct {
	User      *types.User `json:"user"`
	ContentID string      `json:"contentId"`
}

type permissionResponse struct {
	Permission types.Permission `json:"permission"`
}

const secret = "h5p-secret"

var alice = &types.User{ID: "alice", Name: "Alice", Email: "alice@example.com", Type: "local"}

func newClient(maxRetries uint64, timeout time.Duration) *webhook.Client[permissionRequest, permissionResponse] {
	return webhook.NewClient[permissionRequest, permissionResponse](webhook.Options{
		MaxRetries:      maxRetries,
		MinWaitInterval: time.Millisecond,
		MaxWaitInterval: 5 * time.Millisecond,
		RequestTimeout:  timeout,
	})
}

// permissionServer answers with the given statuses in order, then grants
// editor permission to alice.
func permissionServer(t *testing.T, calls *int32, statuses ...int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if r.Header.Get(webhook.SignatureHeader) != webhook.Sign(secret, body) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}

		var req permissionRequest
		if err := json.Unmarshal(body, &req); err != nil || req.User == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		res := permissionResponse{}
		if req.User.ID == "alice" && req.ContentID == "poll" {
			res.Permission = types.PermissionPrivileged
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(res))
	}))
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("exchange permission test", func(t *testing.T) {
		var calls int32
		srv := permissionServer(t, &calls)
		defer srv.Close()

		res, status, err := newClient(0, time.Second).Send(ctx, srv.URL, secret, &permissionRequest{
			User:      alice,
			ContentID: "poll",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, types.PermissionPrivileged, res.Permission)

		res, _, err = newClient(0, time.Second).Send(ctx, srv.URL, secret, &permissionRequest{
			User:      alice,
			ContentID: "quiz",
		})
		require.NoError(t, err)
		assert.Equal(t, types.PermissionNone, res.Permission)
	})

	t.Run("sign request body test", func(t *testing.T) {
		var calls int32
		srv := permissionServer(t, &calls)
		defer srv.Close()

		_, status, err := newClient(0, time.Second).Send(ctx, srv.URL, "other-secret", &permissionRequest{
			User:      alice,
			ContentID: "poll",
		})
		assert.ErrorIs(t, err, webhook.ErrUnexpectedStatusCode)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("retry server errors test", func(t *testing.T) {
		var calls int32
		srv := permissionServer(t, &calls, http.StatusServiceUnavailable, http.StatusTooManyRequests)
		defer srv.Close()

		res, status, err := newClient(2, time.Second).Send(ctx, srv.URL, secret, &permissionRequest{
			User:      alice,
			ContentID: "poll",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, types.PermissionPrivileged, res.Permission)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("give up after max retries test", func(t *testing.T) {
		var calls int32
		srv := permissionServer(t, &calls,
			http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError,
		)
		defer srv.Close()

		_, status, err := newClient(1, time.Second).Send(ctx, srv.URL, secret, &permissionRequest{
			User:      alice,
			ContentID: "poll",
		})
		assert.ErrorIs(t, err, webhook.ErrRetriesExhausted)
		assert.ErrorIs(t, err, webhook.ErrUnexpectedStatusCode)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("do not retry client errors test", func(t *testing.T) {
		var calls int32
		srv := permissionServer(t, &calls, http.StatusForbidden)
		defer srv.Close()

		_, status, err := newClient(3, time.Second).Send(ctx, srv.URL, secret, &permissionRequest{
			User:      alice,
			ContentID: "poll",
		})
		assert.ErrorIs(t, err, webhook.ErrUnexpectedStatusCode)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("reject undecodable answers test", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("granted"))
		}))
		defer srv.Close()

		_, _, err := newClient(0, time.Second).Send(ctx, srv.URL, secret, &permissionRequest{User: alice})
		assert.ErrorIs(t, err, webhook.ErrUnexpectedResponse)
	})

	t.Run("retry timed out requests test", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				time.Sleep(100 * time.Millisecond)
			}
			_ = json.NewEncoder(w).Encode(permissionResponse{Permission: types.PermissionUser})
		}))
		defer srv.Close()

		res, _, err := newClient(1, 30*time.Millisecond).Send(ctx, srv.URL, "", &permissionRequest{User: alice})
		require.NoError(t, err)
		assert.Equal(t, types.PermissionUser, res.Permission)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("stop on canceled context test", func(t *testing.T) {
		var calls int32
		srv := permissionServer(t, &calls, http.StatusBadGateway, http.StatusBadGateway)
		defer srv.Close()

		client := webhook.NewClient[permissionRequest, permissionResponse](webhook.Options{
			MaxRetries:      5,
			MinWaitInterval: time.Second,
			MaxWaitInterval: time.Second,
			RequestTimeout:  time.Second,
		})
		canceled, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, _, err := client.Send(canceled, srv.URL, secret, &permissionRequest{User: alice})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}
