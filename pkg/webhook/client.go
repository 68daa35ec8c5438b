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

// Package webhook posts signed JSON requests to host applications and decodes
// their JSON answers.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

var (
	// ErrUnexpectedStatusCode is returned when the webhook answers with a
	// status other than 200.
	ErrUnexpectedStatusCode = errors.New("unexpected status code from webhook")

	// ErrUnexpectedResponse is returned when the answer cannot be decoded.
	ErrUnexpectedResponse = errors.New("unexpected response from webhook")
)

// SignatureHeader carries the HMAC-SHA256 signature of the request body as
// "sha256=<hex>".
const SignatureHeader = "X-Signature-256"

// Options are the options of a Client. A zero MaxRetries sends once.
type Options struct {
	MaxRetries      uint64
	MinWaitInterval time.Duration
	MaxWaitInterval time.Duration
	RequestTimeout  time.Duration
}

// Client posts Req values to webhooks and decodes Res answers.
type Client[Req any, Res any] struct {
	httpClient *http.Client
	options    Options
}

// NewClient creates a new instance of Client.
func NewClient[Req any, Res any](options Options) *Client[Req, Res] {
	return &Client[Req, Res]{
		httpClient: &http.Client{Timeout: options.RequestTimeout},
		options:    options,
	}
}

// Send posts the request to url and decodes the answer. The body is signed
// when secret is not empty. Answers with a 5xx or 429 status, timeouts and
// reset connections are retried. The returned status is the status of the
// last answer, or 0 when none was received.
func (c *Client[Req, Res]) Send(ctx context.Context, url, secret string, req *Req) (*Res, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal webhook request: %w", err)
	}

	var res *Res
	status, err := c.retry(ctx, func() (int, error) {
		answer, status, err := c.post(ctx, url, secret, body)
		res = answer
		return status, err
	})
	if err != nil {
		return nil, status, err
	}
	return res, status, nil
}

func (c *Client[Req, Res]) post(ctx context.Context, url, secret string, body []byte) (*Res, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("post to webhook: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("%d: %w", resp.StatusCode, ErrUnexpectedStatusCode)
	}

	res := new(Res)
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%v: %w", err, ErrUnexpectedResponse)
	}
	return res, resp.StatusCode, nil
}

// Sign returns the signature header value of the body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
