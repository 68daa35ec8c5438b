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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrRetriesExhausted is returned when every attempt failed with a
// retryable failure.
var ErrRetriesExhausted = errors.New("webhook retries exhausted")

// retry calls send until it succeeds, fails permanently or runs out of
// attempts. It returns the status of the last attempt.
func (c *Client[Req, Res]) retry(ctx context.Context, send func() (int, error)) (int, error) {
	var status int
	var err error
	for attempt := uint64(0); ; attempt++ {
		status, err = send()
		if err == nil || !retryable(status, err) {
			return status, err
		}
		if attempt >= c.options.MaxRetries {
			break
		}

		timer := time.NewTimer(backoff(attempt, c.options.MinWaitInterval, c.options.MaxWaitInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, ctx.Err()
		case <-timer.C:
		}
	}

	return status, fmt.Errorf("%d attempts: %w: %w", c.options.MaxRetries+1, ErrRetriesExhausted, err)
}

// backoff doubles the wait from min on every attempt, capped at max.
func backoff(attempt uint64, min, max time.Duration) time.Duration {
	wait := min
	for i := uint64(0); i < attempt && wait < max; i++ {
		wait *= 2
	}
	if max > 0 && wait > max {
		return max
	}
	return wait
}

// retryable reports whether the host may answer a later attempt.
func retryable(status int, err error) bool {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return true
	}
	if status != 0 {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
