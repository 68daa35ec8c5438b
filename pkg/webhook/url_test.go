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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/h5p-shared-state/pkg/webhook"
)

func TestValidateURL(t *testing.T) {
	t.Run("reject private hosts test", func(t *testing.T) {
		for _, u := range []string{
			"http://127.0.0.1:8080/permission",
			"http://localhost/permission",
			"http://[::1]/permission",
			"http://10.1.2.3/permission",
			"http://172.16.0.1/permission",
			"http://192.168.1.10/permission",
			"http://169.254.169.254/latest/meta-data",
			"http://100.64.0.1/permission",
			"http://0.0.0.0/permission",
			"http://[::ffff:127.0.0.1]/permission",
		} {
			assert.ErrorIs(t, webhook.ValidateURL(u, false), webhook.ErrInvalidURL, u)
		}
	})

	t.Run("accept public hosts test", func(t *testing.T) {
		assert.NoError(t, webhook.ValidateURL("https://8.8.8.8/permission", false))
		assert.NoError(t, webhook.ValidateURL("http://1.1.1.1:8080/permission", false))
	})

	t.Run("allow private hosts when configured test", func(t *testing.T) {
		assert.NoError(t, webhook.ValidateURL("http://127.0.0.1:8080/permission", true))
		assert.NoError(t, webhook.ValidateURL("http://localhost/permission", true))
	})

	t.Run("reject malformed urls test", func(t *testing.T) {
		for _, u := range []string{
			"ftp://example.com/permission",
			"file:///etc/passwd",
			"http:///permission",
			"://missing-scheme",
		} {
			assert.ErrorIs(t, webhook.ValidateURL(u, true), webhook.ErrInvalidURL, u)
		}
	})
}
