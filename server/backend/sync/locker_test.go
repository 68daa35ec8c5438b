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

package sync_test

import (
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/h5p-shared-state/server/backend/sync"
)

func TestLocker(t *testing.T) {
	t.Run("serialize holders of one key", func(t *testing.T) {
		manager := sync.New()
		counter := 0

		var wg gosync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l := manager.Locker(sync.NewKey("content-1"))
				l.Lock()
				counter++
				assert.NoError(t, l.Unlock())
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, counter)
	})

	t.Run("distinct keys do not block", func(t *testing.T) {
		manager := sync.New()
		a := manager.Locker(sync.NewKey("a"))
		b := manager.Locker(sync.NewKey("b"))

		a.Lock()
		b.Lock()
		assert.NoError(t, b.Unlock())
		assert.NoError(t, a.Unlock())
	})

	t.Run("unlock without lock", func(t *testing.T) {
		manager := sync.New()
		assert.Error(t, manager.Locker(sync.NewKey("x")).Unlock())
	})
}
