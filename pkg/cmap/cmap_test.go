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

package cmap_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/h5p-shared-state/pkg/cmap"
)

func TestMap(t *testing.T) {
	t.Run("set get and delete", func(t *testing.T) {
		m := cmap.New[string, int]()

		m.Set("content-1", 1)
		v, ok := m.Get("content-1")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		assert.False(t, m.Delete("content-1", func(v int, exists bool) bool { return v > 1 }))
		assert.True(t, m.Delete("content-1", func(v int, exists bool) bool { return exists }))
		_, ok = m.Get("content-1")
		assert.False(t, ok)
	})

	t.Run("upsert", func(t *testing.T) {
		m := cmap.New[int, []string]()
		add := func(s string) []string {
			return m.Upsert(7, func(v []string, exists bool) []string {
				return append(v, s)
			})
		}

		add("a")
		assert.Equal(t, []string{"a", "b"}, add("b"))
		assert.Equal(t, 1, m.Len())
	})

	t.Run("concurrent upserts", func(t *testing.T) {
		m := cmap.New[string, int]()
		const routines = 50
		const keys = 20

		var wg sync.WaitGroup
		for i := 0; i < routines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < keys; k++ {
					m.Upsert(fmt.Sprintf("doc-%d", k), func(v int, _ bool) int { return v + 1 })
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, keys, m.Len())
		for _, v := range m.Values() {
			assert.Equal(t, routines, v)
		}
	})
}
