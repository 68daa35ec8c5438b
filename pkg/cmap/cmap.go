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

// Package cmap provides a sharded concurrent map. The server keeps its
// connection registry and document subscriptions in it.
package cmap

import (
	"fmt"
	"hash/fnv"
	"sync"
)

const numShards = 32

type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

// Map is a concurrent map that is safe for multiple routines. Keys are
// spread over shards to reduce lock contention.
type Map[K comparable, V any] struct {
	shards [numShards]shard[K, V]
}

// New creates a new Map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) shardForKey(key K) *shard[K, V] {
	hash := fnv.New32a()
	if k, ok := any(key).(string); ok {
		_, _ = hash.Write([]byte(k))
	} else {
		_, _ = fmt.Fprint(hash, key)
	}
	return &m.shards[hash.Sum32()%numShards]
}

// Set sets a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardForKey(key)
	s.Lock()
	defer s.Unlock()

	s.items[key] = value
}

// UpsertFunc computes the new value of a key from its current value.
type UpsertFunc[V any] func(value V, exists bool) V

// Upsert inserts or updates a key-value pair atomically.
func (m *Map[K, V]) Upsert(key K, fn UpsertFunc[V]) V {
	s := m.shardForKey(key)
	s.Lock()
	defer s.Unlock()

	v, exists := s.items[key]
	res := fn(v, exists)
	s.items[key] = res
	return res
}

// Get retrieves a value from the map.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardForKey(key)
	s.RLock()
	defer s.RUnlock()

	value, exists := s.items[key]
	return value, exists
}

// DeleteFunc decides whether the value of a key is deleted.
type DeleteFunc[V any] func(value V, exists bool) bool

// Delete removes the value of a key if fn returns true, atomically.
func (m *Map[K, V]) Delete(key K, fn DeleteFunc[V]) bool {
	s := m.shardForKey(key)
	s.Lock()
	defer s.Unlock()

	value, exists := s.items[key]
	del := fn(value, exists)
	if del && exists {
		delete(s.items, key)
	}
	return del
}

// Len returns the number of items in the map.
func (m *Map[K, V]) Len() int {
	count := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		count += len(s.items)
		s.RUnlock()
	}
	return count
}

// Values returns a slice of all values in the map.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0)
	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		for _, v := range s.items {
			values = append(values, v)
		}
		s.RUnlock()
	}
	return values
}
