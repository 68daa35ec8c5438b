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

// Package sync provides per-document locks.
package sync

import (
	"github.com/moby/locker"
)

// Key represents key of Locker.
type Key string

// NewKey creates a key locking the document of the given content.
func NewKey(contentID string) Key {
	return Key("doc/" + contentID)
}

// String returns a string representation of this Key.
func (k Key) String() string {
	return string(k)
}

// LockerManager manages Lockers. Locks of distinct keys never block each
// other and unused locks are released from memory.
type LockerManager struct {
	locks *locker.Locker
}

// New creates a new instance of LockerManager.
func New() *LockerManager {
	return &LockerManager{
		locks: locker.New(),
	}
}

// Locker returns the locker of the given key.
func (m *LockerManager) Locker(key Key) Locker {
	return &internalLocker{
		key:   key.String(),
		locks: m.locks,
	}
}

// A Locker represents an object that can be locked and unlocked.
type Locker interface {
	// Lock locks the mutex.
	Lock()

	// Unlock unlocks the mutex.
	Unlock() error
}

type internalLocker struct {
	key   string
	locks *locker.Locker
}

// Lock locks the mutex.
func (il *internalLocker) Lock() {
	il.locks.Lock(il.key)
}

// Unlock unlocks the mutex.
func (il *internalLocker) Unlock() error {
	return il.locks.Unlock(il.key)
}
