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

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yorkie-team/h5p-shared-state/api/types"
	"github.com/yorkie-team/h5p-shared-state/server/logging"
)

// Watcher reports changes of library files.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// Watch starts watching the libraries directory and every library directory
// in it. onChange is called with the library whose files changed until the
// context is done or the watcher is closed.
func (s *Store) Watch(ctx context.Context, onChange func(types.LibraryName)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{store: s, watcher: watcher}
	if err := w.add(s.librariesDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go w.run(ctx, onChange)
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// add watches the directory and its subdirectories.
func (w *Watcher) add(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, onChange func(types.LibraryName)) {
	logger := logging.From(ctx)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						logger.Warnf("watch new directory: %v", err)
					}
				}
			}

			lib, ok := w.store.libraryOf(event.Name)
			if !ok {
				continue
			}
			logger.Debugf("library changed: %s (%s)", lib, event.Op)
			onChange(lib)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("watcher error: %v", err)

		case <-ctx.Done():
			_ = w.watcher.Close()
			return
		}
	}
}
