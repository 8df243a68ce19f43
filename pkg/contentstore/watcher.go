// Copyright 2026 Transforma Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package contentstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidates the latest-version cache when artifact files are
// created or modified on disk outside this process (operator edits,
// another node sharing the data directory). Returns when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create content watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{s.promptsDir, s.matrixDir} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".tmp-") {
				// Our own atomic-write staging files.
				continue
			}
			id := s.idForFile(event.Name)
			if id == "" {
				continue
			}
			s.Invalidate(id)
			s.logger.Debug("cache invalidated by file event",
				zap.String("id", id), zap.String("op", event.Op.String()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("content watcher error", zap.Error(err))
		}
	}
}

// idForFile maps an artifact path back to its cache id.
func (s *Store) idForFile(path string) string {
	name := filepath.Base(path)
	if filepath.Dir(path) == s.matrixDir {
		if matrixFileRe.MatchString(name) {
			return MatrixID
		}
		return ""
	}
	if m := promptFileRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}
