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

// Package contentstore persists prompts and decision matrices as
// immutable per-version files. Prior versions are never mutated or
// deleted, which is what makes rollback and A/B study possible.
//
// Layout:
//
//	{dataDir}/prompts/{promptId}-v{version}.txt
//	{dataDir}/decision-matrix/{version}.json
package contentstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/audit"
)

// ErrNotFound is returned when an artifact or version does not exist.
var ErrNotFound = errors.New("artifact not found")

// ErrVersionExists is returned when an explicit-version save collides
// with an existing version.
var ErrVersionExists = errors.New("version already exists")

// MatrixID is the single artifact id of the decision matrix family.
const MatrixID = "decision-matrix"

var promptFileRe = regexp.MustCompile(`^(.+)-v(\d+\.\d+(?:\.\d+)?)\.txt$`)
var matrixFileRe = regexp.MustCompile(`^(\d+\.\d+(?:\.\d+)?)\.json$`)

// Store serves versioned prompt and matrix artifacts. Latest-version
// reads go through a read-mostly cache with singleflight fill; any save
// (or an on-disk edit seen by the watcher) invalidates the cached
// latest for that id.
type Store struct {
	promptsDir string
	matrixDir  string
	auditLog   *audit.Log
	logger     *zap.Logger

	mu     sync.RWMutex
	latest map[string]cached // id -> latest artifact
	group  singleflight.Group
}

type cached struct {
	version string
	content []byte
}

// New creates the content store rooted at dataDir. auditLog may be nil
// in tests; saves then skip the audit emission.
func New(dataDir string, auditLog *audit.Log) (*Store, error) {
	s := &Store{
		promptsDir: filepath.Join(dataDir, "prompts"),
		matrixDir:  filepath.Join(dataDir, "decision-matrix"),
		auditLog:   auditLog,
		logger:     log.Named("contentstore"),
		latest:     make(map[string]cached),
	}
	for _, dir := range []string{s.promptsDir, s.matrixDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create content directory: %w", err)
		}
	}
	return s, nil
}

// ---- prompts ----

// SavePrompt writes a new prompt version. With version == "" the next
// patch version is allocated; an explicit version must not collide.
// Returns the version written.
func (s *Store) SavePrompt(id, content, userID, version string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("invalid prompt id %q", id)
	}
	return s.save(s.promptsDir, id, []byte(content), userID, version, audit.EventPromptUpdate)
}

// GetLatestPrompt returns the newest version of the prompt.
func (s *Store) GetLatestPrompt(id string) (content string, version string, err error) {
	b, v, err := s.getLatest(s.promptsDir, id)
	return string(b), v, err
}

// GetPrompt returns an exact prompt version.
func (s *Store) GetPrompt(id, version string) (string, error) {
	b, err := os.ReadFile(filepath.Join(s.promptsDir, fmt.Sprintf("%s-v%s.txt", id, version)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt %s v%s: %w", id, version, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read prompt %s v%s: %w", id, version, err)
	}
	return string(b), nil
}

// ListPromptVersions returns the prompt's versions in descending order.
func (s *Store) ListPromptVersions(id string) ([]string, error) {
	return s.listVersions(s.promptsDir, id)
}

// ---- matrices ----

// SaveMatrix writes a new matrix version from already-sanitized JSON.
func (s *Store) SaveMatrix(data []byte, userID, version string) (string, error) {
	return s.save(s.matrixDir, MatrixID, data, userID, version, audit.EventMatrixUpdate)
}

// GetLatestMatrix returns the newest matrix JSON and its version.
func (s *Store) GetLatestMatrix() ([]byte, string, error) {
	return s.getLatest(s.matrixDir, MatrixID)
}

// GetMatrixVersion returns an exact matrix version.
func (s *Store) GetMatrixVersion(version string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.matrixDir, version+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("matrix v%s: %w", version, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read matrix v%s: %w", version, err)
	}
	return b, nil
}

// ListMatrixVersions returns matrix versions in descending order.
func (s *Store) ListMatrixVersions() ([]string, error) {
	return s.listVersions(s.matrixDir, MatrixID)
}

// ---- shared machinery ----

func (s *Store) save(dir, id string, content []byte, userID, explicit string, event audit.EventType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.scanVersions(dir, id)
	if err != nil {
		return "", err
	}

	var oldVersion string
	if len(versions) > 0 {
		oldVersion = versions[0].String()
	}

	var next Version
	if explicit != "" {
		next, err = ParseVersion(explicit)
		if err != nil {
			return "", err
		}
		for _, v := range versions {
			if v.Compare(next) == 0 {
				return "", fmt.Errorf("%s v%s: %w", id, explicit, ErrVersionExists)
			}
		}
	} else if len(versions) == 0 {
		next = FirstVersion
	} else {
		next = versions[0].BumpPatch()
	}

	path := s.artifactPath(dir, id, next.String())
	if err := atomicWrite(path, content); err != nil {
		return "", err
	}

	// The new file is only the latest if it outranks what was there.
	if len(versions) == 0 || next.Compare(versions[0]) > 0 {
		s.latest[cacheKey(dir, id)] = cached{version: next.String(), content: content}
	}

	s.logger.Info("artifact version written",
		zap.String("id", id),
		zap.String("version", next.String()),
		zap.String("user_id", userID),
	)

	if s.auditLog != nil {
		err := s.auditLog.Append(&audit.Entry{
			SessionID: audit.PublicSession,
			EventType: event,
			UserID:    userID,
			Data: map[string]any{
				"artifactId": id,
				"oldVersion": oldVersion,
				"newVersion": next.String(),
				"userId":     userID,
			},
		})
		if err != nil {
			return "", fmt.Errorf("failed to audit %s: %w", event, err)
		}
	}

	return next.String(), nil
}

func (s *Store) getLatest(dir, id string) ([]byte, string, error) {
	key := cacheKey(dir, id)

	s.mu.RLock()
	c, ok := s.latest[key]
	s.mu.RUnlock()
	if ok {
		return c.content, c.version, nil
	}

	// Collapse concurrent fills for the same artifact.
	v, err, _ := s.group.Do(key, func() (any, error) {
		versions, err := s.scanVersions(dir, id)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		version := versions[0].String()
		content, err := os.ReadFile(s.artifactPath(dir, id, version))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s v%s: %w", id, version, err)
		}
		entry := cached{version: version, content: content}
		s.mu.Lock()
		s.latest[key] = entry
		s.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, "", err
	}
	entry := v.(cached)
	return entry.content, entry.version, nil
}

// Invalidate drops the cached latest for a prompt id (or MatrixID).
// The watcher calls this when a file changes on disk.
func (s *Store) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, cacheKey(s.promptsDir, id))
	delete(s.latest, cacheKey(s.matrixDir, id))
}

func (s *Store) listVersions(dir, id string) ([]string, error) {
	versions, err := s.scanVersions(dir, id)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out, nil
}

// scanVersions returns the artifact's versions, newest first.
func (s *Store) scanVersions(dir, id string) ([]Version, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var versions []Version
	for _, f := range files {
		name := f.Name()
		var verStr string
		if dir == s.matrixDir {
			m := matrixFileRe.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			verStr = m[1]
		} else {
			m := promptFileRe.FindStringSubmatch(name)
			if m == nil || m[1] != id {
				continue
			}
			verStr = m[2]
		}
		v, err := ParseVersion(verStr)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Compare(versions[j]) > 0 })
	return versions, nil
}

func (s *Store) artifactPath(dir, id, version string) string {
	if dir == s.matrixDir {
		return filepath.Join(dir, version+".json")
	}
	return filepath.Join(dir, fmt.Sprintf("%s-v%s.txt", id, version))
}

func cacheKey(dir, id string) string {
	return dir + "/" + id
}

// atomicWrite writes to a temp file in the target directory and
// renames it into place, so readers never observe a partial artifact.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename artifact into place: %w", err)
	}
	return nil
}
