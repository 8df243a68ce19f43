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

// Package sessionstore persists classification sessions as one JSON
// file per session under {dataDir}/sessions. Mutation goes through
// Update, which holds a per-session lock for the whole read-modify-
// write so concurrent answers to the same interview serialize.
package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/types"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Store is a filesystem-backed session store.
type Store struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the store, making {dataDir}/sessions if needed.
func New(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: log.Named("sessionstore"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lock returns the mutex for one session id, creating it on first use.
// Lock entries are never reaped; sessions number in the thousands, not
// the millions, and a bare mutex is small.
func (s *Store) lock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// Create allocates a new session in pending state and persists it.
func (s *Store) Create(userID, subject, description string) (*types.Session, error) {
	now := time.Now().UTC()
	session := &types.Session{
		SessionID:      uuid.NewString(),
		UserID:         userID,
		Status:         types.StatusPending,
		Subject:        subject,
		Description:    description,
		Conversations:  []types.ConversationTurn{},
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}

	l := s.lock(session.SessionID)
	l.Lock()
	defer l.Unlock()

	if err := s.write(session); err != nil {
		return nil, err
	}
	s.logger.Info("session created",
		zap.String("session_id", session.SessionID),
		zap.String("user_id", userID),
	)
	return session, nil
}

// Get loads one session.
func (s *Store) Get(sessionID string) (*types.Session, error) {
	l := s.lock(sessionID)
	l.Lock()
	defer l.Unlock()
	return s.read(sessionID)
}

// Update applies fn to the session under its lock and persists the
// result. fn returning an error abandons the update. The session is
// validated before anything touches disk; an invalid mutation is
// rejected and the stored state is untouched.
func (s *Store) Update(sessionID string, fn func(*types.Session) error) (*types.Session, error) {
	l := s.lock(sessionID)
	l.Lock()
	defer l.Unlock()

	session, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session.UpdatedAt = now
	session.LastActivityAt = now

	if err := s.write(session); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns every stored session, unordered. Unreadable files are
// skipped with a warning rather than failing the whole listing.
func (s *Store) List() ([]*types.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []*types.Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		session, err := s.Get(id)
		if err != nil {
			s.logger.Warn("skipping unreadable session file",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *Store) read(sessionID string) (*types.Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", sessionID, err)
	}
	return &session, nil
}

// write validates and persists atomically: temp file in the same
// directory, then rename.
func (s *Store) write(session *types.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid session: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.SessionID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session %s: %w", session.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(session.SessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename session file: %w", err)
	}
	return nil
}
