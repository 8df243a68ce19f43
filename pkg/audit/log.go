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

package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
)

const dateLayout = "2006-01-02"

// Log writes and reads the daily JSONL audit files under
// {dataDir}/audit-logs. Appends are serialized by a mutex; files are
// opened O_APPEND and records are never updated.
type Log struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

// New creates the audit log rooted at dataDir.
func New(dataDir string) (*Log, error) {
	dir := filepath.Join(dataDir, "audit-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &Log{dir: dir, logger: log.Named("audit")}, nil
}

// Append writes one entry to the file for the current UTC date. The
// entry id and timestamp are filled in when missing.
func (l *Log) Append(entry *Entry) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.pathFor(entry.Timestamp.UTC())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	l.logger.Debug("audit entry appended",
		zap.String("session_id", entry.SessionID),
		zap.String("event_type", string(entry.EventType)),
	)
	return nil
}

// QueryByDate returns all entries for one UTC date, in write order.
// A missing file is an empty day, not an error.
func (l *Log) QueryByDate(date time.Time) ([]*Entry, error) {
	return l.readFile(l.pathFor(date.UTC()))
}

// QueryBySession returns the session's entries in write order.
// lastNDays <= 0 scans every date file.
func (l *Log) QueryBySession(sessionID string, lastNDays int) ([]*Entry, error) {
	dates, err := l.listDates()
	if err != nil {
		return nil, err
	}
	if lastNDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -lastNDays)
		filtered := dates[:0]
		for _, d := range dates {
			if !d.Before(cutoff.Truncate(24 * time.Hour)) {
				filtered = append(filtered, d)
			}
		}
		dates = filtered
	}

	var out []*Entry
	for _, d := range dates {
		entries, err := l.readFile(l.pathFor(d))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.SessionID == sessionID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// LastClarifications returns the session's most recent clarification
// entries, newest last, capped at window. Loop detection runs on this.
func (l *Log) LastClarifications(sessionID string, window int) ([]*Entry, error) {
	entries, err := l.QueryBySession(sessionID, 0)
	if err != nil {
		return nil, err
	}
	var clar []*Entry
	for _, e := range entries {
		if e.EventType == EventClarification {
			clar = append(clar, e)
		}
	}
	if window > 0 && len(clar) > window {
		clar = clar[len(clar)-window:]
	}
	return clar, nil
}

func (l *Log) pathFor(date time.Time) string {
	return filepath.Join(l.dir, date.Format(dateLayout)+".jsonl")
}

func (l *Log) listDates() ([]time.Time, error) {
	files, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	var dates []time.Time
	for _, f := range files {
		name := f.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		d, err := time.Parse(dateLayout, strings.TrimSuffix(name, ".jsonl"))
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (l *Log) readFile(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	defer f.Close()

	var out []*Entry
	scanner := bufio.NewScanner(f)
	// Classification entries carry full prompts; lines can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// A torn write on crash can leave a truncated final line.
			// Skip it rather than failing every later read.
			l.logger.Warn("skipping malformed audit line",
				zap.String("file", filepath.Base(path)), zap.Error(err))
			continue
		}
		out = append(out, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit log %s: %w", path, err)
	}
	return out, nil
}
