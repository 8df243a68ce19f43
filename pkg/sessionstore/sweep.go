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

package sessionstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/types"
)

// ExpireFunc handles one timed-out session. Callers with provider
// access can install a handler that classifies with what is known; the
// default handler completes or fails the session from its stored state.
type ExpireFunc func(ctx context.Context, session *types.Session)

// Sweeper periodically expires sessions that have sat idle in an open
// state longer than the timeout. Only pending and clarifying sessions
// are swept; terminal and review states keep indefinitely.
type Sweeper struct {
	store    *Store
	timeout  time.Duration
	interval time.Duration
	onExpire ExpireFunc
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. onExpire may be nil.
func NewSweeper(store *Store, timeout, interval time.Duration, onExpire ExpireFunc) *Sweeper {
	s := &Sweeper{
		store:    store,
		timeout:  timeout,
		interval: interval,
		onExpire: onExpire,
		logger:   log.Named("sweeper"),
	}
	if s.onExpire == nil {
		s.onExpire = s.failExpired
	}
	return s
}

// Run sweeps on the interval until the context is cancelled. An
// immediate sweep runs at startup to catch sessions that went stale
// while the process was down.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	sessions, err := s.store.List()
	if err != nil {
		s.logger.Error("sweep failed to list sessions", zap.Error(err))
		return
	}

	cutoff := time.Now().UTC().Add(-s.timeout)
	for _, session := range sessions {
		if ctx.Err() != nil {
			return
		}
		if session.Status != types.StatusPending && session.Status != types.StatusClarifying {
			continue
		}
		if session.LastActivityAt.After(cutoff) {
			continue
		}
		s.logger.Info("session timed out",
			zap.String("session_id", session.SessionID),
			zap.Time("last_activity", session.LastActivityAt),
		)
		s.onExpire(ctx, session)
	}
}

// failExpired is the default expiry handler: a session holding a
// classification proposal completes with it, anything else fails.
func (s *Sweeper) failExpired(_ context.Context, session *types.Session) {
	_, err := s.store.Update(session.SessionID, func(sess *types.Session) error {
		if sess.Status != types.StatusPending && sess.Status != types.StatusClarifying {
			return nil
		}
		if sess.Classification != nil {
			sess.Status = types.StatusCompleted
			note := "Completed by the system after the session idle timeout."
			if sess.Classification.Rationale == "" {
				sess.Classification.Rationale = note
			} else {
				sess.Classification.Rationale += " " + note
			}
			return nil
		}
		sess.Status = types.StatusFailed
		return nil
	})
	if err != nil {
		s.logger.Error("failed to expire session",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}
}
