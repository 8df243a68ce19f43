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

// Package orchestrator drives the classification pipeline: it owns the
// routing between auto-classification, the clarification interview,
// and manual review, and it is the only writer of session state and
// classification audit events. The ordering rule throughout: the audit
// entry for an event is appended before the session document is
// persisted.
package orchestrator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/audit"
	"github.com/transforma-labs/transforma/pkg/classify"
	"github.com/transforma-labs/transforma/pkg/clarify"
	"github.com/transforma-labs/transforma/pkg/config"
	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/matrix"
	"github.com/transforma-labs/transforma/pkg/sessionstore"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Sentinel errors callers branch on.
var (
	ErrNoDescription   = errors.New("description is required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("session is not in a state that allows this operation")
	ErrLLMFailure      = errors.New("llm call failed")
	ErrStorageFailure  = errors.New("storage failure")
)

// Routing actions recorded in audit metadata.
const (
	ActionAutoClassify  = "auto_classify"
	ActionClarify       = "clarify"
	ActionManualReview  = "manual_review"
	ActionForceClassify = "force_classify"
)

// Stop reasons beyond those the clarify package produces.
const (
	ReasonLoopDetected = "loop_detected"
	ReasonMalformed    = "llm_malformed"
)

// Orchestrator wires the stores and services into the pipeline.
type Orchestrator struct {
	cfg        config.Config
	sessions   *sessionstore.Store
	content    *contentstore.Store
	auditLog   *audit.Log
	classifier *classify.Service
	clarifier  *clarify.Service
	logger     *zap.Logger

	// onClassified runs after a classification commits, for cache
	// invalidation in analytics consumers. Optional.
	onClassified func(sessionID string)
}

// New creates the orchestrator.
func New(
	cfg config.Config,
	sessions *sessionstore.Store,
	content *contentstore.Store,
	auditLog *audit.Log,
	classifier *classify.Service,
	clarifier *clarify.Service,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		sessions:   sessions,
		content:    content,
		auditLog:   auditLog,
		classifier: classifier,
		clarifier:  clarifier,
		logger:     log.Named("orchestrator"),
	}
}

// OnClassified registers a hook invoked after every committed
// classification or reclassification.
func (o *Orchestrator) OnClassified(fn func(sessionID string)) {
	o.onClassified = fn
}

// Outcome is what a pipeline step hands back to the caller: the
// persisted session, the action taken, and any open questions when the
// action is clarify.
type Outcome struct {
	Session   *types.Session
	Action    string
	Reason    string
	Questions []string
}

// GetSession loads one session.
func (o *Orchestrator) GetSession(sessionID string) (*types.Session, error) {
	session, err := o.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return session, nil
}

// ListSessions returns all sessions.
func (o *Orchestrator) ListSessions() ([]*types.Session, error) {
	sessions, err := o.sessions.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return sessions, nil
}

// loadMatrix returns the latest sanitized decision matrix, or nil when
// none is stored or the stored document lost all content to
// sanitization. Classification proceeds without matrix post-processing
// in that case.
func (o *Orchestrator) loadMatrix() *matrix.DecisionMatrix {
	data, version, err := o.content.GetLatestMatrix()
	if err != nil {
		if !errors.Is(err, contentstore.ErrNotFound) {
			o.logger.Warn("failed to load decision matrix", zap.Error(err))
		}
		return nil
	}
	m, warnings, err := matrix.Sanitize(data)
	if err != nil {
		o.logger.Error("stored decision matrix does not parse",
			zap.String("version", version), zap.Error(err))
		return nil
	}
	if len(warnings) > 0 {
		o.logger.Warn("stored decision matrix needed sanitization",
			zap.String("version", version), zap.Int("warnings", len(warnings)))
	}
	if !m.Usable() {
		return nil
	}
	m.Version = version
	return m
}
