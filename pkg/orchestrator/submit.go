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

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/pkg/audit"
	"github.com/transforma-labs/transforma/pkg/classify"
	"github.com/transforma-labs/transforma/pkg/matrix"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Submit starts a session for a process description and runs the first
// pipeline step. forceClassify skips the interview and commits whatever
// the model proposes, regardless of confidence.
func (o *Orchestrator) Submit(ctx context.Context, provider types.Provider, userID, subject, description string, forceClassify bool) (*Outcome, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrNoDescription
	}

	session, err := o.sessions.Create(userID, strings.TrimSpace(subject), strings.TrimSpace(description))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return o.step(ctx, provider, session, forceClassify)
}

// step runs one pipeline iteration: propose a classification, then
// route on the proposal.
func (o *Orchestrator) step(ctx context.Context, provider types.Provider, session *types.Session, force bool) (*Outcome, error) {
	started := time.Now()
	result, err := o.classifier.Propose(ctx, provider, session)
	if err != nil {
		return nil, o.failSession(session.SessionID, err)
	}
	latency := time.Since(started).Milliseconds()

	return o.route(ctx, provider, session, result, latency, force)
}

// route applies the confidence gates to a proposal. Order matters: a
// malformed response goes straight to a human, an explicit force
// bypasses every gate, then the auto-classify band, the manual-review
// band, the hard question limit, and finally the interview.
func (o *Orchestrator) route(ctx context.Context, provider types.Provider, session *types.Session, result *classify.Result, latencyMs int64, force bool) (*Outcome, error) {
	if result.Malformed {
		return o.commitManualReview(session, nil, result, latencyMs, ReasonMalformed)
	}
	p := result.Proposal

	switch {
	case force:
		return o.finalize(ctx, provider, session, result, latencyMs, ActionForceClassify, "requested")

	case p.Confidence >= o.cfg.AutoClassifyConfidence &&
		classify.WordCount(session.Description) >= o.cfg.MinDescriptionWords &&
		classify.Completeness(session) >= o.cfg.CompletenessThreshold:
		return o.finalize(ctx, provider, session, result, latencyMs, ActionAutoClassify, "")

	case p.Confidence < o.cfg.ManualReviewConfidence:
		classification := o.buildClassification(ctx, provider, session, result)
		return o.commitManualReview(session, classification, result, latencyMs, "low_confidence")

	case session.QACount() >= o.cfg.HardLimitQuestions:
		return o.finalize(ctx, provider, session, result, latencyMs, ActionForceClassify, "hard_limit")

	default:
		return o.askRound(ctx, provider, session, result, latencyMs)
	}
}

// buildClassification assembles the Classification for a proposal,
// applying the latest decision matrix when one is stored.
func (o *Orchestrator) buildClassification(ctx context.Context, provider types.Provider, session *types.Session, result *classify.Result) *types.Classification {
	p := result.Proposal
	classification := &types.Classification{
		Category:            p.Category,
		Confidence:          p.Confidence,
		Rationale:           p.Rationale,
		CategoryProgression: p.CategoryProgression,
		FutureOpportunities: p.FutureOpportunities,
		Timestamp:           time.Now().UTC(),
		ModelUsed:           result.Model,
		LLMProvider:         result.Provider,
	}

	m := o.loadMatrix()
	if m == nil {
		return classification
	}

	attrs := o.classifier.ExtractAttributes(ctx, provider, session, m)
	outcome := matrix.Evaluate(matrix.Proposal{Category: p.Category, Confidence: p.Confidence}, attrs, m)
	classification.Category = outcome.Category
	classification.Confidence = outcome.Confidence
	classification.DecisionMatrixEvaluation = outcome.Evaluation
	return classification
}

// finalize commits a classification: audit entry first, then session.
// A matrix flag_review diverts the session to admin review instead of
// completing it.
func (o *Orchestrator) finalize(ctx context.Context, provider types.Provider, session *types.Session, result *classify.Result, latencyMs int64, action, reason string) (*Outcome, error) {
	classification := o.buildClassification(ctx, provider, session, result)

	status := types.StatusCompleted
	if classification.DecisionMatrixEvaluation != nil && classification.DecisionMatrixEvaluation.FlaggedForReview {
		status = types.StatusPendingAdminReview
	}

	meta := audit.Metadata{
		ModelVersion:     result.Model,
		LLMProvider:      result.Provider,
		LatencyMs:        latencyMs,
		Action:           action,
		Reason:           reason,
		QuestionsAsked:   session.QACount(),
		LoopDetected:     reason == ReasonLoopDetected,
		InterviewSkipped: action == ActionForceClassify,
	}
	if reason == ReasonLoopDetected {
		meta.EmptyQuestionCount, _ = o.emptyRoundCount(session.SessionID)
	}

	entry := &audit.Entry{
		SessionID: session.SessionID,
		EventType: audit.EventClassification,
		UserID:    session.UserID,
		Data: map[string]any{
			"classification": classification,
			"status":         string(status),
		},
		ModelPrompt:   result.Prompt,
		ModelResponse: result.Raw,
		Metadata:      meta,
	}
	if err := o.auditLog.Append(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	updated, err := o.sessions.Update(session.SessionID, func(s *types.Session) error {
		s.Classification = classification
		s.Status = status
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	o.logger.Info("session classified",
		zap.String("session_id", session.SessionID),
		zap.String("category", string(classification.Category)),
		zap.Float64("confidence", classification.Confidence),
		zap.String("action", action),
		zap.String("status", string(status)),
	)
	o.notifyClassified(session.SessionID)

	return &Outcome{Session: updated, Action: action, Reason: reason}, nil
}

// commitManualReview parks the session for a human. classification may
// be nil (malformed model output) or carry the low-confidence proposal
// for the reviewer's benefit.
func (o *Orchestrator) commitManualReview(session *types.Session, classification *types.Classification, result *classify.Result, latencyMs int64, reason string) (*Outcome, error) {
	entry := &audit.Entry{
		SessionID:     session.SessionID,
		EventType:     audit.EventClassification,
		UserID:        session.UserID,
		ModelPrompt:   result.Prompt,
		ModelResponse: result.Raw,
		Metadata: audit.Metadata{
			ModelVersion:   result.Model,
			LLMProvider:    result.Provider,
			LatencyMs:      latencyMs,
			Action:         ActionManualReview,
			Reason:         reason,
			QuestionsAsked: session.QACount(),
		},
	}
	if classification != nil {
		entry.Data = map[string]any{"classification": classification}
	}
	if err := o.auditLog.Append(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	updated, err := o.sessions.Update(session.SessionID, func(s *types.Session) error {
		s.Classification = classification
		s.Status = types.StatusManualReview
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	o.logger.Info("session routed to manual review",
		zap.String("session_id", session.SessionID),
		zap.String("reason", reason),
	)
	return &Outcome{Session: updated, Action: ActionManualReview, Reason: reason}, nil
}

// failSession records an unrecoverable LLM error in the audit log and
// marks the session failed. The failure itself wins: store errors here
// are logged, not returned, so the caller sees the root cause.
func (o *Orchestrator) failSession(sessionID string, cause error) error {
	entry := &audit.Entry{
		SessionID: sessionID,
		EventType: audit.EventClassification,
		Data:      map[string]any{"error": cause.Error()},
		Metadata: audit.Metadata{
			Reason: "llm_failure",
		},
	}
	if err := o.auditLog.Append(entry); err != nil {
		o.logger.Error("failed to audit session failure",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	if _, err := o.sessions.Update(sessionID, func(s *types.Session) error {
		s.Status = types.StatusFailed
		return nil
	}); err != nil {
		o.logger.Error("failed to mark session failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return fmt.Errorf("%w: %v", ErrLLMFailure, cause)
}

func (o *Orchestrator) notifyClassified(sessionID string) {
	if o.onClassified != nil {
		o.onClassified(sessionID)
	}
}
