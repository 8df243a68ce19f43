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
	"time"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/pkg/audit"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Reclassify reruns classification for a session that already has an
// outcome, typically after a prompt or matrix update. The original
// classification is preserved in the reclassification audit entry
// before the session is overwritten.
func (o *Orchestrator) Reclassify(ctx context.Context, provider types.Provider, sessionID, userID string) (*Outcome, error) {
	session, err := o.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case types.StatusCompleted, types.StatusManualReview, types.StatusPendingAdminReview:
	default:
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, sessionID, session.Status)
	}

	started := time.Now()
	result, err := o.classifier.Propose(ctx, provider, session)
	if err != nil {
		// Reclassification failure leaves the existing outcome intact.
		return nil, fmt.Errorf("%w: %v", ErrLLMFailure, err)
	}
	if result.Malformed {
		return nil, fmt.Errorf("%w: malformed model response", ErrLLMFailure)
	}

	classification := o.buildClassification(ctx, provider, session, result)
	status := types.StatusCompleted
	if classification.DecisionMatrixEvaluation != nil && classification.DecisionMatrixEvaluation.FlaggedForReview {
		status = types.StatusPendingAdminReview
	}

	entry := &audit.Entry{
		SessionID: sessionID,
		EventType: audit.EventReclassification,
		UserID:    userID,
		Data: map[string]any{
			"original": session.Classification,
			"new":      classification,
		},
		ModelPrompt:   result.Prompt,
		ModelResponse: result.Raw,
		Metadata: audit.Metadata{
			ModelVersion: result.Model,
			LLMProvider:  result.Provider,
			LatencyMs:    time.Since(started).Milliseconds(),
		},
	}
	if err := o.auditLog.Append(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	updated, err := o.sessions.Update(sessionID, func(s *types.Session) error {
		s.Classification = classification
		s.Status = status
		s.AdminReview = nil // a fresh outcome needs a fresh review
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	o.logger.Info("session reclassified",
		zap.String("session_id", sessionID),
		zap.String("category", string(classification.Category)),
		zap.String("status", string(status)),
	)
	o.notifyClassified(sessionID)

	return &Outcome{Session: updated, Action: "reclassify"}, nil
}

// RecordAdminReview commits a human review verdict. An approved review
// completes the session; a rejected one returns it to manual review.
// overrideCategory, when given, replaces the classified category.
func (o *Orchestrator) RecordAdminReview(sessionID, reviewer string, approved bool, notes, overrideCategory string) (*types.Session, error) {
	session, err := o.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case types.StatusPendingAdminReview, types.StatusManualReview:
	default:
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, sessionID, session.Status)
	}

	var override types.Category
	if overrideCategory != "" {
		cat, ok := types.ParseCategory(overrideCategory)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, overrideCategory)
		}
		override = cat
	}
	if approved && session.Classification == nil && override == "" {
		return nil, fmt.Errorf("%w: session %s has no classification to approve; supply a category", ErrInvalidInput, sessionID)
	}

	review := &types.AdminReview{
		Reviewed:   true,
		Reviewer:   reviewer,
		Approved:   approved,
		Notes:      notes,
		ReviewedAt: time.Now().UTC(),
	}

	entry := &audit.Entry{
		SessionID: sessionID,
		EventType: audit.EventAdminReview,
		UserID:    reviewer,
		Data: map[string]any{
			"approved": approved,
			"notes":    notes,
		},
	}
	if override != "" {
		entry.Data["overrideCategory"] = string(override)
	}
	if err := o.auditLog.Append(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	updated, err := o.sessions.Update(sessionID, func(s *types.Session) error {
		s.AdminReview = review
		if override != "" {
			if s.Classification == nil {
				s.Classification = &types.Classification{Timestamp: time.Now().UTC()}
			}
			s.Classification.Category = override
			s.Classification.Rationale = fmt.Sprintf("Set by admin review: %s", notes)
		}
		if approved {
			s.Status = types.StatusCompleted
		} else {
			s.Status = types.StatusManualReview
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	o.logger.Info("admin review recorded",
		zap.String("session_id", sessionID),
		zap.String("reviewer", reviewer),
		zap.Bool("approved", approved),
	)
	return updated, nil
}
