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
	"github.com/transforma-labs/transforma/pkg/clarify"
	"github.com/transforma-labs/transforma/pkg/classify"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Clarify records the caller's answers to the open questions and runs
// the next pipeline step: reclassify with the enriched narrative, then
// either finish or ask another round.
func (o *Orchestrator) Clarify(ctx context.Context, provider types.Provider, sessionID string, answers []string, forceClassify bool) (*Outcome, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no answers given", ErrInvalidInput)
	}

	session, err := o.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.StatusClarifying {
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, sessionID, session.Status)
	}

	session, err = o.sessions.Update(sessionID, func(s *types.Session) error {
		return recordAnswers(s, answers)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return o.step(ctx, provider, session, forceClassify)
}

// recordAnswers fills the unanswered questions of the latest turn in
// order. Surplus answers are dropped; unanswered questions stay open.
func recordAnswers(s *types.Session, answers []string) error {
	if len(s.Conversations) == 0 {
		return fmt.Errorf("session %s has no open questions", s.SessionID)
	}
	turn := &s.Conversations[len(s.Conversations)-1]
	now := time.Now().UTC()

	i := 0
	for j := range turn.ClarificationQA {
		if i >= len(answers) {
			break
		}
		if turn.ClarificationQA[j].AnsweredAt != nil {
			continue
		}
		turn.ClarificationQA[j].Answer = answers[i]
		turn.ClarificationQA[j].AnsweredAt = &now
		i++
	}
	if i == 0 {
		return fmt.Errorf("session %s has no open questions", s.SessionID)
	}
	return nil
}

// askRound generates the next question round. Every round, empty or
// not, lands in the audit log before the session is touched; loop
// detection then counts empty rounds in the recent audit window and
// forces classification once the model has produced too many.
func (o *Orchestrator) askRound(ctx context.Context, provider types.Provider, session *types.Session, result *classify.Result, latencyMs int64) (*Outcome, error) {
	// Bounded retry: each empty round appends an audit event, and the
	// empty-round threshold caps how many can accumulate before the
	// loop is broken by force-classification.
	for {
		round, err := o.clarifier.NextQuestions(ctx, provider, session)
		if err != nil {
			return nil, o.failSession(session.SessionID, err)
		}

		entry := &audit.Entry{
			SessionID:     session.SessionID,
			EventType:     audit.EventClarification,
			UserID:        session.UserID,
			ModelPrompt:   round.Prompt,
			ModelResponse: round.Raw,
			Metadata: audit.Metadata{
				ModelVersion:   round.Model,
				LLMProvider:    provider.Name(),
				QuestionsAsked: len(round.Questions),
			},
		}
		if len(round.Questions) > 0 {
			entry.Data = map[string]any{"questions": round.Questions}
		}
		if err := o.auditLog.Append(entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}

		if reason, stop := clarify.StopCheck(session.QACount(), o.cfg.HardLimitQuestions, round); stop {
			if reason == clarify.StopModelExhausted {
				// Empty round from a model that still claims it wants to
				// clarify: consult the loop detector before giving up on
				// the interview.
				if o.loopDetected(session.SessionID) {
					return o.finalize(ctx, provider, session, result, latencyMs, ActionForceClassify, ReasonLoopDetected)
				}
				continue
			}
			return o.finalize(ctx, provider, session, result, latencyMs, ActionForceClassify, reason)
		}

		updated, err := o.sessions.Update(session.SessionID, func(s *types.Session) error {
			now := time.Now().UTC()
			turn := types.ConversationTurn{TurnIndex: s.NextTurnIndex()}
			for _, q := range round.Questions {
				turn.ClarificationQA = append(turn.ClarificationQA, types.ClarificationQA{
					Question: q,
					AskedAt:  now,
				})
			}
			s.Conversations = append(s.Conversations, turn)
			s.Status = types.StatusClarifying
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}

		return &Outcome{
			Session:   updated,
			Action:    ActionClarify,
			Questions: round.Questions,
		}, nil
	}
}

// emptyRoundCount counts question-empty clarification rounds within
// the recent audit window.
func (o *Orchestrator) emptyRoundCount(sessionID string) (int, error) {
	entries, err := o.auditLog.LastClarifications(sessionID, o.cfg.SilentDetectionWindow)
	if err != nil {
		return 0, err
	}
	empty := 0
	for _, e := range entries {
		if len(e.Questions()) == 0 {
			empty++
		}
	}
	return empty, nil
}

// loopDetected reports whether the recent clarification audit window
// contains enough empty rounds to conclude the model is stuck.
func (o *Orchestrator) loopDetected(sessionID string) bool {
	empty, err := o.emptyRoundCount(sessionID)
	if err != nil {
		o.logger.Warn("loop detection query failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return true // fail toward ending the interview, not looping
	}
	if empty >= o.cfg.EmptyRoundThreshold {
		o.logger.Info("clarification loop detected",
			zap.String("session_id", sessionID),
			zap.Int("empty_rounds", empty),
			zap.Int("window", o.cfg.SilentDetectionWindow),
		)
		return true
	}
	return false
}
