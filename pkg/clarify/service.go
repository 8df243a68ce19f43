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

// Package clarify runs the clarification interview: it asks the model
// for the next round of questions and decides when the interview is
// over. Sentiment-based stopping is the model's job, steered by the
// clarification prompt; this package never pattern-matches user answers.
package clarify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/embedded"
	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Stop reasons, in the order they are checked.
const (
	StopHardLimit      = "hard_limit"
	StopModelExhausted = "llm_exhausted"
	StopModelConfident = "llm_confident"
)

// Per-round question bounds.
const (
	maxQuestionsPerRound = 3
	finalRoundQuestions  = 1
)

// junkQuestionRe matches placeholder output some models emit instead
// of real questions ("Clarification 3", "Question 1?").
var junkQuestionRe = regexp.MustCompile(`(?i)^(clarification|question)\s*\d*\s*[?.!:]*$`)

// Service asks clarification questions against a prompt store.
type Service struct {
	prompts *contentstore.Store
	policy  llm.RetryPolicy

	// softLimit is the Q&A count after which each round asks a single
	// final question instead of two or three.
	softLimit int

	logger *zap.Logger
}

// NewService creates the clarification service.
func NewService(prompts *contentstore.Store, policy llm.RetryPolicy, softLimit int) *Service {
	return &Service{
		prompts:   prompts,
		policy:    policy,
		softLimit: softLimit,
		logger:    log.Named("clarify"),
	}
}

// Round is the outcome of one clarification call. Empty means the
// round produced no usable questions, whether the model returned [],
// emitted placeholders, or responded with something unparseable.
type Round struct {
	Questions     []string
	ShouldClarify bool
	Empty         bool
	Raw           string
	Model         string
	Usage         types.Usage

	// Prompt is the serialized message slice sent to the model, kept
	// for the audit trail.
	Prompt string
}

type roundWire struct {
	ShouldClarify bool     `json:"shouldClarify"`
	Questions     []string `json:"questions"`
}

// NextQuestions asks the model for the next round. Transport and
// storage failures return an error; everything else is a Round.
func (s *Service) NextQuestions(ctx context.Context, provider types.Provider, session *types.Session) (*Round, error) {
	prompt, _, err := s.prompts.GetLatestPrompt(embedded.PromptClarification)
	if err != nil {
		return nil, fmt.Errorf("failed to load clarification prompt: %w", err)
	}

	finalRound := session.QACount() >= s.softLimit-1

	messages := []types.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: s.interviewContext(session, finalRound)},
	}
	resp, err := llm.ChatWithRetry(ctx, provider, messages, s.policy)
	if err != nil {
		return nil, err
	}

	round := s.parseRound(session, resp)
	round.Prompt = llm.MarshalMessages(messages)
	limit := maxQuestionsPerRound
	if finalRound {
		limit = finalRoundQuestions
	}
	if len(round.Questions) > limit {
		round.Questions = round.Questions[:limit]
	}
	return round, nil
}

// parseRound parses the model response into a Round. A malformed
// response counts as an empty round that still wants clarification;
// the loop detector deals with a model stuck producing them.
func (s *Service) parseRound(session *types.Session, resp *types.ChatResponse) *Round {
	round := &Round{Raw: resp.Content, Model: resp.Model, Usage: resp.Usage}

	obj, ok := llm.ExtractJSONObject(resp.Content)
	if !ok {
		s.logger.Warn("malformed clarification response",
			zap.String("session_id", session.SessionID),
		)
		round.Empty = true
		round.ShouldClarify = true
		return round
	}
	var wire roundWire
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		round.Empty = true
		round.ShouldClarify = true
		return round
	}

	round.ShouldClarify = wire.ShouldClarify
	round.Questions = s.filterQuestions(session, wire.Questions)
	round.Empty = len(round.Questions) == 0
	return round
}

// filterQuestions drops blanks, placeholder junk, and questions the
// interview has already asked.
func (s *Service) filterQuestions(session *types.Session, questions []string) []string {
	asked := make(map[string]struct{})
	for _, turn := range session.Conversations {
		for _, pair := range turn.ClarificationQA {
			asked[normalizeQuestion(pair.Question)] = struct{}{}
		}
	}

	var kept []string
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" || junkQuestionRe.MatchString(q) {
			continue
		}
		key := normalizeQuestion(q)
		if _, dup := asked[key]; dup {
			continue
		}
		asked[key] = struct{}{}
		kept = append(kept, q)
	}
	return kept
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(q), "?.! "))
}

// interviewContext renders the session for the clarification prompt:
// description, the full Q&A so far, and the final-round marker when
// the soft limit is near. Interviews are bounded by the hard question
// limit, so the transcript stays verbatim here.
func (s *Service) interviewContext(session *types.Session, finalRound bool) string {
	var b strings.Builder
	b.WriteString("Process description:\n")
	b.WriteString(strings.TrimSpace(session.Description))
	b.WriteString("\n")

	if session.QACount() > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range session.Conversations {
			for _, pair := range turn.ClarificationQA {
				fmt.Fprintf(&b, "Q: %s\n", strings.TrimSpace(pair.Question))
				answer := strings.TrimSpace(pair.Answer)
				if answer == "" {
					answer = "(no answer)"
				}
				fmt.Fprintf(&b, "A: %s\n", answer)
			}
		}
	}

	if finalRound {
		b.WriteString("\nThis is the final round. Ask exactly 1 question, or return [] if you have enough.\n")
	}
	return b.String()
}

// StopCheck decides whether the interview ends after a round, checking
// in fixed order: the hard limit trumps everything, an empty round from
// a model that still wants to clarify means the model is out of
// questions, and shouldClarify=false means it is ready to classify.
func StopCheck(qaCount, hardLimit int, round *Round) (string, bool) {
	if qaCount >= hardLimit {
		return StopHardLimit, true
	}
	if round.Empty && round.ShouldClarify {
		return StopModelExhausted, true
	}
	if !round.ShouldClarify {
		return StopModelConfident, true
	}
	return "", false
}
