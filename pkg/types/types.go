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

// Package types contains the shared domain types used across the
// transforma pipeline. It exists so that the orchestrator, the
// services, and the stores can exchange sessions, classifications,
// and audit records without import cycles.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Category is one of the six transformation outcomes.
type Category string

const (
	CategoryEliminate Category = "Eliminate"
	CategorySimplify  Category = "Simplify"
	CategoryDigitise  Category = "Digitise"
	CategoryRPA       Category = "RPA"
	CategoryAIAgent   Category = "AI Agent"
	CategoryAgenticAI Category = "Agentic AI"
)

// Categories lists all valid categories in canonical order.
var Categories = []Category{
	CategoryEliminate,
	CategorySimplify,
	CategoryDigitise,
	CategoryRPA,
	CategoryAIAgent,
	CategoryAgenticAI,
}

// ParseCategory matches a string against the six valid categories,
// case-insensitively and tolerating surrounding whitespace. LLM output
// frequently varies casing ("digitise", "RPA ", "ai agent").
func ParseCategory(s string) (Category, bool) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == needle {
			return c, true
		}
	}
	return "", false
}

// IsValidCategory reports whether s names one of the six categories.
func IsValidCategory(s string) bool {
	_, ok := ParseCategory(s)
	return ok
}

// SessionStatus is the lifecycle state of a classification session.
type SessionStatus string

const (
	StatusPending            SessionStatus = "pending"
	StatusClarifying         SessionStatus = "clarifying"
	StatusPendingAdminReview SessionStatus = "pending_admin_review"
	StatusManualReview       SessionStatus = "manual_review"
	StatusCompleted          SessionStatus = "completed"
	StatusFailed             SessionStatus = "failed"
)

// ClarificationQA is a single question/answer exchange. Either field
// may be empty: a round that produced no question, or a question the
// caller has not answered yet.
type ClarificationQA struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	AskedAt    time.Time  `json:"askedAt"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

// ConversationTurn groups the clarification exchanges of one round.
type ConversationTurn struct {
	TurnIndex       int               `json:"turnIndex"`
	ClarificationQA []ClarificationQA `json:"clarificationQA"`
}

// TriggeredRule records one matrix rule that evaluated true.
type TriggeredRule struct {
	RuleID   string     `json:"ruleId"`
	RuleName string     `json:"ruleName"`
	Priority int        `json:"priority"`
	Action   RuleAction `json:"action"`
}

// RuleAction is the action attached to a matrix rule. Type is one of
// "override", "adjust_confidence", "flag_review".
type RuleAction struct {
	Type                 string   `json:"type"`
	TargetCategory       Category `json:"targetCategory,omitempty"`
	ConfidenceAdjustment float64  `json:"confidenceAdjustment,omitempty"`
	Rationale            string   `json:"rationale,omitempty"`
}

// Rule action types.
const (
	ActionOverride         = "override"
	ActionAdjustConfidence = "adjust_confidence"
	ActionFlagReview       = "flag_review"
)

// MatrixEvaluation is the record of applying a decision matrix to one
// set of extracted attributes.
type MatrixEvaluation struct {
	MatrixVersion             string          `json:"matrixVersion"`
	TriggeredRules            []TriggeredRule `json:"triggeredRules"`
	Overridden                bool            `json:"overridden"`
	ConfidenceAdjustmentTotal float64         `json:"confidenceAdjustmentTotal"`
	FlaggedForReview          bool            `json:"flaggedForReview"`
}

// Classification is the committed outcome of the pipeline for a session.
type Classification struct {
	Category                 Category          `json:"category"`
	Confidence               float64           `json:"confidence"`
	Rationale                string            `json:"rationale"`
	CategoryProgression      string            `json:"categoryProgression,omitempty"`
	FutureOpportunities      string            `json:"futureOpportunities,omitempty"`
	Timestamp                time.Time         `json:"timestamp"`
	ModelUsed                string            `json:"modelUsed"`
	LLMProvider              string            `json:"llmProvider"`
	DecisionMatrixEvaluation *MatrixEvaluation `json:"decisionMatrixEvaluation,omitempty"`
}

// AdminReview records the outcome of a human review pass.
type AdminReview struct {
	Reviewed   bool      `json:"reviewed"`
	Reviewer   string    `json:"reviewer,omitempty"`
	Approved   bool      `json:"approved"`
	Notes      string    `json:"notes,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt,omitempty"`
}

// Session is the unit of work owned by the session store. One session
// per submitted description; all pipeline state hangs off it.
type Session struct {
	SessionID      string             `json:"sessionId"`
	UserID         string             `json:"userId"`
	Status         SessionStatus      `json:"status"`
	Subject        string             `json:"subject,omitempty"`
	Description    string             `json:"description"`
	Conversations  []ConversationTurn `json:"conversations"`
	Classification *Classification    `json:"classification,omitempty"`
	AdminReview    *AdminReview       `json:"adminReview,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	LastActivityAt time.Time          `json:"lastActivityAt"`
}

// QACount returns the total number of question/answer pairs recorded
// across all turns. The hard question limit is enforced against this.
func (s *Session) QACount() int {
	n := 0
	for _, turn := range s.Conversations {
		n += len(turn.ClarificationQA)
	}
	return n
}

// NextTurnIndex returns the turn index a new round should use.
func (s *Session) NextTurnIndex() int {
	if len(s.Conversations) == 0 {
		return 0
	}
	return s.Conversations[len(s.Conversations)-1].TurnIndex + 1
}

// Validate checks the session invariants that the store refuses to
// persist violations of.
func (s *Session) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session has no id")
	}
	if s.Status == StatusCompleted && s.Classification == nil {
		return fmt.Errorf("completed session %s has no classification", s.SessionID)
	}
	if s.Status == StatusPendingAdminReview {
		if s.Classification == nil {
			return fmt.Errorf("session %s pending admin review has no classification", s.SessionID)
		}
		if s.AdminReview != nil && s.AdminReview.Reviewed {
			return fmt.Errorf("session %s pending admin review is already reviewed", s.SessionID)
		}
	}
	for i, turn := range s.Conversations {
		if turn.TurnIndex != i {
			return fmt.Errorf("session %s turn %d has index %d", s.SessionID, i, turn.TurnIndex)
		}
	}
	return nil
}
