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

// Package audit implements the append-only audit log. One JSON document
// per line, one file per UTC day; past entries are never rewritten.
// The audit entry for an event is written before the session document,
// so a crashed session write can always be replayed from here.
package audit

import (
	"time"
)

// EventType classifies an audit entry.
type EventType string

const (
	EventClassification   EventType = "classification"
	EventClarification    EventType = "clarification"
	EventPromptUpdate     EventType = "prompt_update"
	EventMatrixUpdate     EventType = "matrix_update"
	EventAdminReview      EventType = "admin_review"
	EventReclassification EventType = "reclassification"
	EventModelListSuccess EventType = "model_list_success"
	EventModelListError   EventType = "model_list_error"
)

// PublicSession is the sessionId recorded for unauthenticated events
// such as model listing.
const PublicSession = "public"

// Metadata carries the per-event operational detail.
type Metadata struct {
	ModelVersion       string `json:"modelVersion,omitempty"`
	LLMProvider        string `json:"llmProvider,omitempty"`
	LatencyMs          int64  `json:"latencyMs,omitempty"`
	Action             string `json:"action,omitempty"`
	Reason             string `json:"reason,omitempty"`
	LoopDetected       bool   `json:"loopDetected,omitempty"`
	EmptyQuestionCount int    `json:"emptyQuestionCount,omitempty"`
	InterviewSkipped   bool   `json:"interviewSkipped,omitempty"`
	QuestionsAsked     int    `json:"questionsAsked,omitempty"`
}

// Entry is one append-only audit record.
type Entry struct {
	EntryID   string    `json:"entryId"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"eventType"`
	UserID    string    `json:"userId,omitempty"`

	// Data is event-specific. For classification events it carries the
	// full Classification and any MatrixEvaluation; for clarification
	// events it carries the generated questions.
	Data map[string]any `json:"data,omitempty"`

	// ModelPrompt is the exact serialized messages sent to the LLM and
	// ModelResponse the raw unparsed text that came back.
	ModelPrompt   string `json:"modelPrompt,omitempty"`
	ModelResponse string `json:"modelResponse,omitempty"`

	PIIScrubbed bool     `json:"piiScrubbed"`
	Metadata    Metadata `json:"metadata"`
}

// Questions extracts the generated questions from a clarification
// entry's Data. Returns nil when the entry carries none, which is how
// loop detection recognises an empty round.
func (e *Entry) Questions() []string {
	raw, ok := e.Data["questions"]
	if !ok {
		return nil
	}
	switch qs := raw.(type) {
	case []string:
		return qs
	case []any:
		out := make([]string, 0, len(qs))
		for _, q := range qs {
			if s, ok := q.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
