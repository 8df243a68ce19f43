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

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Digitise", CategoryDigitise, true},
		{"digitise", CategoryDigitise, true},
		{" RPA ", CategoryRPA, true},
		{"ai agent", CategoryAIAgent, true},
		{"AGENTIC AI", CategoryAgenticAI, true},
		{"Eliminate", CategoryEliminate, true},
		{"Digitize", "", false}, // American spelling is not a category
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseCategory(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseCategory(%q)", tt.in)
	}
}

func TestSessionQACount(t *testing.T) {
	s := &Session{
		Conversations: []ConversationTurn{
			{TurnIndex: 0, ClarificationQA: []ClarificationQA{{Question: "q1"}, {Question: "q2"}}},
			{TurnIndex: 1, ClarificationQA: []ClarificationQA{{Question: "q3"}}},
		},
	}
	assert.Equal(t, 3, s.QACount())
	assert.Equal(t, 2, s.NextTurnIndex())

	empty := &Session{}
	assert.Equal(t, 0, empty.QACount())
	assert.Equal(t, 0, empty.NextTurnIndex())
}

func TestSessionValidate(t *testing.T) {
	now := time.Now()

	completed := &Session{SessionID: "s1", Status: StatusCompleted}
	require.Error(t, completed.Validate(), "completed without classification must fail")

	completed.Classification = &Classification{Category: CategoryDigitise, Confidence: 0.9, Timestamp: now}
	require.NoError(t, completed.Validate())

	pending := &Session{
		SessionID:      "s2",
		Status:         StatusPendingAdminReview,
		Classification: &Classification{Category: CategoryRPA, Confidence: 0.8, Timestamp: now},
		AdminReview:    &AdminReview{Reviewed: true},
	}
	require.Error(t, pending.Validate(), "pending_admin_review with a completed review must fail")

	pending.AdminReview.Reviewed = false
	require.NoError(t, pending.Validate())

	gap := &Session{
		SessionID:     "s3",
		Status:        StatusClarifying,
		Conversations: []ConversationTurn{{TurnIndex: 1}},
	}
	require.Error(t, gap.Validate(), "non-monotonic turn index must fail")
}
