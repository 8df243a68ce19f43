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

package clarify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

type fakeProvider struct {
	response string
	lastSent []types.Message
}

func (p *fakeProvider) Chat(_ context.Context, messages []types.Message) (*types.ChatResponse, error) {
	p.lastSent = messages
	return &types.ChatResponse{Content: p.response, Model: "fake-model"}, nil
}

func (p *fakeProvider) ListModels(_ context.Context) ([]types.ModelInfo, error) { return nil, nil }
func (p *fakeProvider) Name() string                                            { return "fake" }
func (p *fakeProvider) Model() string                                           { return "fake-model" }

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := contentstore.New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.SeedDefaults())
	policy := llm.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2, AttemptTimeout: time.Second}
	return NewService(store, policy, 8)
}

func testSession(qaPairs ...[2]string) *types.Session {
	session := &types.Session{
		SessionID:   "s-1",
		Status:      types.StatusClarifying,
		Description: "Invoice matching in Excel",
	}
	if len(qaPairs) > 0 {
		turn := types.ConversationTurn{TurnIndex: 0}
		now := time.Now().UTC()
		for _, p := range qaPairs {
			turn.ClarificationQA = append(turn.ClarificationQA, types.ClarificationQA{
				Question: p[0], Answer: p[1], AskedAt: now,
			})
		}
		session.Conversations = []types.ConversationTurn{turn}
	}
	return session
}

func TestNextQuestionsParsesRound(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{response: `{
		"shouldClarify": true,
		"questions": ["How often does this run?", "What volume per day?"]
	}`}

	round, err := svc.NextQuestions(context.Background(), provider, testSession())
	require.NoError(t, err)
	assert.False(t, round.Empty)
	assert.True(t, round.ShouldClarify)
	assert.Equal(t, []string{"How often does this run?", "What volume per day?"}, round.Questions)
	assert.NotEmpty(t, round.Prompt, "the serialized conversation rides along for the audit trail")
}

func TestNextQuestionsCapsPerRound(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{response: `{
		"shouldClarify": true,
		"questions": ["q1?", "q2?", "q3?", "q4?", "q5?"]
	}`}

	round, err := svc.NextQuestions(context.Background(), provider, testSession())
	require.NoError(t, err)
	assert.Len(t, round.Questions, 3)
}

func TestNextQuestionsFinalRoundAsksOne(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{response: `{
		"shouldClarify": true,
		"questions": ["q-new-1?", "q-new-2?"]
	}`}

	// 7 answered questions, soft limit 8: next round is final.
	var pairs [][2]string
	for i := 0; i < 7; i++ {
		pairs = append(pairs, [2]string{string(rune('a'+i)) + " question?", "answer"})
	}
	session := testSession(pairs...)

	round, err := svc.NextQuestions(context.Background(), provider, session)
	require.NoError(t, err)
	assert.Len(t, round.Questions, 1)

	var userMsg string
	for _, m := range provider.lastSent {
		if m.Role == "user" {
			userMsg = m.Content
		}
	}
	assert.Contains(t, userMsg, "final round")
}

func TestNextQuestionsFiltersJunkAndDuplicates(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{response: `{
		"shouldClarify": true,
		"questions": ["Clarification 3", "  ", "How often does this run?", "how often does this run", "What systems?"]
	}`}

	session := testSession([2]string{"What systems?", "Excel"})

	round, err := svc.NextQuestions(context.Background(), provider, session)
	require.NoError(t, err)
	assert.Equal(t, []string{"How often does this run?"}, round.Questions,
		"placeholders, blanks, in-round duplicates, and already-asked questions all drop")
}

func TestNextQuestionsEmptyArrayIsEmptyRound(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{response: `{"shouldClarify": false, "questions": []}`}

	round, err := svc.NextQuestions(context.Background(), provider, testSession())
	require.NoError(t, err)
	assert.True(t, round.Empty)
	assert.False(t, round.ShouldClarify)
}

func TestNextQuestionsMalformedResponseIsEmptyRound(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{response: "Clarification 4"}

	round, err := svc.NextQuestions(context.Background(), provider, testSession())
	require.NoError(t, err)
	assert.True(t, round.Empty)
	assert.True(t, round.ShouldClarify, "malformed output still counts as wanting to clarify")
	assert.Equal(t, "Clarification 4", round.Raw)
}

func TestStopCheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		qaCount int
		round   *Round
		reason  string
		stop    bool
	}{
		{"hard limit trumps everything", 15, &Round{Questions: []string{"q?"}, ShouldClarify: true}, StopHardLimit, true},
		{"model exhausted", 4, &Round{Empty: true, ShouldClarify: true}, StopModelExhausted, true},
		{"model confident", 4, &Round{Empty: true, ShouldClarify: false}, StopModelConfident, true},
		{"keep going", 4, &Round{Questions: []string{"q?"}, ShouldClarify: true}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, stop := StopCheck(tt.qaCount, 15, tt.round)
			assert.Equal(t, tt.stop, stop)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
