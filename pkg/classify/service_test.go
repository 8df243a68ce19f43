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

package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

// fakeProvider replays canned responses in order.
type fakeProvider struct {
	responses []string
	err       error
	calls     int
	lastSent  []types.Message
}

func (p *fakeProvider) Chat(_ context.Context, messages []types.Message) (*types.ChatResponse, error) {
	p.lastSent = messages
	if p.err != nil {
		return nil, p.err
	}
	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	return &types.ChatResponse{
		Content: p.responses[i],
		Model:   "fake-model",
		Usage:   types.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

func (p *fakeProvider) ListModels(_ context.Context) ([]types.ModelInfo, error) { return nil, nil }
func (p *fakeProvider) Name() string                                            { return "fake" }
func (p *fakeProvider) Model() string                                           { return "fake-model" }

func testPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2, AttemptTimeout: time.Second}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := contentstore.New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.SeedDefaults())
	return NewService(store, testPolicy(), 5)
}

func testSession(description string) *types.Session {
	return &types.Session{
		SessionID:   "s-1",
		UserID:      "u-1",
		Status:      types.StatusPending,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestProposeParsesWellFormedResponse(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{`{
		"category": "RPA",
		"confidence": 0.97,
		"rationale": "Digital, repetitive, rules-based.",
		"categoryProgression": "Could evolve toward an AI Agent.",
		"futureOpportunities": "Free the team for exception handling."
	}`}}

	result, err := svc.Propose(context.Background(), provider, testSession("Copying invoice lines into the ERP every morning"))
	require.NoError(t, err)
	assert.False(t, result.Malformed)
	require.NotNil(t, result.Proposal)
	assert.Equal(t, types.CategoryRPA, result.Proposal.Category)
	assert.Equal(t, 0.97, result.Proposal.Confidence)
	assert.Equal(t, "fake", result.Provider)
	assert.NotEmpty(t, result.PromptVersion)
	assert.NotEmpty(t, result.Prompt, "the serialized conversation rides along for the audit trail")
	assert.Contains(t, result.Prompt, "Copying invoice lines")
}

func TestProposeToleratesFencedResponse(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{
		"Here is the classification:\n```json\n{\"category\": \"digitise\", \"confidence\": 0.7, \"rationale\": \"paper-based\"}\n```",
	}}

	result, err := svc.Propose(context.Background(), provider, testSession("Paper forms are typed into a spreadsheet"))
	require.NoError(t, err)
	require.NotNil(t, result.Proposal)
	assert.Equal(t, types.CategoryDigitise, result.Proposal.Category, "category matching is case-insensitive")
}

func TestProposeMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json at all", "I think this is probably RPA."},
		{"invalid json", `{"category": "RPA", "confidence": }`},
		{"unknown category", `{"category": "Automate", "confidence": 0.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			provider := &fakeProvider{responses: []string{tt.raw}}

			result, err := svc.Propose(context.Background(), provider, testSession("desc"))
			require.NoError(t, err, "malformed output is a result kind, not an error")
			assert.True(t, result.Malformed)
			assert.Nil(t, result.Proposal)
			assert.Equal(t, tt.raw, result.Raw)
		})
	}
}

func TestProposeClampsConfidence(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{`{"category": "Simplify", "confidence": 1.4, "rationale": "r"}`}}

	result, err := svc.Propose(context.Background(), provider, testSession("desc"))
	require.NoError(t, err)
	require.NotNil(t, result.Proposal)
	assert.Equal(t, 1.0, result.Proposal.Confidence)
}

func TestProposeSurfacesLLMFailure(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{err: errors.New("connection refused")}

	_, err := svc.Propose(context.Background(), provider, testSession("desc"))
	require.Error(t, err)
}

func TestProposeExcludesSubjectFromNarrative(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{`{"category": "RPA", "confidence": 0.9, "rationale": "r"}`}}

	session := testSession("Copying invoice lines into the ERP")
	session.Subject = "URGENT-TITLE-NOT-A-FACT"

	_, err := svc.Propose(context.Background(), provider, session)
	require.NoError(t, err)
	for _, msg := range provider.lastSent {
		assert.NotContains(t, msg.Content, "URGENT-TITLE-NOT-A-FACT")
	}
}
