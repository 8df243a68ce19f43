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

// Package classify produces category proposals: it renders the session
// into a narrative, sends it through the classification prompt, and
// defensively parses whatever the model returns. A malformed response
// is a result kind here, not an error; only transport and storage
// failures surface as errors.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/embedded"
	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Service runs classification calls against a prompt store.
type Service struct {
	prompts *contentstore.Store
	policy  llm.RetryPolicy

	// summarizationThreshold is the Q&A count at which the narrative
	// switches from verbatim transcript to compressed digest.
	summarizationThreshold int
	verbatimTail           int

	logger *zap.Logger
}

// NewService creates the classification service.
func NewService(prompts *contentstore.Store, policy llm.RetryPolicy, summarizationThreshold int) *Service {
	return &Service{
		prompts:                prompts,
		policy:                 policy,
		summarizationThreshold: summarizationThreshold,
		verbatimTail:           3,
		logger:                 log.Named("classify"),
	}
}

// Proposal is a parsed classification proposal from the model.
type Proposal struct {
	Category            types.Category
	Confidence          float64
	Rationale           string
	CategoryProgression string
	FutureOpportunities string
}

// Result is the outcome of one classification call. Exactly one of
// Proposal or Malformed is meaningful: a malformed response keeps the
// raw text for the audit trail and carries no proposal.
type Result struct {
	Proposal      *Proposal
	Malformed     bool
	Raw           string
	Model         string
	Provider      string
	PromptVersion string
	Usage         types.Usage

	// Prompt is the serialized message slice sent to the model, kept
	// for the audit trail.
	Prompt string
}

// proposalWire is the JSON contract of the classification prompt.
type proposalWire struct {
	Category            string  `json:"category"`
	Confidence          float64 `json:"confidence"`
	Rationale           string  `json:"rationale"`
	CategoryProgression string  `json:"categoryProgression"`
	FutureOpportunities string  `json:"futureOpportunities"`
}

// Propose runs one classification call for the session. Storage and
// LLM failures return an error; an unparseable model response returns
// a Result with Malformed set.
func (s *Service) Propose(ctx context.Context, provider types.Provider, session *types.Session) (*Result, error) {
	prompt, promptVersion, err := s.prompts.GetLatestPrompt(embedded.PromptClassification)
	if err != nil {
		return nil, fmt.Errorf("failed to load classification prompt: %w", err)
	}

	messages := []types.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: s.Narrative(session)},
	}

	resp, err := llm.ChatWithRetry(ctx, provider, messages, s.policy)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Raw:           resp.Content,
		Model:         resp.Model,
		Provider:      provider.Name(),
		PromptVersion: promptVersion,
		Usage:         resp.Usage,
		Prompt:        llm.MarshalMessages(messages),
	}

	proposal, ok := parseProposal(resp.Content)
	if !ok {
		s.logger.Warn("malformed classification response",
			zap.String("session_id", session.SessionID),
			zap.String("model", resp.Model),
		)
		result.Malformed = true
		return result, nil
	}

	result.Proposal = proposal
	return result, nil
}

// parseProposal extracts and validates the model's JSON. Confidence is
// clamped into [0,1]; an unrecognized category makes the whole response
// malformed rather than guessing.
func parseProposal(raw string) (*Proposal, bool) {
	obj, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return nil, false
	}
	var wire proposalWire
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return nil, false
	}

	category, ok := types.ParseCategory(wire.Category)
	if !ok {
		return nil, false
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Proposal{
		Category:            category,
		Confidence:          confidence,
		Rationale:           wire.Rationale,
		CategoryProgression: wire.CategoryProgression,
		FutureOpportunities: wire.FutureOpportunities,
	}, true
}
