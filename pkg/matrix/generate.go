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

package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/embedded"
	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Generator drafts decision matrices with an LLM. Generated output
// goes through exactly the same sanitizer as admin-authored matrices;
// the model gets no shortcut into the rule engine.
type Generator struct {
	prompts *contentstore.Store
	policy  llm.RetryPolicy
	logger  *zap.Logger
}

// NewGenerator creates a matrix generator.
func NewGenerator(prompts *contentstore.Store, policy llm.RetryPolicy) *Generator {
	return &Generator{
		prompts: prompts,
		policy:  policy,
		logger:  log.Named("matrix"),
	}
}

// Generate asks the model for a matrix satisfying the admin's
// instructions, constrained to the attribute vocabulary of the current
// matrix. It returns the canonical JSON of the sanitized result, ready
// for the content store, along with the sanitization warnings.
func (g *Generator) Generate(ctx context.Context, provider types.Provider, instructions string) ([]byte, *DecisionMatrix, []Warning, error) {
	if strings.TrimSpace(instructions) == "" {
		return nil, nil, nil, fmt.Errorf("generation instructions are empty")
	}

	prompt, _, err := g.prompts.GetLatestPrompt(embedded.PromptMatrixGeneration)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load matrix generation prompt: %w", err)
	}
	prompt = strings.ReplaceAll(prompt, "{{ATTRIBUTES}}", g.attributeVocabulary())

	resp, err := llm.ChatWithRetry(ctx, provider, []types.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: instructions},
	}, g.policy)
	if err != nil {
		return nil, nil, nil, err
	}

	obj, ok := llm.ExtractJSONObject(resp.Content)
	if !ok {
		return nil, nil, nil, fmt.Errorf("model response contained no JSON object")
	}

	m, warnings, err := Sanitize([]byte(obj))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generated matrix does not parse: %w", err)
	}
	if !m.Usable() {
		return nil, nil, nil, fmt.Errorf("generated matrix lost all content to sanitization (%d warnings)", len(warnings))
	}
	if len(warnings) > 0 {
		g.logger.Warn("generated matrix needed sanitization",
			zap.Int("warnings", len(warnings)),
			zap.String("model", resp.Model),
		)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal sanitized matrix: %w", err)
	}
	return data, m, warnings, nil
}

// attributeVocabulary renders the attribute declarations of the latest
// stored matrix, falling back to the embedded defaults when nothing is
// stored yet.
func (g *Generator) attributeVocabulary() string {
	data, _, err := g.prompts.GetLatestMatrix()
	if err != nil {
		if !errors.Is(err, contentstore.ErrNotFound) {
			g.logger.Warn("failed to load current matrix for vocabulary", zap.Error(err))
		}
		data = embedded.DecisionMatrixJSON
	}
	m, _, err := Sanitize(data)
	if err != nil || len(m.Attributes) == 0 {
		m, _, err = Sanitize(embedded.DecisionMatrixJSON)
		if err != nil {
			return ""
		}
	}

	var b strings.Builder
	for _, attr := range m.Attributes {
		fmt.Fprintf(&b, "- %s (%s", attr.Name, attr.Type)
		if attr.Type == AttrCategorical {
			fmt.Fprintf(&b, ": %s", strings.Join(attr.PossibleValues, ", "))
		}
		b.WriteString(")\n")
	}
	return b.String()
}
