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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

type cannedProvider struct {
	response string
}

func (p *cannedProvider) Chat(_ context.Context, _ []types.Message) (*types.ChatResponse, error) {
	return &types.ChatResponse{Content: p.response, Model: "fake-model"}, nil
}

func (p *cannedProvider) ListModels(_ context.Context) ([]types.ModelInfo, error) { return nil, nil }
func (p *cannedProvider) Name() string                                            { return "fake" }
func (p *cannedProvider) Model() string                                           { return "fake-model" }

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	store, err := contentstore.New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.SeedDefaults())
	policy := llm.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2, AttemptTimeout: time.Second}
	return NewGenerator(store, policy)
}

func TestGenerateSanitizesModelOutput(t *testing.T) {
	g := newGenerator(t)
	provider := &cannedProvider{response: "```json\n" + `{
		"attributes": [
			{"name": "frequency", "type": "categorical", "possibleValues": ["daily", "weekly"], "weight": 0.8}
		],
		"rules": [
			{
				"ruleId": "r1", "name": "Daily to RPA", "priority": 90,
				"conditions": [{"attribute": "frequency", "operator": "==", "value": "daily"}],
				"action": {"type": "override", "targetCategory": ["RPA", "Digitise"]}
			},
			{
				"ruleId": "r2", "name": "Broken", "priority": 50,
				"conditions": [{"attribute": "team_size", "operator": ">", "value": 5}],
				"action": {"type": "flag_review"}
			}
		]
	}` + "\n```"}

	data, m, warnings, err := g.Generate(context.Background(), provider, "favor RPA for daily work")
	require.NoError(t, err)
	require.Len(t, m.Rules, 1, "the rule on an unknown attribute drops")
	assert.Equal(t, types.CategoryRPA, m.Rules[0].Action.TargetCategory,
		"array targetCategory coerces to its first element")
	assert.NotEmpty(t, warnings)

	reparsed, rewarn, err := Sanitize(data)
	require.NoError(t, err)
	assert.Empty(t, rewarn, "canonical output re-parses without warnings")
	assert.Equal(t, m.Rules, reparsed.Rules)
}

func TestGenerateRejectsNonJSON(t *testing.T) {
	g := newGenerator(t)
	_, _, _, err := g.Generate(context.Background(), &cannedProvider{response: "cannot do that"}, "anything")
	require.Error(t, err)
}

func TestGenerateRejectsEmptyInstructions(t *testing.T) {
	g := newGenerator(t)
	_, _, _, err := g.Generate(context.Background(), &cannedProvider{response: "{}"}, "  ")
	require.Error(t, err)
}

func TestGenerateRejectsFullyInvalidMatrix(t *testing.T) {
	g := newGenerator(t)
	provider := &cannedProvider{response: `{"attributes": [], "rules": []}`}
	_, _, _, err := g.Generate(context.Background(), provider, "rules please")
	require.Error(t, err)
}
