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

package bedrock

import (
	"context"

	"github.com/transforma-labs/transforma/pkg/types"
)

// knownModels are the Claude model ids available through Bedrock. The
// list is advisory: an operator can configure any model id, and Bedrock
// itself rejects ids the account cannot invoke.
var knownModels = []types.ModelInfo{
	{ID: "anthropic.claude-opus-4-1-20250805-v1:0", Name: "Claude Opus 4.1"},
	{ID: "anthropic.claude-opus-4-20250514-v1:0", Name: "Claude Opus 4"},
	{ID: "anthropic.claude-sonnet-4-20250514-v1:0", Name: "Claude Sonnet 4"},
	{ID: "anthropic.claude-3-7-sonnet-20250219-v1:0", Name: "Claude 3.7 Sonnet"},
	{ID: "anthropic.claude-3-5-sonnet-20241022-v2:0", Name: "Claude 3.5 Sonnet v2"},
	{ID: "anthropic.claude-3-5-haiku-20241022-v1:0", Name: "Claude 3.5 Haiku"},
}

// ListModels returns the known Claude-on-Bedrock model ids. Bedrock
// has no unauthenticated model-listing endpoint scoped to Anthropic
// models, so the list is static.
func (c *Client) ListModels(_ context.Context) ([]types.ModelInfo, error) {
	models := make([]types.ModelInfo, len(knownModels))
	for i, m := range knownModels {
		m.Provider = c.Name()
		models[i] = m
	}
	return models, nil
}
