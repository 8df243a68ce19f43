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

// Package factory constructs LLM providers from request-scoped
// configuration. The provider is always named explicitly; it is never
// inferred from the model id.
package factory

import (
	"context"
	"fmt"

	"github.com/transforma-labs/transforma/pkg/llm/bedrock"
	"github.com/transforma-labs/transforma/pkg/llm/openai"
	"github.com/transforma-labs/transforma/pkg/types"
)

// New builds a provider from the given configuration. Credentials live
// only in cfg and in the returned client; nothing is read from process
// env here.
func New(ctx context.Context, cfg types.ProviderConfig) (types.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case types.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Endpoint: cfg.Endpoint,
		}), nil
	case types.ProviderBedrock:
		return bedrock.NewClient(ctx, bedrock.Config{
			ModelID:          cfg.Model,
			Region:           cfg.Region,
			AccessKeyID:      cfg.AccessKeyID,
			SecretAccessKey:  cfg.SecretAccessKey,
			SessionToken:     cfg.SessionToken,
			InferenceProfile: cfg.InferenceProfile,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (must be %q or %q)",
			cfg.Provider, types.ProviderOpenAI, types.ProviderBedrock)
	}
}
