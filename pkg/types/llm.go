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
	"context"
	"fmt"
)

// Provider names. The provider is always explicit in the config; it is
// never inferred from the model id.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Message is a single chat message sent to or received from an LLM.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Usage tracks token consumption for one chat call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ChatResponse is the uniform result of a provider chat call. Content
// is the raw text; the core never assumes it is valid JSON.
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// ModelInfo describes one model a provider exposes.
type ModelInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Name     string `json:"name,omitempty"`
}

// ProviderConfig carries everything needed to construct a provider
// client for one call. Credentials are request-scoped: they are never
// cached between sessions and never logged.
type ProviderConfig struct {
	Provider string `json:"provider"` // openai or bedrock
	Model    string `json:"model"`

	// OpenAI
	APIKey   string `json:"-"`
	Endpoint string `json:"endpoint,omitempty"`

	// Bedrock
	Region           string `json:"region,omitempty"`
	AccessKeyID      string `json:"-"`
	SecretAccessKey  string `json:"-"`
	SessionToken     string `json:"-"`
	InferenceProfile string `json:"inferenceProfile,omitempty"` // regional prefix, e.g. "us"
}

// Validate checks that the config names a known provider.
func (c ProviderConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderBedrock:
		return nil
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
}

// Provider is the uniform capability contract over LLM backends.
// Implementations are constructed per call from a ProviderConfig.
type Provider interface {
	// Chat sends a conversation and returns the raw text response.
	Chat(ctx context.Context, messages []Message) (*ChatResponse, error)

	// ListModels returns the models this provider will accept.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Name returns the provider name (openai, bedrock).
	Name() string

	// Model returns the configured model identifier.
	Model() string
}
