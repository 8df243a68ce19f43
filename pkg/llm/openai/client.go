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

// Package openai implements the Provider interface over OpenAI's chat
// completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Defaults.
const (
	DefaultModel    = "gpt-4o"
	DefaultEndpoint = "https://api.openai.com/v1"
	DefaultTimeout  = 30 * time.Second
)

// modelPrefixes are the id prefixes accepted when listing models.
// Deliberately permissive: a model we have never heard of is accepted
// as long as it looks like a chat model; the API itself is the
// authority on access.
var modelPrefixes = []string{"gpt-", "o1", "o3", "o4", "chatgpt-"}

// Client implements types.Provider for OpenAI.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// Config holds per-request construction parameters. The API key is
// request-scoped and never cached.
type Config struct {
	APIKey   string
	Model    string        // Default: gpt-4o
	Endpoint string        // Default: https://api.openai.com/v1
	Timeout  time.Duration // Default: 30s
}

// NewClient creates an OpenAI client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		apiKey:   config.APIKey,
		model:    config.Model,
		endpoint: strings.TrimSuffix(config.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return types.ProviderOpenAI
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation and returns the raw text response.
func (c *Client) Chat(ctx context.Context, messages []types.Message) (*types.ChatResponse, error) {
	req := &chatCompletionRequest{
		Model:    c.model,
		Messages: make([]chatMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI response contained no choices")
	}

	return &types.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ListModels returns the chat-capable models the account can see.
func (c *Client) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &llm.APIError{Provider: c.Name(), StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var resp modelListResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model list: %w", err)
	}

	var models []types.ModelInfo
	for _, m := range resp.Data {
		if !chatModel(m.ID) {
			continue
		}
		models = append(models, types.ModelInfo{ID: m.ID, Provider: c.Name()})
	}
	return models, nil
}

func chatModel(id string) bool {
	for _, prefix := range modelPrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &llm.APIError{Provider: c.Name(), StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// Ensure Client implements the provider interface.
var _ types.Provider = (*Client)(nil)
