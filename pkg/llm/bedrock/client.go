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

// Package bedrock implements the Provider interface for Claude models
// on AWS Bedrock, via the official Anthropic SDK's Bedrock backend.
// The SDK handles AWS request signing and endpoint construction.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Defaults.
const (
	DefaultModelID   = "anthropic.claude-sonnet-4-20250514-v1:0"
	DefaultRegion    = "us-east-1"
	DefaultMaxTokens = 4096
)

// Client implements types.Provider for Bedrock.
type Client struct {
	client    anthropic.Client
	modelID   string
	region    string
	maxTokens int64
}

// Config holds per-request construction parameters. Credentials are
// request-scoped: passed in by the caller, never read from process
// env, never cached, never logged.
type Config struct {
	ModelID         string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// InferenceProfile is the optional regional inference profile
	// prefix ("us", "eu", "apac"). When set, the model id is invoked
	// as "{profile}.{modelId}".
	InferenceProfile string

	MaxTokens int
}

// NewClient creates a Bedrock client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	modelID := cfg.ModelID
	if cfg.InferenceProfile != "" && !strings.HasPrefix(modelID, cfg.InferenceProfile+".") {
		modelID = cfg.InferenceProfile + "." + modelID
	}

	return &Client{
		client:    anthropic.NewClient(bedrock.WithConfig(awsCfg)),
		modelID:   modelID,
		region:    cfg.Region,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return types.ProviderBedrock
}

// Model returns the configured model id, inference profile applied.
func (c *Client) Model() string {
	return c.modelID
}

// Chat sends a conversation and returns the raw text response. System
// messages are combined into the Anthropic system parameter.
func (c *Client) Chat(ctx context.Context, messages []types.Message) (*types.ChatResponse, error) {
	systemPrompt, sdkMessages := convertMessages(messages)
	if len(sdkMessages) == 0 {
		return nil, fmt.Errorf("no valid messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelID),
		Messages:  sdkMessages,
		MaxTokens: c.maxTokens,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &types.ChatResponse{
		Content: content.String(),
		Model:   string(message.Model),
		Usage: types.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

func convertMessages(messages []types.Message) (string, []anthropic.MessageParam) {
	var systemPrompts []string
	var sdkMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}
		case "user":
			if msg.Content != "" {
				sdkMessages = append(sdkMessages, anthropic.NewUserMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			}
		case "assistant":
			if msg.Content != "" {
				sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			}
		}
	}

	return strings.Join(systemPrompts, "\n\n"), sdkMessages
}

// classifyError maps SDK failures onto llm.APIError so the retry
// policy can see throttling and server errors.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &llm.APIError{
			Provider:   types.ProviderBedrock,
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Error(),
		}
	}
	return fmt.Errorf("bedrock invocation failed: %w", err)
}

// Ensure Client implements the provider interface.
var _ types.Provider = (*Client)(nil)
