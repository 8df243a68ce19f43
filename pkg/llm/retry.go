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

package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/types"
)

// RetryPolicy bounds chat attempts. The defaults implement the
// pipeline contract: 3 attempts, exponential backoff from 1s, 30s per
// attempt.
type RetryPolicy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the standard policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		Multiplier:     2.0,
		AttemptTimeout: 30 * time.Second,
	}
}

// ChatWithRetry calls the provider under the retry policy. Each
// attempt runs under its own timeout; backoff sleeps are abandoned on
// context cancellation. Non-retryable errors return immediately.
func ChatWithRetry(ctx context.Context, p types.Provider, messages []types.Message, policy RetryPolicy) (*types.ChatResponse, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	logger := log.Named("llm")

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}
		resp, err := p.Chat(attemptCtx, messages)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if attempt > 1 {
				logger.Info("llm retry succeeded",
					zap.String("provider", p.Name()),
					zap.Int("attempt", attempt),
				)
			}
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm call cancelled (attempt %d/%d): %w", attempt, policy.MaxAttempts, err)
		}
		if !IsRetryable(err) {
			return nil, fmt.Errorf("llm call failed: %w", err)
		}
		if attempt == policy.MaxAttempts {
			break
		}

		logger.Warn("llm call failed, retrying",
			zap.String("provider", p.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm call cancelled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}

	logger.Error("llm retries exhausted",
		zap.String("provider", p.Name()),
		zap.Int("attempts", policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("llm call failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
