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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/types"
)

// scriptedProvider returns one scripted outcome per call, in order.
type scriptedProvider struct {
	calls     int
	responses []*types.ChatResponse
	errs      []error
}

func (p *scriptedProvider) Chat(_ context.Context, _ []types.Message) (*types.ChatResponse, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return nil, errors.New("script exhausted")
}

func (p *scriptedProvider) ListModels(_ context.Context) ([]types.ModelInfo, error) {
	return nil, nil
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		Multiplier:     2.0,
		AttemptTimeout: time.Second,
	}
}

func TestChatWithRetrySucceedsFirstAttempt(t *testing.T) {
	p := &scriptedProvider{
		responses: []*types.ChatResponse{{Content: "ok"}},
	}

	resp, err := ChatWithRetry(context.Background(), p, nil, fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, p.calls)
}

func TestChatWithRetryRecoversFromThrottle(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{
			&APIError{Provider: "scripted", StatusCode: 429, Body: "slow down"},
			&APIError{Provider: "scripted", StatusCode: 503, Body: "unavailable"},
			nil,
		},
		responses: []*types.ChatResponse{nil, nil, {Content: "recovered"}},
	}

	resp, err := ChatWithRetry(context.Background(), p, nil, fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 3, p.calls)
}

func TestChatWithRetryStopsOnNonRetryable(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{
			&APIError{Provider: "scripted", StatusCode: 401, Body: "bad key"},
		},
	}

	_, err := ChatWithRetry(context.Background(), p, nil, fastPolicy())
	require.Error(t, err)
	assert.Equal(t, 1, p.calls, "4xx other than 429 must not be retried")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestChatWithRetryExhaustsAttempts(t *testing.T) {
	throttle := &APIError{Provider: "scripted", StatusCode: 429, Body: "slow down"}
	p := &scriptedProvider{
		errs: []error{throttle, throttle, throttle},
	}

	_, err := ChatWithRetry(context.Background(), p, nil, fastPolicy())
	require.Error(t, err)
	assert.Equal(t, 3, p.calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestChatWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProvider{
		errs: []error{&APIError{Provider: "scripted", StatusCode: 500}},
	}

	_, err := ChatWithRetry(ctx, p, nil, fastPolicy())
	require.Error(t, err)
	assert.Equal(t, 1, p.calls, "cancelled context must not trigger further attempts")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throttle", &APIError{StatusCode: 429}, true},
		{"server error", &APIError{StatusCode: 500}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"attempt timeout", context.DeadlineExceeded, true},
		{"wrapped timeout", errors.Join(errors.New("wrap"), context.DeadlineExceeded), true},
		{"plain error", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
