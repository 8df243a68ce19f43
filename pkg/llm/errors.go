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

// Package llm wraps provider chat calls with the pipeline's retry and
// timeout policy, and hosts the defensive parsing helpers every
// consumer of raw LLM text shares.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is an HTTP-level provider failure. Providers return it so
// the retry policy can distinguish throttling and server errors from
// caller mistakes.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// IsRetryable reports whether an attempt error is worth retrying:
// HTTP 429, HTTP 5xx, and transport-level failures (reset, timeout).
// Any other 4xx is the caller's problem and is not retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// The per-attempt timeout fired; the next attempt gets a fresh one.
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
