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

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/transforma-labs/transforma/pkg/audit"
	"github.com/transforma-labs/transforma/pkg/types"
)

// ListModels lists the provider's available models, auditing both
// success and failure under the public session.
func (o *Orchestrator) ListModels(ctx context.Context, provider types.Provider) ([]types.ModelInfo, error) {
	started := time.Now()
	models, err := provider.ListModels(ctx)
	latency := time.Since(started).Milliseconds()

	if err != nil {
		_ = o.auditLog.Append(&audit.Entry{
			SessionID: audit.PublicSession,
			EventType: audit.EventModelListError,
			Data:      map[string]any{"error": err.Error()},
			Metadata: audit.Metadata{
				LLMProvider: provider.Name(),
				LatencyMs:   latency,
			},
		})
		return nil, fmt.Errorf("%w: %v", ErrLLMFailure, err)
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	if err := o.auditLog.Append(&audit.Entry{
		SessionID: audit.PublicSession,
		EventType: audit.EventModelListSuccess,
		Data:      map[string]any{"models": ids},
		Metadata: audit.Metadata{
			LLMProvider: provider.Name(),
			LatencyMs:   latency,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return models, nil
}
