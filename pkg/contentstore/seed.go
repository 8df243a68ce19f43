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

package contentstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/embedded"
)

// SeedUserID is recorded as the author of seeded artifacts.
const SeedUserID = "system"

// SeedDefaults writes the embedded prompts and decision matrix as v1.0
// of any artifact that has no versions yet. Existing artifacts are
// never touched, so operator edits survive restarts.
func (s *Store) SeedDefaults() error {
	for id, content := range embedded.DefaultPrompts() {
		versions, err := s.ListPromptVersions(id)
		if err != nil {
			return err
		}
		if len(versions) > 0 {
			continue
		}
		v, err := s.SavePrompt(id, content, SeedUserID, "")
		if err != nil {
			return fmt.Errorf("failed to seed prompt %s: %w", id, err)
		}
		s.logger.Info("seeded default prompt", zap.String("id", id), zap.String("version", v))
	}

	versions, err := s.ListMatrixVersions()
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		v, err := s.SaveMatrix(embedded.DecisionMatrixJSON, SeedUserID, "")
		if err != nil {
			return fmt.Errorf("failed to seed decision matrix: %w", err)
		}
		s.logger.Info("seeded default decision matrix", zap.String("version", v))
	}
	return nil
}
