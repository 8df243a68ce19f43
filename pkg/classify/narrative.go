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

package classify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/pkg/types"
)

// Narrative renders the session into the text the model classifies:
// the description plus the clarification conversation. The subject is
// deliberately excluded; classification runs on the process facts, not
// on whatever title the user typed. Long interviews are compressed so
// late rounds are not drowned out by early transcript.
func (s *Service) Narrative(session *types.Session) string {
	qa := flattenQA(session)

	var b strings.Builder
	b.WriteString("Process description:\n")
	b.WriteString(strings.TrimSpace(session.Description))
	b.WriteString("\n")

	if len(qa) == 0 {
		return b.String()
	}

	if len(qa) < s.summarizationThreshold {
		b.WriteString("\nClarification conversation:\n")
		writeVerbatim(&b, qa)
		return b.String()
	}

	head := qa[:len(qa)-s.verbatimTail]
	tail := qa[len(qa)-s.verbatimTail:]
	if s.verbatimTail >= len(qa) {
		head, tail = nil, qa
	}

	before := countTokens(transcript(qa))
	digest := digestQA(head)
	if digest != "" {
		b.WriteString("\nSummary of earlier clarification:\n")
		b.WriteString(digest)
	}
	b.WriteString("\nMost recent clarification:\n")
	writeVerbatim(&b, tail)

	s.logger.Debug("conversation compressed",
		zap.String("session_id", session.SessionID),
		zap.Int("qa_pairs", len(qa)),
		zap.Int("tokens_before", before),
		zap.Int("tokens_after", countTokens(b.String())),
	)
	return b.String()
}

// flattenQA returns the answered exchanges in order. Unanswered
// questions carry no facts and are skipped.
func flattenQA(session *types.Session) []types.ClarificationQA {
	var qa []types.ClarificationQA
	for _, turn := range session.Conversations {
		for _, pair := range turn.ClarificationQA {
			if strings.TrimSpace(pair.Answer) != "" {
				qa = append(qa, pair)
			}
		}
	}
	return qa
}

func writeVerbatim(b *strings.Builder, qa []types.ClarificationQA) {
	for _, pair := range qa {
		fmt.Fprintf(b, "Q: %s\nA: %s\n", strings.TrimSpace(pair.Question), strings.TrimSpace(pair.Answer))
	}
}

func transcript(qa []types.ClarificationQA) string {
	var b strings.Builder
	writeVerbatim(&b, qa)
	return b.String()
}
