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
	"encoding/json"
	"strings"

	"github.com/transforma-labs/transforma/pkg/types"
)

// MarshalMessages serializes a request's messages for the audit trail,
// which records the exact conversation sent on every model call.
func MarshalMessages(messages []types.Message) string {
	data, err := json.Marshal(messages)
	if err != nil {
		return ""
	}
	return string(data)
}

// ExtractJSONObject pulls the first top-level JSON object out of raw
// LLM text. Models wrap JSON in markdown fences or prepend commentary;
// the core never trusts a response to be bare JSON.
func ExtractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	// Strip a markdown code fence if the whole payload is fenced.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}

	// Scan for the matching close brace, respecting strings.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
