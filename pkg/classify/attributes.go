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
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/embedded"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/matrix"
	"github.com/transforma-labs/transforma/pkg/types"
)

// UnknownValue marks an attribute the conversation does not support.
const UnknownValue = "unknown"

// ExtractAttributes asks the model for the matrix's declared attributes
// and validates every value against the declaration. Extraction never
// fails the pipeline: any storage, transport, or parse problem returns
// all attributes as "unknown", and unknown attributes simply keep rules
// from triggering.
func (s *Service) ExtractAttributes(ctx context.Context, provider types.Provider, session *types.Session, m *matrix.DecisionMatrix) map[string]string {
	attrs := unknownAttributes(m)
	if len(m.Attributes) == 0 {
		return attrs
	}

	prompt, _, err := s.prompts.GetLatestPrompt(embedded.PromptAttributeExtraction)
	if err != nil {
		s.logger.Warn("attribute extraction prompt unavailable", zap.Error(err))
		return attrs
	}
	prompt = strings.ReplaceAll(prompt, "{{ATTRIBUTES}}", describeAttributes(m))

	messages := []types.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: s.Narrative(session)},
	}
	resp, err := llm.ChatWithRetry(ctx, provider, messages, s.policy)
	if err != nil {
		s.logger.Warn("attribute extraction call failed",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
		return attrs
	}

	obj, ok := llm.ExtractJSONObject(resp.Content)
	if !ok {
		s.logger.Warn("attribute extraction returned no JSON",
			zap.String("session_id", session.SessionID),
		)
		return attrs
	}
	var extracted map[string]any
	if err := json.Unmarshal([]byte(obj), &extracted); err != nil {
		s.logger.Warn("attribute extraction returned invalid JSON",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
		return attrs
	}

	for _, attr := range m.Attributes {
		raw, ok := extracted[attr.Name]
		if !ok {
			continue
		}
		if value, valid := validateAttributeValue(attr, raw); valid {
			attrs[attr.Name] = value
		}
	}
	return attrs
}

// validateAttributeValue checks an extracted value against the
// attribute declaration. Out-of-vocabulary or non-numeric values are
// rejected; the attribute stays "unknown".
func validateAttributeValue(attr matrix.Attribute, raw any) (string, bool) {
	value := strings.TrimSpace(fmt.Sprintf("%v", raw))
	if value == "" {
		return "", false
	}
	if strings.EqualFold(value, UnknownValue) {
		return UnknownValue, true
	}

	switch attr.Type {
	case matrix.AttrCategorical:
		for _, pv := range attr.PossibleValues {
			if strings.EqualFold(pv, value) {
				return pv, true
			}
		}
		return "", false
	case matrix.AttrNumeric:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "", false
		}
		return value, true
	case matrix.AttrBoolean:
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	}
	return "", false
}

func unknownAttributes(m *matrix.DecisionMatrix) map[string]string {
	attrs := make(map[string]string, len(m.Attributes))
	for _, attr := range m.Attributes {
		attrs[attr.Name] = UnknownValue
	}
	return attrs
}

// describeAttributes renders the matrix declarations into the prompt's
// {{ATTRIBUTES}} block.
func describeAttributes(m *matrix.DecisionMatrix) string {
	var b strings.Builder
	for _, attr := range m.Attributes {
		switch attr.Type {
		case matrix.AttrCategorical:
			fmt.Fprintf(&b, "- %s (one of: %s)", attr.Name, strings.Join(attr.PossibleValues, ", "))
		case matrix.AttrNumeric:
			fmt.Fprintf(&b, "- %s (a number)", attr.Name)
		case matrix.AttrBoolean:
			fmt.Fprintf(&b, "- %s (true or false)", attr.Name)
		}
		if attr.Description != "" {
			fmt.Fprintf(&b, ": %s", attr.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
