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

package matrix

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/pkg/types"
)

// Loose intermediate forms. Admin UIs and LLM generation both produce
// sloppy JSON: array-valued targetCategory, numeric strings, missing
// active flags. The sanitizer is the single place that straightens it.
type rawMatrix struct {
	Attributes []rawAttribute `json:"attributes"`
	Rules      []rawRule      `json:"rules"`
}

type rawAttribute struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	PossibleValues []any    `json:"possibleValues"`
	Weight         *float64 `json:"weight"`
	Description    string   `json:"description"`
}

type rawRule struct {
	RuleID      string         `json:"ruleId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Priority    *float64       `json:"priority"`
	Active      *bool          `json:"active"`
	Conditions  []rawCondition `json:"conditions"`
	Action      rawAction      `json:"action"`
}

type rawCondition struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

type rawAction struct {
	Type                 string   `json:"type"`
	TargetCategory       any      `json:"targetCategory"`
	ConfidenceAdjustment *float64 `json:"confidenceAdjustment"`
	Rationale            string   `json:"rationale"`
}

// Sanitize parses matrix JSON and applies the filter-and-warn rules:
// coerce what can be coerced, drop what cannot, and record a Warning
// for every deviation. It returns an error only when the JSON itself
// does not parse; a matrix that loses every rule still loads as long
// as attributes survive.
func Sanitize(data []byte) (*DecisionMatrix, []Warning, error) {
	var raw rawMatrix
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse matrix JSON: %w", err)
	}

	logger := log.Named("matrix")
	var warnings []Warning
	warn := func(w Warning) {
		warnings = append(warnings, w)
		logger.Warn("matrix sanitization",
			zap.String("rule_id", w.RuleID),
			zap.String("field", w.Field),
			zap.String("message", w.Message),
			zap.String("original", w.Original),
			zap.String("coerced", w.Coerced),
		)
	}

	m := &DecisionMatrix{}

	for _, ra := range raw.Attributes {
		attr, ok := sanitizeAttribute(ra, warn)
		if ok {
			m.Attributes = append(m.Attributes, attr)
		}
	}

	for i, rr := range raw.Rules {
		rule, ok := sanitizeRule(rr, i, m, warn)
		if ok {
			m.Rules = append(m.Rules, rule)
		}
	}

	return m, warnings, nil
}

func sanitizeAttribute(ra rawAttribute, warn func(Warning)) (Attribute, bool) {
	if strings.TrimSpace(ra.Name) == "" {
		warn(Warning{Field: "attribute.name", Message: "attribute with empty name dropped"})
		return Attribute{}, false
	}

	attr := Attribute{
		Name:        strings.TrimSpace(ra.Name),
		Type:        strings.ToLower(strings.TrimSpace(ra.Type)),
		Description: ra.Description,
	}

	switch attr.Type {
	case AttrCategorical, AttrNumeric, AttrBoolean:
	default:
		warn(Warning{Field: "attribute.type",
			Message:  fmt.Sprintf("attribute %s has unknown type, coerced to categorical", attr.Name),
			Original: ra.Type, Coerced: AttrCategorical})
		attr.Type = AttrCategorical
	}

	for _, v := range ra.PossibleValues {
		attr.PossibleValues = append(attr.PossibleValues, stringify(v))
	}
	if attr.Type == AttrCategorical && len(attr.PossibleValues) == 0 {
		warn(Warning{Field: "attribute.possibleValues",
			Message: fmt.Sprintf("categorical attribute %s has no possible values, dropped", attr.Name)})
		return Attribute{}, false
	}

	weight := 0.5
	if ra.Weight != nil {
		weight = *ra.Weight
	}
	if clamped := clamp(weight, 0, 1); clamped != weight {
		warn(Warning{Field: "attribute.weight",
			Message:  fmt.Sprintf("attribute %s weight out of range, clamped", attr.Name),
			Original: fmt.Sprintf("%v", weight), Coerced: fmt.Sprintf("%v", clamped)})
		weight = clamped
	}
	attr.Weight = weight

	return attr, true
}

func sanitizeRule(rr rawRule, index int, m *DecisionMatrix, warn func(Warning)) (Rule, bool) {
	ruleID := strings.TrimSpace(rr.RuleID)
	if ruleID == "" {
		ruleID = fmt.Sprintf("rule-%d", index+1)
		warn(Warning{RuleID: ruleID, Field: "ruleId",
			Message: "rule without id assigned a positional id", Coerced: ruleID})
	}

	if strings.TrimSpace(rr.Name) == "" {
		warn(Warning{RuleID: ruleID, Field: "name", Message: "rule with empty name dropped"})
		return Rule{}, false
	}

	rule := Rule{
		RuleID:      ruleID,
		Name:        strings.TrimSpace(rr.Name),
		Description: rr.Description,
		Active:      true,
	}
	if rr.Active != nil {
		rule.Active = *rr.Active
	}

	priority := 50.0
	if rr.Priority != nil {
		priority = *rr.Priority
	}
	if clamped := clamp(priority, 0, 100); clamped != priority {
		warn(Warning{RuleID: ruleID, Field: "priority",
			Message:  "priority out of range, clamped",
			Original: fmt.Sprintf("%v", priority), Coerced: fmt.Sprintf("%v", clamped)})
		priority = clamped
	}
	rule.Priority = int(priority)

	for _, rc := range rr.Conditions {
		cond, ok := sanitizeCondition(rc, ruleID, m, warn)
		if ok {
			rule.Conditions = append(rule.Conditions, cond)
		}
	}
	if len(rule.Conditions) == 0 {
		warn(Warning{RuleID: ruleID, Field: "conditions",
			Message: "rule with zero valid conditions dropped"})
		return Rule{}, false
	}

	action, ok := sanitizeAction(rr.Action, ruleID, warn)
	if !ok {
		return Rule{}, false
	}
	rule.Action = action

	return rule, true
}

func sanitizeCondition(rc rawCondition, ruleID string, m *DecisionMatrix, warn func(Warning)) (Condition, bool) {
	attr := m.Attribute(strings.TrimSpace(rc.Attribute))
	if attr == nil {
		warn(Warning{RuleID: ruleID, Field: "condition.attribute",
			Message:  "condition references unknown attribute, dropped",
			Original: rc.Attribute})
		return Condition{}, false
	}

	cond := Condition{Attribute: attr.Name, Operator: strings.TrimSpace(rc.Operator)}
	switch cond.Operator {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpIn, OpNotIn:
	default:
		warn(Warning{RuleID: ruleID, Field: "condition.operator",
			Message:  "unknown operator, condition dropped",
			Original: rc.Operator})
		return Condition{}, false
	}

	if cond.IsListOp() {
		values, wasScalar := stringifyList(rc.Value)
		if wasScalar {
			warn(Warning{RuleID: ruleID, Field: "condition.value",
				Message:  fmt.Sprintf("%s condition had a scalar value, wrapped in a list", cond.Operator),
				Original: stringify(rc.Value)})
		}
		if attr.Type == AttrCategorical {
			values = filterKnownValues(values, attr, ruleID, warn)
		}
		if len(values) == 0 {
			warn(Warning{RuleID: ruleID, Field: "condition.value",
				Message: "condition has no valid values, dropped"})
			return Condition{}, false
		}
		cond.Values = values
		return cond, true
	}

	// Comparison operators take a scalar.
	if _, isList := rc.Value.([]any); isList {
		warn(Warning{RuleID: ruleID, Field: "condition.value",
			Message:  fmt.Sprintf("%s condition had a list value, dropped", cond.Operator),
			Original: stringify(rc.Value)})
		return Condition{}, false
	}
	value := stringify(rc.Value)
	if attr.Type == AttrCategorical && (cond.Operator == OpEq || cond.Operator == OpNe) {
		if !containsString(attr.PossibleValues, value) {
			warn(Warning{RuleID: ruleID, Field: "condition.value",
				Message:  fmt.Sprintf("value not in %s possibleValues, condition dropped", attr.Name),
				Original: value})
			return Condition{}, false
		}
	}
	cond.Value = value
	return cond, true
}

func sanitizeAction(ra rawAction, ruleID string, warn func(Warning)) (types.RuleAction, bool) {
	action := types.RuleAction{
		Type:      strings.TrimSpace(ra.Type),
		Rationale: ra.Rationale,
	}

	switch action.Type {
	case types.ActionOverride:
		target := ra.TargetCategory
		// LLM output sometimes hands back an array of categories; the
		// first element wins and the coercion is logged.
		if arr, ok := target.([]any); ok {
			if len(arr) == 0 {
				warn(Warning{RuleID: ruleID, Field: "action.targetCategory",
					Message: "empty targetCategory array, rule dropped"})
				return types.RuleAction{}, false
			}
			warn(Warning{RuleID: ruleID, Field: "action.targetCategory",
				Message:  "array targetCategory coerced to first element",
				Original: stringify(target), Coerced: stringify(arr[0])})
			target = arr[0]
		}
		cat, ok := types.ParseCategory(stringify(target))
		if !ok {
			warn(Warning{RuleID: ruleID, Field: "action.targetCategory",
				Message:  "targetCategory is not a valid category, rule dropped",
				Original: stringify(target)})
			return types.RuleAction{}, false
		}
		action.TargetCategory = cat

	case types.ActionAdjustConfidence:
		adj := 0.0
		if ra.ConfidenceAdjustment != nil {
			adj = *ra.ConfidenceAdjustment
		}
		if clamped := clamp(adj, -1, 1); clamped != adj {
			warn(Warning{RuleID: ruleID, Field: "action.confidenceAdjustment",
				Message:  "confidenceAdjustment out of range, clamped",
				Original: fmt.Sprintf("%v", adj), Coerced: fmt.Sprintf("%v", clamped)})
			adj = clamped
		}
		action.ConfidenceAdjustment = adj

	case types.ActionFlagReview:
		// No parameters beyond the rationale.

	default:
		warn(Warning{RuleID: ruleID, Field: "action.type",
			Message:  "unknown action type, rule dropped",
			Original: ra.Type})
		return types.RuleAction{}, false
	}

	return action, true
}

func filterKnownValues(values []string, attr *Attribute, ruleID string, warn func(Warning)) []string {
	var kept []string
	for _, v := range values {
		if containsString(attr.PossibleValues, v) {
			kept = append(kept, v)
		} else {
			warn(Warning{RuleID: ruleID, Field: "condition.value",
				Message:  fmt.Sprintf("value not in %s possibleValues, element dropped", attr.Name),
				Original: v})
		}
	}
	return kept
}

// stringify renders any JSON scalar (or structure) as the string form
// used for comparisons. JSON numbers drop a trailing ".0" so that 500
// and 500.0 compare equal as attribute values.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// stringifyList coerces a JSON value into a string list. Returns
// wasScalar=true when the input was a lone scalar.
func stringifyList(v any) (values []string, wasScalar bool) {
	if arr, ok := v.([]any); ok {
		for _, el := range arr {
			values = append(values, stringify(el))
		}
		return values, false
	}
	if v == nil {
		return nil, false
	}
	return []string{stringify(v)}, true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
