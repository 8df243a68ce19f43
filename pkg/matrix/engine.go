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
	"sort"
	"strconv"

	"github.com/transforma-labs/transforma/pkg/types"
)

// Proposal is the LLM's category proposal the matrix post-processes.
type Proposal struct {
	Category   types.Category
	Confidence float64
}

// Outcome is the result of applying a matrix to one proposal.
type Outcome struct {
	Category   types.Category
	Confidence float64
	Evaluation *types.MatrixEvaluation
}

// Evaluate applies the matrix to extracted attributes, seeded from the
// LLM proposal. Deterministic: active rules sorted by priority
// descending with source order as the stable tie-break; AND semantics
// across a rule's conditions; the first override encountered wins;
// confidence adjustments sum and the final confidence is clamped into
// [0,1].
func Evaluate(proposal Proposal, attrs map[string]string, m *DecisionMatrix) Outcome {
	rules := make([]Rule, 0, len(m.Rules))
	for _, r := range m.Rules {
		if r.Active {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	eval := &types.MatrixEvaluation{
		MatrixVersion:  m.Version,
		TriggeredRules: []types.TriggeredRule{},
	}

	category := proposal.Category
	adjustment := 0.0

	for _, rule := range rules {
		if !ruleTriggers(rule, attrs) {
			continue
		}
		eval.TriggeredRules = append(eval.TriggeredRules, types.TriggeredRule{
			RuleID:   rule.RuleID,
			RuleName: rule.Name,
			Priority: rule.Priority,
			Action:   rule.Action,
		})

		switch rule.Action.Type {
		case types.ActionOverride:
			// First override wins; later (lower-priority) overrides
			// still evaluate and are recorded, but do not replace.
			if !eval.Overridden {
				category = rule.Action.TargetCategory
				eval.Overridden = true
			}
		case types.ActionAdjustConfidence:
			adjustment += rule.Action.ConfidenceAdjustment
		case types.ActionFlagReview:
			eval.FlaggedForReview = true
		}
	}

	confidence := proposal.Confidence + adjustment
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	// Record the delta that actually applied, not the raw rule sum:
	// with a 0.9 seed, rules adding +0.4 only move confidence by +0.1.
	eval.ConfidenceAdjustmentTotal = confidence - proposal.Confidence

	return Outcome{Category: category, Confidence: confidence, Evaluation: eval}
}

// ruleTriggers reports whether every condition of the rule holds.
func ruleTriggers(rule Rule, attrs map[string]string) bool {
	for _, cond := range rule.Conditions {
		if !conditionHolds(cond, attrs) {
			return false
		}
	}
	return true
}

func conditionHolds(cond Condition, attrs map[string]string) bool {
	actual, ok := attrs[cond.Attribute]
	if !ok {
		return false
	}

	switch cond.Operator {
	case OpEq:
		return valuesEqual(actual, cond.Value)
	case OpNe:
		return !valuesEqual(actual, cond.Value)
	case OpGt, OpLt, OpGe, OpLe:
		// Ordering requires both sides numeric; "unknown" never orders.
		a, errA := strconv.ParseFloat(actual, 64)
		b, errB := strconv.ParseFloat(cond.Value, 64)
		if errA != nil || errB != nil {
			return false
		}
		switch cond.Operator {
		case OpGt:
			return a > b
		case OpLt:
			return a < b
		case OpGe:
			return a >= b
		case OpLe:
			return a <= b
		}
		return false
	case OpIn:
		return containsString(cond.Values, actual)
	case OpNotIn:
		return !containsString(cond.Values, actual)
	}
	return false
}

// valuesEqual compares numerically when both sides parse as numbers,
// else as exact strings. Extraction hands back strings even for
// numeric attributes.
func valuesEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa == fb
	}
	return a == b
}
