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

// Package matrix implements the decision matrix engine: the versioned,
// admin-editable rule set that confirms, overrides, adjusts, or flags
// an LLM category proposal. Matrices arrive from admins and from LLM
// generation, so everything is sanitized on the way in: invalid
// fragments are dropped with a warning, never repaired silently.
package matrix

import (
	"encoding/json"

	"github.com/transforma-labs/transforma/pkg/types"
)

// Attribute types.
const (
	AttrCategorical = "categorical"
	AttrNumeric     = "numeric"
	AttrBoolean     = "boolean"
)

// Condition operators.
const (
	OpEq    = "=="
	OpNe    = "!="
	OpGt    = ">"
	OpLt    = "<"
	OpGe    = ">="
	OpLe    = "<="
	OpIn    = "in"
	OpNotIn = "not_in"
)

// Attribute declares one extractable process attribute the rules may
// reference. PossibleValues is required for categorical attributes.
type Attribute struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	PossibleValues []string `json:"possibleValues"`
	Weight         float64  `json:"weight"`
	Description    string   `json:"description,omitempty"`
}

// Condition is one predicate of a rule. Value is a scalar string for
// comparison operators and Values a string list for in/not_in; exactly
// one of the two is set, per the operator.
type Condition struct {
	Attribute string   `json:"attribute"`
	Operator  string   `json:"operator"`
	Value     string   `json:"-"`
	Values    []string `json:"-"`
}

// IsListOp reports whether the condition's operator takes a list value.
func (c Condition) IsListOp() bool {
	return c.Operator == OpIn || c.Operator == OpNotIn
}

// MarshalJSON writes the wire form: a single "value" field holding a
// scalar or a list per the operator, so sanitized matrices re-parse to
// the same matrix.
func (c Condition) MarshalJSON() ([]byte, error) {
	var value any = c.Value
	if c.IsListOp() {
		value = c.Values
	}
	return json.Marshal(struct {
		Attribute string `json:"attribute"`
		Operator  string `json:"operator"`
		Value     any    `json:"value"`
	}{c.Attribute, c.Operator, value})
}

// Rule is one decision rule. All conditions must hold (AND semantics)
// for the rule to trigger.
type Rule struct {
	RuleID      string           `json:"ruleId"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Priority    int              `json:"priority"`
	Active      bool             `json:"active"`
	Conditions  []Condition      `json:"conditions"`
	Action      types.RuleAction `json:"action"`
}

// DecisionMatrix is one immutable matrix version.
type DecisionMatrix struct {
	Version    string      `json:"-"`
	Attributes []Attribute `json:"attributes"`
	Rules      []Rule      `json:"rules"`
}

// Attribute returns the named attribute, or nil.
func (m *DecisionMatrix) Attribute(name string) *Attribute {
	for i := range m.Attributes {
		if m.Attributes[i].Name == name {
			return &m.Attributes[i]
		}
	}
	return nil
}

// AttributeNames returns the declared attribute names in order.
func (m *DecisionMatrix) AttributeNames() []string {
	names := make([]string, len(m.Attributes))
	for i, a := range m.Attributes {
		names[i] = a.Name
	}
	return names
}

// Usable reports whether the matrix survived sanitization with enough
// content to evaluate: at least one valid rule or a non-empty
// attribute set.
func (m *DecisionMatrix) Usable() bool {
	return len(m.Rules) > 0 || len(m.Attributes) > 0
}

// Warning records one sanitization coercion or drop, with the original
// and coerced values where applicable.
type Warning struct {
	RuleID   string `json:"ruleId,omitempty"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Original string `json:"original,omitempty"`
	Coerced  string `json:"coerced,omitempty"`
}
