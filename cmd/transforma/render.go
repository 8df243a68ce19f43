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
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/transforma-labs/transforma/pkg/orchestrator"
	"github.com/transforma-labs/transforma/pkg/types"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printOutcome(out *orchestrator.Outcome) {
	fmt.Printf("Session: %s\n", out.Session.SessionID)
	fmt.Printf("Status:  %s\n", out.Session.Status)
	fmt.Printf("Action:  %s\n", out.Action)
	if out.Reason != "" {
		fmt.Printf("Reason:  %s\n", out.Reason)
	}

	switch out.Action {
	case orchestrator.ActionClarify:
		fmt.Println("\nPlease answer the following:")
		for i, q := range out.Questions {
			fmt.Printf("  %d. %s\n", i+1, q)
		}
		fmt.Printf("\nReply with: transforma clarify %s --answer ...\n", out.Session.SessionID)
	default:
		printClassification(out.Session.Classification)
	}
}

func printClassification(c *types.Classification) {
	if c == nil {
		return
	}
	fmt.Printf("\nCategory:   %s\n", c.Category)
	fmt.Printf("Confidence: %.2f\n", c.Confidence)
	fmt.Printf("Rationale:  %s\n", c.Rationale)
	if c.CategoryProgression != "" {
		fmt.Printf("Progression: %s\n", c.CategoryProgression)
	}
	if c.FutureOpportunities != "" {
		fmt.Printf("Opportunities: %s\n", c.FutureOpportunities)
	}
	if eval := c.DecisionMatrixEvaluation; eval != nil && len(eval.TriggeredRules) > 0 {
		fmt.Printf("Matrix %s triggered:\n", eval.MatrixVersion)
		for _, r := range eval.TriggeredRules {
			fmt.Printf("  - %s (%s)\n", r.RuleName, r.Action.Type)
		}
	}
}
