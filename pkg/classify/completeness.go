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
	"strings"

	"github.com/transforma-labs/transforma/pkg/types"
)

// The six completeness indicators. A description "covers" an indicator
// when any of its keywords appear; the routing gate compares the count
// against the configured threshold.
var completenessIndicators = [][]string{
	// who performs it
	{"team", "staff", "clerk", "analyst", "manager", "operator", "employee", "agent ", "we ", "our ", "i ", "department"},
	// how often
	{"daily", "weekly", "monthly", "hourly", "quarterly", "every ", "times a", "times per", "per day", "per week", "per month", "ad hoc"},
	// at what volume
	{"volume", "hundred", "thousand", "dozens", "transactions", "invoices", "requests", "records", "items", "cases", "tickets", "orders"},
	// with which systems
	{"system", "excel", "spreadsheet", "sap", "erp", "crm", "email", "sharepoint", "software", "application", "portal", "database", "tool"},
	// current state
	{"paper", "manual", "by hand", "printed", "scanned", "digital", "automated", "workflow", "form"},
	// what makes it painful
	{"pain", "error", "mistake", "slow", "tedious", "bottleneck", "delay", "backlog", "rework", "frustrat", "time-consuming", "problem"},
}

// MaxCompleteness is the number of indicators scored.
var MaxCompleteness = len(completenessIndicators)

// Completeness scores how many of the six indicators the session's
// combined text covers. A keyword heuristic, deliberately cheap: it
// gates whether a high-confidence proposal may skip the interview, and
// errs toward asking one more question rather than auto-classifying a
// thin description.
func Completeness(session *types.Session) int {
	var b strings.Builder
	b.WriteString(session.Description)
	for _, turn := range session.Conversations {
		for _, pair := range turn.ClarificationQA {
			b.WriteString("\n")
			b.WriteString(pair.Answer)
		}
	}
	text := strings.ToLower(b.String())

	score := 0
	for _, keywords := range completenessIndicators {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				score++
				break
			}
		}
	}
	return score
}

// WordCount counts whitespace-separated words. The auto-classify gate
// requires a minimum description length regardless of confidence.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
