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
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/transforma-labs/transforma/pkg/types"
)

// digestBucket groups answers by the classification signal they carry.
type digestBucket struct {
	label    string
	keywords []string
}

// Buckets mirror the facts the clarification prompt asks for. An
// answer can land in several buckets; answers matching none fall into
// a catch-all so no fact is silently lost.
var digestBuckets = []digestBucket{
	{"Frequency", []string{"daily", "weekly", "monthly", "hourly", "quarterly", "every ", "times a", "times per", "per day", "per week", "per month"}},
	{"Volume and scale", []string{"volume", "hundred", "thousand", "transactions", "invoices", "requests", "records", "items", "cases", "tickets"}},
	{"Systems and tools", []string{"system", "excel", "spreadsheet", "sap", "erp", "crm", "email", "sharepoint", "software", "application", "portal", "database", "tool"}},
	{"Current state", []string{"paper", "manual", "by hand", "printed", "scanned", "digital", "automated", "workflow"}},
	{"Pain points", []string{"pain", "error", "mistake", "slow", "tedious", "bottleneck", "delay", "backlog", "rework", "frustrat", "time-consuming"}},
	{"Data sensitivity", []string{"sensitive", "personal", "pii", "confidential", "gdpr", "hipaa", "restricted", "payroll", "financial data", "health"}},
}

// digestQA compresses a run of Q&A pairs into a bucketed summary.
// Lossy on purpose: roughly a 60% token reduction on long interviews,
// keeping the facts that move the category.
func digestQA(qa []types.ClarificationQA) string {
	if len(qa) == 0 {
		return ""
	}

	buckets := make([][]string, len(digestBuckets))
	var other []string

	for _, pair := range qa {
		answer := strings.TrimSpace(pair.Answer)
		lower := strings.ToLower(answer)
		matched := false
		for i, bucket := range digestBuckets {
			for _, kw := range bucket.keywords {
				if strings.Contains(lower, kw) {
					buckets[i] = append(buckets[i], answer)
					matched = true
					break
				}
			}
		}
		if !matched {
			other = append(other, answer)
		}
	}

	var b strings.Builder
	for i, bucket := range digestBuckets {
		if len(buckets[i]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", bucket.label, strings.Join(dedupe(buckets[i]), "; "))
	}
	if len(other) > 0 {
		fmt.Fprintf(&b, "- Other: %s\n", strings.Join(dedupe(other), "; "))
	}
	return b.String()
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// countTokens measures text with the cl100k_base encoding. When the
// encoding cannot be loaded (offline first run), it falls back to the
// usual chars/4 estimate; token counts here steer compression logging,
// nothing billing-critical.
func countTokens(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text) / 4
	}
	return len(encoder.Encode(text, nil, nil))
}
