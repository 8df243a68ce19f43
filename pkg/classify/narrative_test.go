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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/types"
)

func sessionWithQA(pairs ...[2]string) *types.Session {
	session := testSession("Invoice matching against purchase orders, done in Excel")
	turn := types.ConversationTurn{TurnIndex: 0}
	now := time.Now().UTC()
	for _, p := range pairs {
		turn.ClarificationQA = append(turn.ClarificationQA, types.ClarificationQA{
			Question: p[0], Answer: p[1], AskedAt: now, AnsweredAt: &now,
		})
	}
	session.Conversations = []types.ConversationTurn{turn}
	return session
}

func TestNarrativeShortInterviewStaysVerbatim(t *testing.T) {
	svc := newTestService(t)
	session := sessionWithQA(
		[2]string{"How often does this run?", "Every day around 9am"},
		[2]string{"What systems are involved?", "Excel and SAP"},
	)

	narrative := svc.Narrative(session)
	assert.Contains(t, narrative, "Q: How often does this run?")
	assert.Contains(t, narrative, "A: Excel and SAP")
	assert.NotContains(t, narrative, "Summary of earlier clarification")
}

func TestNarrativeLongInterviewCompresses(t *testing.T) {
	svc := newTestService(t)
	session := sessionWithQA(
		[2]string{"How often?", "Daily, sometimes twice a day"},
		[2]string{"Volume?", "Around 300 invoices per day"},
		[2]string{"Systems?", "Excel, SAP and a shared mailbox"},
		[2]string{"Current state?", "Mostly manual, some paper forms"},
		[2]string{"Pain points?", "Errors and rework, plus a backlog every month end"},
		[2]string{"Sensitive data?", "Supplier bank details, so financial data"},
	)

	narrative := svc.Narrative(session)
	assert.Contains(t, narrative, "Summary of earlier clarification")
	assert.Contains(t, narrative, "Most recent clarification")
	// Last pairs stay verbatim.
	assert.Contains(t, narrative, "Q: Sensitive data?")
	// Early answers survive in the digest even without their questions.
	assert.Contains(t, narrative, "Daily, sometimes twice a day")
	assert.NotContains(t, narrative, "Q: How often?")
}

func TestNarrativeCompressionReducesTokens(t *testing.T) {
	svc := newTestService(t)
	var pairs [][2]string
	for i := 0; i < 12; i++ {
		pairs = append(pairs, [2]string{
			fmt.Sprintf("Question number %d about the process details?", i),
			fmt.Sprintf("The team runs this daily with roughly %d invoices processed in SAP and Excel, which is slow and error-prone", 100+i),
		})
	}
	session := sessionWithQA(pairs...)

	full := transcript(flattenQA(session))
	compressed := svc.Narrative(session)
	assert.Less(t, countTokens(compressed), countTokens(full),
		"compressed narrative must be smaller than the verbatim transcript")
}

func TestNarrativeSkipsUnansweredQuestions(t *testing.T) {
	svc := newTestService(t)
	session := sessionWithQA([2]string{"Pending question?", ""})

	narrative := svc.Narrative(session)
	assert.NotContains(t, narrative, "Pending question?")
}

func TestDigestBucketsAnswers(t *testing.T) {
	now := time.Now().UTC()
	qa := []types.ClarificationQA{
		{Question: "q1", Answer: "We process about 500 invoices per day", AskedAt: now},
		{Question: "q2", Answer: "Everything lives in Excel and SAP", AskedAt: now},
		{Question: "q3", Answer: "It is painfully slow and full of errors", AskedAt: now},
		{Question: "q4", Answer: "Nothing else to add really", AskedAt: now},
	}

	digest := digestQA(qa)
	assert.Contains(t, digest, "Frequency")
	assert.Contains(t, digest, "Systems and tools")
	assert.Contains(t, digest, "Pain points")
	assert.Contains(t, digest, "Other: Nothing else to add really")
}

func TestCompletenessScoring(t *testing.T) {
	assert.Equal(t, 6, MaxCompleteness)

	thin := testSession("We do a thing sometimes.")
	assert.Less(t, Completeness(thin), 4)

	rich := testSession(strings.Join([]string{
		"Our accounts payable team matches around 300 invoices per day",
		"against purchase orders in SAP, rekeying lines from emailed PDFs.",
		"It runs daily and the manual rekeying is slow and error-prone.",
	}, " "))
	assert.GreaterOrEqual(t, Completeness(rich), 4)
	assert.LessOrEqual(t, Completeness(rich), MaxCompleteness)
}

func TestCompletenessCountsAnswers(t *testing.T) {
	session := sessionWithQA(
		[2]string{"How often?", "daily"},
		[2]string{"Volume?", "hundreds of invoices"},
	)
	base := testSession(session.Description)
	assert.Greater(t, Completeness(session), Completeness(base)-1,
		"answers contribute to completeness")
	require.GreaterOrEqual(t, Completeness(session), Completeness(base))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 5, WordCount("one two  three\nfour\tfive"))
}
