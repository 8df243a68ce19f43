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

package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/audit"
	"github.com/transforma-labs/transforma/pkg/clarify"
	"github.com/transforma-labs/transforma/pkg/classify"
	"github.com/transforma-labs/transforma/pkg/config"
	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/sessionstore"
	"github.com/transforma-labs/transforma/pkg/types"
)

// richDescription clears the 50-word and completeness gates.
const richDescription = "Our accounts payable team of four clerks matches roughly three hundred " +
	"supplier invoices per day against purchase orders in SAP. The invoices arrive " +
	"as emailed PDF attachments, and each clerk rekeys the line items into an Excel " +
	"tracker before posting to SAP. The rekeying is entirely manual, runs daily, and " +
	"produces frequent transposition errors that cause payment delays and a month-end backlog."

// routedProvider dispatches canned responses by the system prompt of
// each call, replaying each queue in order and repeating its last
// element when exhausted.
type routedProvider struct {
	classifyQ []string
	clarifyQ  []string
	extractQ  []string
	err       error

	classifyCalls int
	clarifyCalls  int
	extractCalls  int
}

func (p *routedProvider) Chat(_ context.Context, messages []types.Message) (*types.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	sys := messages[0].Content
	var content string
	switch {
	case strings.Contains(sys, "Classify the process"):
		content = pop(p.classifyQ, &p.classifyCalls)
	case strings.Contains(sys, "interviewing"):
		content = pop(p.clarifyQ, &p.clarifyCalls)
	case strings.Contains(sys, "Extract structured attributes"):
		if len(p.extractQ) == 0 {
			p.extractCalls++
			content = `{}`
			break
		}
		content = pop(p.extractQ, &p.extractCalls)
	default:
		return nil, errors.New("unrecognized system prompt in test")
	}
	return &types.ChatResponse{Content: content, Model: "fake-model"}, nil
}

func pop(queue []string, calls *int) string {
	i := *calls
	if i >= len(queue) {
		i = len(queue) - 1
	}
	*calls++
	return queue[i]
}

func (p *routedProvider) ListModels(_ context.Context) ([]types.ModelInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []types.ModelInfo{{ID: "fake-model", Provider: "fake"}}, nil
}

func (p *routedProvider) Name() string  { return "fake" }
func (p *routedProvider) Model() string { return "fake-model" }

type fixture struct {
	orch     *Orchestrator
	sessions *sessionstore.Store
	content  *contentstore.Store
	audit    *audit.Log
	cfg      config.Config
}

func newFixture(t *testing.T, tune ...func(*config.Config)) *fixture {
	t.Helper()
	dataDir := t.TempDir()

	auditLog, err := audit.New(dataDir)
	require.NoError(t, err)
	content, err := contentstore.New(dataDir, auditLog)
	require.NoError(t, err)
	require.NoError(t, content.SeedDefaults())
	sessions, err := sessionstore.New(dataDir)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.DataDir = dataDir
	for _, fn := range tune {
		fn(&cfg)
	}

	policy := llm.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2, AttemptTimeout: time.Second}
	classifier := classify.NewService(content, policy, cfg.SummarizationThreshold)
	clarifier := clarify.NewService(content, policy, cfg.SoftLimitQuestions)

	return &fixture{
		orch:     New(cfg, sessions, content, auditLog, classifier, clarifier),
		sessions: sessions,
		content:  content,
		audit:    auditLog,
		cfg:      cfg,
	}
}

func proposal(category string, confidence float64) string {
	return `{"category": "` + category + `", "confidence": ` +
		strconv.FormatFloat(confidence, 'f', -1, 64) + `, "rationale": "test rationale"}`
}

func questions(qs ...string) string {
	quoted := make([]string, len(qs))
	for i, q := range qs {
		quoted[i] = strconv.Quote(q)
	}
	return `{"shouldClarify": true, "questions": [` + strings.Join(quoted, ", ") + `]}`
}
