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

//go:build integration

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/transforma-labs/transforma/pkg/orchestrator"
	"github.com/transforma-labs/transforma/pkg/sessionstore"
	"github.com/transforma-labs/transforma/pkg/types"
)

// harness wires the whole pipeline over a throwaway data directory,
// exactly as the CLI does, minus the real LLM.
type harness struct {
	cfg      config.Config
	audit    *audit.Log
	content  *contentstore.Store
	sessions *sessionstore.Store
	orch     *orchestrator.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return harnessOver(t, t.TempDir())
}

// harnessOver builds the stack over an existing data directory, which is
// how a process restart looks to the stores.
func harnessOver(t *testing.T, dataDir string) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = dataDir
	require.NoError(t, cfg.Validate())

	auditLog, err := audit.New(cfg.DataDir)
	require.NoError(t, err)
	content, err := contentstore.New(cfg.DataDir, auditLog)
	require.NoError(t, err)
	require.NoError(t, content.SeedDefaults())
	sessions, err := sessionstore.New(cfg.DataDir)
	require.NoError(t, err)

	policy := llm.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 2, AttemptTimeout: time.Second}
	classifier := classify.NewService(content, policy, cfg.SummarizationThreshold)
	clarifier := clarify.NewService(content, policy, cfg.SoftLimitQuestions)

	return &harness{
		cfg:      cfg,
		audit:    auditLog,
		content:  content,
		sessions: sessions,
		orch:     orchestrator.New(cfg, sessions, content, auditLog, classifier, clarifier),
	}
}

// scriptedProvider dispatches on the system prompt to serve the right
// canned response for classification, clarification, and attribute
// extraction calls. Each queue repeats its last element once drained.
type scriptedProvider struct {
	classifyQ []string
	clarifyQ  []string
	extractQ  []string
}

func (p *scriptedProvider) Chat(_ context.Context, messages []types.Message) (*types.ChatResponse, error) {
	system := ""
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			break
		}
	}
	var content string
	switch {
	case strings.Contains(system, "Extract structured attributes"):
		content = pop(&p.extractQ, "{}")
	case strings.Contains(system, "interviewing"):
		content = pop(&p.clarifyQ, `{"questions": [], "shouldClarify": false}`)
	default:
		content = pop(&p.classifyQ, "")
	}
	return &types.ChatResponse{
		Content: content,
		Model:   "scripted-model",
		Usage:   types.Usage{PromptTokens: 40, CompletionTokens: 40, TotalTokens: 80},
	}, nil
}

func (p *scriptedProvider) ListModels(_ context.Context) ([]types.ModelInfo, error) {
	return []types.ModelInfo{{ID: "scripted-model", Provider: "scripted"}}, nil
}
func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func sweepOnce(t *testing.T, h *harness) {
	t.Helper()
	sweeper := sessionstore.NewSweeper(h.sessions, h.cfg.SessionTimeout, h.cfg.SweepInterval, nil)
	sweeper.Sweep(context.Background())
}

func pop(q *[]string, fallback string) string {
	if len(*q) == 0 {
		return fallback
	}
	head := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return head
}

func proposalJSON(category string, confidence float64) string {
	return fmt.Sprintf(`{
		"category": %q,
		"confidence": %s,
		"rationale": "scripted rationale",
		"categoryProgression": "",
		"futureOpportunities": ""
	}`, category, strconv.FormatFloat(confidence, 'f', -1, 64))
}

func questionsJSON(qs ...string) string {
	payload := map[string]any{"questions": qs, "shouldClarify": true}
	data, _ := json.Marshal(payload)
	return string(data)
}

// richDescription clears the 50-word and completeness gates.
const richDescription = `Every morning the accounts payable team of four clerks downloads vendor
invoices from the supplier portal, retypes the header fields into SAP, checks
the totals against the purchase order, and files the PDF on a shared drive.
They handle roughly two hundred invoices per day. The work follows a fixed
checklist with no judgment calls, but the manual rekeying causes frequent
typos and the backlog grows every quarter.`
