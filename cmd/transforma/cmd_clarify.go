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
	"github.com/spf13/cobra"
)

var (
	clarifyAnswers []string
	clarifyForce   bool
)

var clarifyCmd = &cobra.Command{
	Use:   "clarify <session-id>",
	Short: "Answer the pending clarification questions of a session",
	Long: `Clarify records answers to the questions of the most recent round, in
the order they were asked, and advances the session: another round of
questions, a classification, or manual review.`,
	Args: cobra.ExactArgs(1),
	RunE: runClarify,
}

func init() {
	rootCmd.AddCommand(clarifyCmd)
	clarifyCmd.Flags().StringArrayVar(&clarifyAnswers, "answer", nil, "answer to one question (repeat per question, in order)")
	clarifyCmd.Flags().BoolVar(&clarifyForce, "force", false, "classify with what is known after recording the answers")
}

func runClarify(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	provider, err := buildProvider(cmd.Context())
	if err != nil {
		return err
	}

	outcome, err := a.orch.Clarify(cmd.Context(), provider, args[0], clarifyAnswers, clarifyForce)
	if err != nil {
		return err
	}
	printOutcome(outcome)
	return nil
}
