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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	submitSubject     string
	submitDescription string
	submitFile        string
	submitForce       bool
)

var submitCmd = &cobra.Command{
	Use:     "submit",
	Aliases: []string{"classify"},
	Short:   "Submit a process description for classification",
	Long: `Submit starts a new classification session. Depending on the model's
confidence and the completeness of the description, the result is either
an immediate classification, a set of clarification questions to answer
with "transforma clarify", or a referral to manual review.`,
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitSubject, "subject", "", "short label for the process (metadata only)")
	submitCmd.Flags().StringVar(&submitDescription, "description", "", "the process description")
	submitCmd.Flags().StringVar(&submitFile, "file", "", "read the description from a file instead")
	submitCmd.Flags().BoolVar(&submitForce, "force", false, "classify immediately, skipping clarification")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	description := submitDescription
	if submitFile != "" {
		data, err := os.ReadFile(submitFile)
		if err != nil {
			return fmt.Errorf("failed to read description file: %w", err)
		}
		description = string(data)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	provider, err := buildProvider(cmd.Context())
	if err != nil {
		return err
	}

	outcome, err := a.orch.Submit(cmd.Context(), provider, userFlag, submitSubject, description, submitForce)
	if err != nil {
		return err
	}
	printOutcome(outcome)
	return nil
}
