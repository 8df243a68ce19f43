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

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage classification sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		sessions, err := a.orch.ListSessions()
		if err != nil {
			return err
		}
		for _, s := range sessions {
			category := "-"
			if s.Classification != nil {
				category = string(s.Classification.Category)
			}
			fmt.Printf("%s  %-22s  %-12s  %s\n", s.SessionID, s.Status, category, s.Subject)
		}
		return nil
	},
}

var sessionGetCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Print the full session document",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		session, err := a.orch.GetSession(args[0])
		if err != nil {
			return err
		}
		return printJSON(session)
	},
}

var (
	reviewApprove  bool
	reviewReject   bool
	reviewNotes    string
	reviewCategory string
)

var sessionReviewCmd = &cobra.Command{
	Use:   "review <session-id>",
	Short: "Record an admin review verdict",
	Long: `Review resolves a session waiting in manual_review or
pending_admin_review. Approving completes the session; rejecting sends
it back to manual review. An optional --category overrides the
classification.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if reviewApprove == reviewReject {
			return fmt.Errorf("pass exactly one of --approve or --reject")
		}
		a, err := buildApp()
		if err != nil {
			return err
		}
		session, err := a.orch.RecordAdminReview(args[0], userFlag, reviewApprove, reviewNotes, reviewCategory)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s is now %s\n", session.SessionID, session.Status)
		printClassification(session.Classification)
		return nil
	},
}

var sessionReclassifyCmd = &cobra.Command{
	Use:   "reclassify <session-id>",
	Short: "Re-run classification against the current prompt and matrix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		provider, err := buildProvider(cmd.Context())
		if err != nil {
			return err
		}
		outcome, err := a.orch.Reclassify(cmd.Context(), provider, args[0], userFlag)
		if err != nil {
			return err
		}
		printOutcome(outcome)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionGetCmd, sessionReviewCmd, sessionReclassifyCmd)

	sessionReviewCmd.Flags().BoolVar(&reviewApprove, "approve", false, "approve the classification")
	sessionReviewCmd.Flags().BoolVar(&reviewReject, "reject", false, "reject the classification")
	sessionReviewCmd.Flags().StringVar(&reviewNotes, "notes", "", "reviewer notes")
	sessionReviewCmd.Flags().StringVar(&reviewCategory, "category", "", "override category (e.g. rpa, ai_agent)")
}
