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
	"time"

	"github.com/spf13/cobra"

	"github.com/transforma-labs/transforma/pkg/audit"
)

var (
	auditDate    string
	auditSession string
	auditDays    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Audit prints entries from the append-only audit log, either for one
day (--date, defaults to today) or for one session (--session).`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditDate, "date", "", "day to query, YYYY-MM-DD (default today)")
	auditCmd.Flags().StringVar(&auditSession, "session", "", "session id to query instead of a date")
	auditCmd.Flags().IntVar(&auditDays, "days", 30, "how many days back a session query scans")
}

func runAudit(_ *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	var entries []*audit.Entry
	if auditSession != "" {
		entries, err = a.audit.QueryBySession(auditSession, auditDays)
	} else {
		date := time.Now()
		if auditDate != "" {
			date, err = time.Parse("2006-01-02", auditDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", auditDate, err)
			}
		}
		entries, err = a.audit.QueryByDate(date)
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := printJSON(e); err != nil {
			return err
		}
	}
	return nil
}
