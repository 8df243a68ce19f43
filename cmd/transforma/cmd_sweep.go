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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/transforma-labs/transforma/pkg/sessionstore"
)

var sweepWatch bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire sessions idle past the session timeout",
	Long: `Sweep marks pending and clarifying sessions that have been idle past
the configured session timeout as failed. With --watch it keeps
sweeping at the configured interval until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		sweeper := sessionstore.NewSweeper(a.sessions, a.cfg.SessionTimeout, a.cfg.SweepInterval, nil)

		if sweepWatch {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			// Operator edits to prompts or the matrix on disk take
			// effect without a restart while we hold the cache.
			go func() {
				if err := a.content.Watch(ctx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "content watcher stopped:", err)
				}
			}()
			fmt.Printf("Sweeping every %s (timeout %s); Ctrl-C to stop\n", a.cfg.SweepInterval, a.cfg.SessionTimeout)
			sweeper.Run(ctx)
			return nil
		}

		sweeper.Sweep(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().BoolVar(&sweepWatch, "watch", false, "keep sweeping until interrupted")
}
