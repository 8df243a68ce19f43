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

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the configured provider accepts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		provider, err := buildProvider(cmd.Context())
		if err != nil {
			return err
		}
		models, err := a.orch.ListModels(cmd.Context(), provider)
		if err != nil {
			return err
		}
		for _, m := range models {
			if m.Name != "" {
				fmt.Printf("%-55s %s\n", m.ID, m.Name)
				continue
			}
			fmt.Println(m.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
