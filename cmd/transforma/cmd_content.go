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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transforma-labs/transforma/pkg/matrix"
)

var promptCmd = &cobra.Command{
	Use:     "prompt",
	Aliases: []string{"prompts"},
	Short:   "Manage versioned LLM prompts",
}

var promptListCmd = &cobra.Command{
	Use:     "versions <prompt-id>",
	Aliases: []string{"list"},
	Short:   "List the stored versions of a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		versions, err := a.content.ListPromptVersions(args[0])
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	},
}

var promptVersion string

var promptShowCmd = &cobra.Command{
	Use:   "show <prompt-id>",
	Short: "Print a prompt (latest version unless --version is given)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if promptVersion != "" {
			content, err := a.content.GetPrompt(args[0], promptVersion)
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		}
		content, version, err := a.content.GetLatestPrompt(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "# version %s\n", version)
		fmt.Print(content)
		return nil
	},
}

var promptSaveFile string

var promptSaveCmd = &cobra.Command{
	Use:   "save <prompt-id>",
	Short: "Store a new prompt version from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(promptSaveFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		a, err := buildApp()
		if err != nil {
			return err
		}
		version, err := a.content.SavePrompt(args[0], string(data), userFlag, "")
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s version %s\n", args[0], version)
		return nil
	},
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Manage the decision matrix",
}

var matrixVersion string

var matrixShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the decision matrix (latest version unless --version is given)",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if matrixVersion != "" {
			data, err := a.content.GetMatrixVersion(matrixVersion)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		data, version, err := a.content.GetLatestMatrix()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "# version %s\n", version)
		fmt.Println(string(data))
		return nil
	},
}

var matrixVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the stored decision matrix versions",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		versions, err := a.content.ListMatrixVersions()
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	},
}

var matrixSaveFile string

var matrixSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store a new decision matrix version from a file",
	Long: `Save sanitizes the matrix before storing: malformed rules and
attributes are dropped with warnings, out-of-range values clamped. The
stored version is the sanitized canonical form.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		data, err := os.ReadFile(matrixSaveFile)
		if err != nil {
			return fmt.Errorf("failed to read matrix file: %w", err)
		}
		m, warnings, err := matrix.Sanitize(data)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if !m.Usable() {
			return fmt.Errorf("matrix has no usable attributes or rules after sanitization")
		}
		canonical, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		a, err := buildApp()
		if err != nil {
			return err
		}
		version, err := a.content.SaveMatrix(canonical, userFlag, "")
		if err != nil {
			return err
		}
		fmt.Printf("Saved decision matrix version %s (%d warnings)\n", version, len(warnings))
		return nil
	},
}

var (
	generateInstructions string
	generateSave         bool
)

var matrixGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft a decision matrix from natural-language instructions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		provider, err := buildProvider(cmd.Context())
		if err != nil {
			return err
		}
		data, _, warnings, err := newGenerator(a).Generate(cmd.Context(), provider, generateInstructions)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if generateSave {
			version, err := a.content.SaveMatrix(data, userFlag, "")
			if err != nil {
				return err
			}
			fmt.Printf("Saved generated matrix as version %s\n", version)
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd, matrixCmd)
	promptCmd.AddCommand(promptListCmd, promptShowCmd, promptSaveCmd)
	matrixCmd.AddCommand(matrixShowCmd, matrixVersionsCmd, matrixSaveCmd, matrixGenerateCmd)

	promptShowCmd.Flags().StringVar(&promptVersion, "version", "", "specific version to show")
	promptSaveCmd.Flags().StringVar(&promptSaveFile, "file", "", "file holding the prompt text")
	_ = promptSaveCmd.MarkFlagRequired("file")

	matrixShowCmd.Flags().StringVar(&matrixVersion, "version", "", "specific version to show")
	matrixSaveCmd.Flags().StringVar(&matrixSaveFile, "file", "", "file holding the matrix JSON")
	_ = matrixSaveCmd.MarkFlagRequired("file")

	matrixGenerateCmd.Flags().StringVar(&generateInstructions, "instructions", "", "what the matrix should express")
	matrixGenerateCmd.Flags().BoolVar(&generateSave, "save", false, "store the generated matrix as a new version")
	_ = matrixGenerateCmd.MarkFlagRequired("instructions")
}
