// Package embedded provides the default prompts and decision matrix
// compiled into the transforma binary, so a fresh data directory is
// immediately usable without hand-seeding content.
package embedded

import (
	_ "embed"
)

// Prompt artifact ids seeded on first run.
const (
	PromptClassification      = "classification"
	PromptClarification       = "clarification"
	PromptAttributeExtraction = "attribute-extraction"
	PromptMatrixGeneration    = "matrix-generation"
)

//go:embed prompts/classification.txt
var ClassificationPrompt string

//go:embed prompts/clarification.txt
var ClarificationPrompt string

//go:embed prompts/attribute-extraction.txt
var AttributeExtractionPrompt string

//go:embed prompts/matrix-generation.txt
var MatrixGenerationPrompt string

//go:embed decision-matrix.json
var DecisionMatrixJSON []byte

// DefaultPrompts maps prompt ids to their embedded content.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptClassification:      ClassificationPrompt,
		PromptClarification:       ClarificationPrompt,
		PromptAttributeExtraction: AttributeExtractionPrompt,
		PromptMatrixGeneration:    MatrixGenerationPrompt,
	}
}
