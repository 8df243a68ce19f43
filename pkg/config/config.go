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

// Package config holds the tunables of the classification pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interview limits. These are defaults; every one of them is tunable
// via config file or environment.
const (
	// DefaultSoftLimitQuestions is the Q&A count at which the
	// clarification service warns and switches to single-question rounds.
	DefaultSoftLimitQuestions = 8

	// DefaultHardLimitQuestions is the Q&A count at which the interview
	// is force-stopped.
	DefaultHardLimitQuestions = 15

	// DefaultSummarizationThreshold is the Q&A count at which raw
	// conversation history is replaced by a compressed digest.
	DefaultSummarizationThreshold = 5

	// DefaultEmptyRoundThreshold is the number of consecutive
	// question-empty rounds that implies the LLM has given up.
	DefaultEmptyRoundThreshold = 2

	// DefaultSilentDetectionWindow is how many recent clarification
	// audit events loop detection inspects.
	DefaultSilentDetectionWindow = 3

	// DefaultSessionTimeout closes sessions idle longer than this.
	DefaultSessionTimeout = 2 * time.Hour

	// DefaultCompletenessThreshold is how many of the six key
	// information indicators must be present for the 0.95 auto-classify
	// gate to open.
	DefaultCompletenessThreshold = 4

	// DefaultAutoClassifyConfidence and DefaultManualReviewConfidence
	// bound the confidence routing bands.
	DefaultAutoClassifyConfidence = 0.95
	DefaultManualReviewConfidence = 0.60

	// DefaultMinDescriptionWords gates auto-classification on
	// description length.
	DefaultMinDescriptionWords = 50
)

// Config is the resolved pipeline configuration.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	SoftLimitQuestions     int `mapstructure:"soft_limit_questions"`
	HardLimitQuestions     int `mapstructure:"hard_limit_questions"`
	SummarizationThreshold int `mapstructure:"summarization_threshold"`
	EmptyRoundThreshold    int `mapstructure:"empty_round_threshold"`
	SilentDetectionWindow  int `mapstructure:"silent_detection_window"`
	CompletenessThreshold  int `mapstructure:"completeness_threshold"`
	MinDescriptionWords    int `mapstructure:"min_description_words"`

	AutoClassifyConfidence float64 `mapstructure:"auto_classify_confidence"`
	ManualReviewConfidence float64 `mapstructure:"manual_review_confidence"`

	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// Default returns the configuration with all tunables at their
// documented defaults. DataDir comes from DATA_DIR when set.
func Default() Config {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	return Config{
		DataDir:                dataDir,
		SoftLimitQuestions:     DefaultSoftLimitQuestions,
		HardLimitQuestions:     DefaultHardLimitQuestions,
		SummarizationThreshold: DefaultSummarizationThreshold,
		EmptyRoundThreshold:    DefaultEmptyRoundThreshold,
		SilentDetectionWindow:  DefaultSilentDetectionWindow,
		CompletenessThreshold:  DefaultCompletenessThreshold,
		MinDescriptionWords:    DefaultMinDescriptionWords,
		AutoClassifyConfidence: DefaultAutoClassifyConfidence,
		ManualReviewConfidence: DefaultManualReviewConfidence,
		SessionTimeout:         DefaultSessionTimeout,
		SweepInterval:          15 * time.Minute,
	}
}

// Load resolves the configuration from viper on top of the defaults.
// Keys follow the mapstructure tags; TRANSFORMA_ prefixed environment
// variables override file values.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()

	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("soft_limit_questions", cfg.SoftLimitQuestions)
	v.SetDefault("hard_limit_questions", cfg.HardLimitQuestions)
	v.SetDefault("summarization_threshold", cfg.SummarizationThreshold)
	v.SetDefault("empty_round_threshold", cfg.EmptyRoundThreshold)
	v.SetDefault("silent_detection_window", cfg.SilentDetectionWindow)
	v.SetDefault("completeness_threshold", cfg.CompletenessThreshold)
	v.SetDefault("min_description_words", cfg.MinDescriptionWords)
	v.SetDefault("auto_classify_confidence", cfg.AutoClassifyConfidence)
	v.SetDefault("manual_review_confidence", cfg.ManualReviewConfidence)
	v.SetDefault("session_timeout", cfg.SessionTimeout)
	v.SetDefault("sweep_interval", cfg.SweepInterval)

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.HardLimitQuestions <= 0 {
		return fmt.Errorf("hard_limit_questions must be positive, got %d", c.HardLimitQuestions)
	}
	if c.SoftLimitQuestions > c.HardLimitQuestions {
		return fmt.Errorf("soft_limit_questions %d exceeds hard_limit_questions %d",
			c.SoftLimitQuestions, c.HardLimitQuestions)
	}
	if c.EmptyRoundThreshold <= 0 {
		return fmt.Errorf("empty_round_threshold must be positive, got %d", c.EmptyRoundThreshold)
	}
	if c.SilentDetectionWindow < c.EmptyRoundThreshold {
		return fmt.Errorf("silent_detection_window %d is smaller than empty_round_threshold %d",
			c.SilentDetectionWindow, c.EmptyRoundThreshold)
	}
	if c.AutoClassifyConfidence <= c.ManualReviewConfidence {
		return fmt.Errorf("auto_classify_confidence %.2f must exceed manual_review_confidence %.2f",
			c.AutoClassifyConfidence, c.ManualReviewConfidence)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive, got %s", c.SessionTimeout)
	}
	return nil
}
