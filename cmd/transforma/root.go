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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/transforma-labs/transforma/internal/log"
	"github.com/transforma-labs/transforma/internal/version"
	"github.com/transforma-labs/transforma/pkg/audit"
	"github.com/transforma-labs/transforma/pkg/clarify"
	"github.com/transforma-labs/transforma/pkg/classify"
	"github.com/transforma-labs/transforma/pkg/config"
	"github.com/transforma-labs/transforma/pkg/contentstore"
	"github.com/transforma-labs/transforma/pkg/llm"
	"github.com/transforma-labs/transforma/pkg/llm/factory"
	"github.com/transforma-labs/transforma/pkg/matrix"
	"github.com/transforma-labs/transforma/pkg/orchestrator"
	"github.com/transforma-labs/transforma/pkg/sessionstore"
	"github.com/transforma-labs/transforma/pkg/types"
)

var (
	cfgFile      string
	dataDirFlag  string
	providerFlag string
	modelFlag    string
	regionFlag   string
	profileFlag  string
	userFlag     string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:     "transforma",
	Short:   "Classify business processes into transformation categories",
	Long: `Transforma classifies business process descriptions into one of six
transformation categories (Eliminate, Simplify, Digitise, RPA, AI Agent,
Agentic AI), running a clarification interview when the description is
too thin to classify confidently.`,
	Version:       version.Get(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger, err := zap.NewDevelopment()
			if err == nil {
				log.SetLogger(logger)
			}
			return
		}
		prod, err := zap.NewProduction()
		if err == nil {
			log.SetLogger(prod)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./transforma.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default: $DATA_DIR or ./data)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "openai", "LLM provider: openai or bedrock")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "model id (provider default when empty)")
	rootCmd.PersistentFlags().StringVar(&regionFlag, "region", "", "AWS region for bedrock")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "inference-profile", "", "bedrock inference profile prefix (us, eu, apac)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "cli", "user id recorded on sessions and audit entries")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadConfig() (config.Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("transforma")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.transforma")
	}
	v.SetEnvPrefix("TRANSFORMA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return config.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if dataDirFlag != "" {
		v.Set("data_dir", dataDirFlag)
	}
	return config.Load(v)
}

// app bundles the wired stores and services for one CLI invocation.
type app struct {
	cfg      config.Config
	audit    *audit.Log
	content  *contentstore.Store
	sessions *sessionstore.Store
	orch     *orchestrator.Orchestrator
	policy   llm.RetryPolicy
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	auditLog, err := audit.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	content, err := contentstore.New(cfg.DataDir, auditLog)
	if err != nil {
		return nil, err
	}
	if err := content.SeedDefaults(); err != nil {
		return nil, err
	}
	sessions, err := sessionstore.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	policy := llm.DefaultRetryPolicy()
	classifier := classify.NewService(content, policy, cfg.SummarizationThreshold)
	clarifier := clarify.NewService(content, policy, cfg.SoftLimitQuestions)

	return &app{
		cfg:      cfg,
		audit:    auditLog,
		content:  content,
		sessions: sessions,
		orch:     orchestrator.New(cfg, sessions, content, auditLog, classifier, clarifier),
		policy:   policy,
	}, nil
}

// buildProvider constructs the provider for this invocation. The CLI
// is the trust boundary: credentials come from flags and environment
// here and are handed to the services explicitly.
func buildProvider(ctx context.Context) (types.Provider, error) {
	region := regionFlag
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	return factory.New(ctx, types.ProviderConfig{
		Provider:         providerFlag,
		Model:            modelFlag,
		APIKey:           os.Getenv("OPENAI_API_KEY"),
		Region:           region,
		AccessKeyID:      os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:     os.Getenv("AWS_SESSION_TOKEN"),
		InferenceProfile: profileFlag,
	})
}

func newGenerator(a *app) *matrix.Generator {
	return matrix.NewGenerator(a.content, a.policy)
}
