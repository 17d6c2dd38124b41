// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the issue-digest CLI.
// Implements: prd001-ingest, prd005-pipeline, prd006-service (CLI surface).
// See docs/ARCHITECTURE § Command Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/issue-digest/internal/secrets"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the issue-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "issue-digest",
	Short: "AI-generated research digests for journal issues",
	Long: `issue-digest turns one journal issue's articles into a structured research
digest: per-article extractions, a citation index, aggregate statistics, and a
synthesized narrative summary.

Seed the issue cache with the issues subcommand, generate digests with
summarize, or run serve to expose the engine over HTTP with streaming
progress.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./issue-digest.yaml or ~/.config/issue-digest/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for the issue database (default: data)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("issue-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "issue-digest"))
		}
	}

	viper.SetEnvPrefix("ISSUE_DIGEST")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// storeConfig resolves issue store settings from flags and config.
func storeConfig(cmd *cobra.Command) types.StoreConfig {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	return types.StoreConfig{DataDir: dataDir}
}

// pipelineConfig resolves pipeline settings from flags, config, and secrets.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("pipeline.model")
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = viper.GetInt("pipeline.concurrency")
	}

	order := types.CitationOrder(viper.GetString("pipeline.citation_order"))
	if order == "" {
		order = types.OrderInput
	}

	callTimeout := viper.GetDuration("pipeline.call_timeout")

	maxRetries := viper.GetInt("pipeline.max_retries")
	if !viper.IsSet("pipeline.max_retries") {
		maxRetries = 1
	}

	return types.PipelineConfig{
		AIConfig: types.AIConfig{
			Model:       model,
			APIKey:      secretDefault("anthropic-api-key", viper.GetString("pipeline.api_key")),
			CallTimeout: callTimeout,
			MaxRetries:  maxRetries,
			Pricing:     pricingConfig(),
		},
		Concurrency:   concurrency,
		CitationOrder: order,
		TopKeywords:   viper.GetInt("pipeline.top_keywords"),
	}
}

// pricingConfig reads the per-model pricing table from config. Missing or
// partial entries are fine; unpriced models estimate to zero.
func pricingConfig() map[string]types.ModelPricing {
	raw := viper.GetStringMap("pipeline.pricing")
	if len(raw) == 0 {
		return nil
	}
	pricing := make(map[string]types.ModelPricing, len(raw))
	for model := range raw {
		pricing[model] = types.ModelPricing{
			InputPerMTok:  viper.GetFloat64(fmt.Sprintf("pipeline.pricing.%s.input_per_mtok", model)),
			OutputPerMTok: viper.GetFloat64(fmt.Sprintf("pipeline.pricing.%s.output_per_mtok", model)),
		}
	}
	return pricing
}

// userIDFlag maps an empty --user flag to the shared summary slot.
func userIDFlag(cmd *cobra.Command) *string {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return nil
	}
	return &user
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
