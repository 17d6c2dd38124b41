// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/internal/issuestore"
	"github.com/pdiddy/issue-digest/internal/pipeline"
	"github.com/pdiddy/issue-digest/internal/server"
	"github.com/pdiddy/issue-digest/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the summary engine over HTTP",
	Long: `Serve exposes the engine's HTTP surface: issue listing, synchronous and
streaming digest generation (SSE), persisted digest retrieval, and prompt
preview. See docs/ARCHITECTURE § HTTP Surface for the routes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	store, err := issuestore.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := pipelineConfig(cmd)
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: place it in .secrets/anthropic-api-key or set pipeline.api_key")
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("server.addr")
	}

	orch := pipeline.New(ai.NewClaudeBackend(cfg.AIConfig, nil), cfg)
	srv := server.New(store, orch, types.ServerConfig{Addr: addr})

	fmt.Printf("issue-digest %s serving on %s\n", version, addrOrDefault(addr))
	return srv.Run()
}

func addrOrDefault(addr string) string {
	if addr == "" {
		return ":8080"
	}
	return addr
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("model", "", "AI model identifier")
	serveCmd.Flags().Int("concurrency", 0, "max in-flight extraction calls")

	rootCmd.AddCommand(serveCmd)
}
