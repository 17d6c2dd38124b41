// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/internal/citation"
	"github.com/pdiddy/issue-digest/internal/issuestore"
	"github.com/pdiddy/issue-digest/internal/pipeline"
	"github.com/pdiddy/issue-digest/pkg/types"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <scraper-key> <issue-id>",
	Short: "Generate a research digest for one cached issue",
	Long: `Summarize runs the full pipeline for one issue: per-article structured
extraction, citation indexing, aggregate statistics, and a synthesized
narrative. The result is persisted and printed.

With --user the digest is stored in a per-viewer slot; otherwise it replaces
the issue's shared digest.`,
	Args: cobra.ExactArgs(2),
	RunE: runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	scraperKey, issueID := args[0], args[1]
	ctx := context.Background()

	store, err := issuestore.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetIssue(ctx, scraperKey, issueID)
	if err != nil {
		return err
	}

	// --cached prints the persisted digest without touching the model.
	if cached, _ := cmd.Flags().GetBool("cached"); cached {
		stored, err := store.GetSummary(ctx, scraperKey, issueID, userIDFlag(cmd))
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stored)
		}
		printResult(rec, &stored.PipelineResult)
		return nil
	}

	docs, err := store.Documents(ctx, scraperKey, issueID)
	if err != nil {
		return err
	}

	cfg := pipelineConfig(cmd)
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: place it in .secrets/anthropic-api-key or set pipeline.api_key")
	}

	customPrompt, _ := cmd.Flags().GetString("prompt")
	fieldContext, _ := cmd.Flags().GetString("field-context")
	quiet, _ := cmd.Flags().GetBool("quiet")

	orch := pipeline.New(ai.NewClaudeBackend(cfg.AIConfig, nil), cfg)

	req := pipeline.Request{
		Documents:    docs,
		Journal:      rec.Info.Journal,
		Issue:        rec.Info,
		CustomPrompt: customPrompt,
		FieldContext: fieldContext,
	}

	var result *types.PipelineResult
	if quiet {
		result, err = orch.Run(ctx, req)
		if err != nil {
			return err
		}
	} else {
		result, err = runWithProgress(ctx, orch, req)
		if err != nil {
			return err
		}
	}

	if err := store.SaveSummary(ctx, scraperKey, issueID, userIDFlag(cmd), result); err != nil {
		log.Printf("persisting summary: %v", err)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(rec, result)
	return nil
}

// runWithProgress consumes the streaming entry point so extraction progress
// shows up on stderr as documents complete.
func runWithProgress(ctx context.Context, orch *pipeline.Orchestrator, req pipeline.Request) (*types.PipelineResult, error) {
	var result *types.PipelineResult
	var runErr error

	for ev := range orch.RunStream(ctx, req) {
		switch data := ev.Data.(type) {
		case pipeline.StartData:
			fmt.Fprintf(os.Stderr, "Extracting %d articles...\n", data.Total)
		case pipeline.ProgressData:
			fmt.Fprintf(os.Stderr, "  [%d/%d] %s\n", data.Current, data.Total, data.PaperTitle)
		case pipeline.CompleteData:
			result = data.Result
		case pipeline.ErrorData:
			runErr = fmt.Errorf("%s", data.Message)
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

func printResult(rec *issuestore.IssueRecord, result *types.PipelineResult) {
	fmt.Printf("%s, %s\n\n", rec.Info.Journal, rec.Info.String())
	fmt.Println(result.Summary)

	fmt.Printf("\nReferences:\n")
	for _, num := range citation.Numbers(result.CitationMap) {
		ref := result.CitationMap[num]
		fmt.Printf("  [%s] %s\n", num, ref.Title)
	}

	if len(result.FailedPapers) > 0 {
		fmt.Printf("\n%d article(s) failed extraction:\n", len(result.FailedPapers))
		for _, f := range result.FailedPapers {
			fmt.Printf("  - %s: %s\n", f.Title, f.Reason)
		}
	}

	stats := result.Statistics
	fmt.Printf("\n%d papers", stats.PaperCount)
	if stats.PapersWithSampleSize > 0 {
		fmt.Printf(", total sample size %d across %d", stats.TotalSampleSize, stats.PapersWithSampleSize)
	}
	fmt.Printf(", %d key findings\n", stats.KeyFindingCount)

	if len(stats.StudyTypes) > 0 {
		kinds := make([]string, 0, len(stats.StudyTypes))
		for st := range stats.StudyTypes {
			kinds = append(kinds, string(st))
		}
		sort.Strings(kinds)
		fmt.Printf("Study types:")
		for _, st := range kinds {
			fmt.Printf(" %s=%d", st, stats.StudyTypes[types.StudyType(st)])
		}
		fmt.Println()
	}

	fmt.Printf("Model: %s  Tokens: %d extraction + %d synthesis  Est. cost: $%.4f\n",
		result.ModelUsed, result.TokensExtraction, result.TokensSynthesis, result.CostEstimate)
}

func init() {
	summarizeCmd.Flags().String("model", "", "AI model identifier")
	summarizeCmd.Flags().Int("concurrency", 0, "max in-flight extraction calls")
	summarizeCmd.Flags().String("user", "", "store the digest in this viewer's slot instead of the shared slot")
	summarizeCmd.Flags().String("prompt", "", "replace the default synthesis instruction")
	summarizeCmd.Flags().String("field-context", "", "research-field hint for the prompts")
	summarizeCmd.Flags().Bool("cached", false, "print the persisted digest instead of generating one")
	summarizeCmd.Flags().Bool("quiet", false, "suppress progress output")
	summarizeCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(summarizeCmd)
}
