// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/issue-digest/internal/issuestore"
	"github.com/pdiddy/issue-digest/internal/synthesize"
)

var promptCmd = &cobra.Command{
	Use:   "prompt <scraper-key> <issue-id>",
	Short: "Print the default synthesis prompt for an issue",
	Long: `Prompt renders the synthesis instruction a summarize run would use for
the issue, without making any model call. Useful as a starting point for a
custom --prompt.`,
	Args: cobra.ExactArgs(2),
	RunE: runPrompt,
}

func runPrompt(cmd *cobra.Command, args []string) error {
	store, err := issuestore.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := store.GetIssue(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	docs, err := store.Documents(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fieldContext, _ := cmd.Flags().GetString("field-context")
	fmt.Println(synthesize.DefaultSynthesisPrompt(rec.Info.Journal, rec.Info, len(docs), fieldContext))
	return nil
}

func init() {
	promptCmd.Flags().String("field-context", "", "research-field hint for the prompt")

	rootCmd.AddCommand(promptCmd)
}
