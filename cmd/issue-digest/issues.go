// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/issue-digest/internal/issuestore"
	"github.com/pdiddy/issue-digest/pkg/types"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Manage the issue cache (import, list, show)",
	Long: `Issues manages the local SQLite cache of journal issues and their
articles. Use subcommands to import scraper output, list cached issues, or
inspect one issue's articles.`,
}

// --- import subcommand ---

var issuesImportCmd = &cobra.Command{
	Use:   "import <issue.yaml>...",
	Short: "Import scraper-produced issue files into the cache",
	Long: `Import reads issue YAML files produced by a scraper and upserts them
into the cache. Re-importing an issue replaces its article set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIssuesImport,
}

func runIssuesImport(cmd *cobra.Command, args []string) error {
	store, err := issuestore.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var file types.IssueFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		if err := store.ImportIssue(context.Background(), file); err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Printf("Imported %s/%s (%d articles)\n", file.ScraperKey, file.IssueID, len(file.Articles))
	}
	return nil
}

// --- list subcommand ---

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached issues",
	RunE:  runIssuesList,
}

func runIssuesList(cmd *cobra.Command, args []string) error {
	store, err := issuestore.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListIssues(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No cached issues.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-14s  %-40s  %-16s  %-8s  %s\n",
		"Scraper", "Issue", "Journal", "Vol/No (Year)", "Articles", "Fetched")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 104))

	for _, rec := range records {
		journal := rec.Info.Journal
		if len(journal) > 40 {
			journal = journal[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-14s  %-40s  %-16s  %-8d  %s\n",
			rec.ScraperKey, rec.IssueID, journal, rec.Info.String(),
			rec.ArticleCount, formatTimestamp(rec.FetchedAt))
	}

	fmt.Fprintf(os.Stdout, "\n%d issues\n", len(records))
	return nil
}

// --- show subcommand ---

var issuesShowCmd = &cobra.Command{
	Use:   "show <scraper-key> <issue-id>",
	Short: "Show one cached issue and its extractable articles",
	Args:  cobra.ExactArgs(2),
	RunE:  runIssuesShow,
}

func runIssuesShow(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("%s, %s\n", rec.Info.Journal, rec.Info.String())
	fmt.Printf("Scraper: %s  Issue: %s  Fetched: %s\n", rec.ScraperKey, rec.IssueID, formatTimestamp(rec.FetchedAt))
	fmt.Printf("Articles: %d cached, %d with extractable text\n\n", rec.ArticleCount, len(docs))

	for i, doc := range docs {
		fmt.Printf("%2d. [%s] %s\n", i+1, doc.ID, doc.Title)
	}
	return nil
}

func init() {
	issuesListCmd.Flags().Bool("json", false, "output as JSON")

	issuesCmd.AddCommand(issuesImportCmd)
	issuesCmd.AddCommand(issuesListCmd)
	issuesCmd.AddCommand(issuesShowCmd)
	rootCmd.AddCommand(issuesCmd)
}
