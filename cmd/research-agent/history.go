// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/agent"
	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage completed research runs (list, show, search, import, clear)",
	Long: `History manages the local SQLite database of completed research runs.
Use subcommands to list recent runs, show one in full, search past answers,
import saved outcome files, or clear the database.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent research runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := history.NewStore(historyConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistoryList(records, jsonOutput)
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one research run in full, including its sources",
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one research ID (see history list)")
	}

	store, err := history.NewStore(historyConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	outcome := types.ResearchOutcome{
		AnswerText:  rec.Answer,
		Sources:     rec.Sources,
		QueriesUsed: rec.QueriesUsed,
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Fprintf(os.Stdout, "ID:      %s\n", rec.ID)
	fmt.Fprintf(os.Stdout, "Query:   %s\n", rec.Query)
	fmt.Fprintf(os.Stdout, "Created: %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	agent.FormatText(outcome, os.Stdout)
	return nil
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search [text...]",
	Short: "Full-text search over past queries and answers",
	RunE:  runHistorySearch,
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide search text, e.g. history search perovskite")
	}

	store, err := history.NewStore(historyConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.SearchHistory(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistoryList(records, jsonOutput)
}

// --- import subcommand ---

var historyImportCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import saved outcome YAML files into the history database",
	Long: `Import reads outcome files written by research --save and records them
in the history database, so runs exported on another machine become
searchable here.`,
	RunE: runHistoryImport,
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more outcome files to import")
	}

	store, err := history.NewStore(historyConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range args {
		of, err := agent.ReadOutcomeFile(path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		rec, err := store.Save(context.Background(), of.Query, of.Outcome)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "Imported %s as %s\n", path, rec.ID)
	}
	return nil
}

// --- clear subcommand ---

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored research run",
	RunE:  runHistoryClear,
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := history.NewStore(historyConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return err
	}
	if err := store.Clear(context.Background()); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Cleared %d research record(s)\n", n)
	return nil
}

// --- shared helpers ---

func historyConfig(cmd *cobra.Command) types.HistoryConfig {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("history.data_dir")
	}
	return types.HistoryConfig{
		DataDir: dataDir,
		MaxList: viper.GetInt("history.max_list"),
	}
}

func formatHistoryList(records []history.Research, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No research records found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-16s  %s\n", "ID", "Created", "Query")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, r := range records {
		query := r.Query
		if len(query) > 54 {
			query = query[:51] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-16s  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), query)
	}

	fmt.Fprintf(os.Stdout, "\n%d research record(s)\n", len(records))
	return nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("data-dir", "", "directory holding the history database (default from config)")

	historyListCmd.Flags().Int("limit", 0, "maximum records to list (0 = use default)")
	historyListCmd.Flags().Bool("json", false, "output records as JSON")

	historyShowCmd.Flags().Bool("json", false, "output the record as JSON")

	historySearchCmd.Flags().Int("limit", 0, "maximum records to return (0 = use default)")
	historySearchCmd.Flags().Bool("json", false, "output records as JSON")

	// Wire subcommands.
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyClearCmd)

	rootCmd.AddCommand(historyCmd)
}
