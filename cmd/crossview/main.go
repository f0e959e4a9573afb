// Command crossview is a one-shot CLI for inspecting a task store: run a
// single consistency pass over the standard views, or apply a filter and
// print the matching tasks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crossview/internal/db"
	"crossview/pkg/consistency"
	"crossview/pkg/engine"
	"crossview/pkg/filter"
	"crossview/pkg/task"
)

func main() {
	root := &cobra.Command{
		Use:           "crossview",
		Short:         "Inspect cross-view task consistency",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd(), newFilterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func connectEngine(ctx context.Context) (*engine.Engine, func(), error) {
	pool, err := db.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	store := task.NewPgStore(pool)
	return engine.New(store), pool.Close, nil
}

func newCheckCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one consistency pass over the standard views",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, closeFn, err := connectEngine(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			eng.Monitor().Start(engine.DefaultViews())
			eng.Monitor().Check(ctx)
			eng.Monitor().Stop()

			mismatches := eng.Mismatches("", 0)
			summary := eng.Summary()

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"summary":    summary,
					"mismatches": mismatches,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "status: %s (%s)\n", summary.Status, summary.Message)
			for _, m := range mismatches {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s: %s (views: %v)\n", m.Severity, m.Type, m.Message, m.AffectedViews)
			}
			if summary.Status == consistency.SeverityError {
				return fmt.Errorf("consistency check found errors")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON")
	return cmd
}

func newFilterCmd() *cobra.Command {
	var cfg filter.Config
	var smartView, timeFilter string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Apply a filter config and print matching tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, closeFn, err := connectEngine(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			cfg.SmartView = filter.SmartView(smartView)
			cfg.TimeFilter = filter.TimeFilter(timeFilter)

			res, err := eng.Query(ctx, cfg)
			if err != nil {
				return err
			}
			for _, t := range res.Tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s  %s\n", t.ID, t.Status, t.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d task(s)\n", len(res.Tasks))
			for _, warn := range res.Trace.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.ProjectID, "project", "", "filter by project ID")
	cmd.Flags().StringVar(&smartView, "smart-view", "", "smart view (today, week)")
	cmd.Flags().StringVar(&cfg.StatusFilter, "status", "", "filter by status")
	cmd.Flags().BoolVar(&cfg.HideDone, "hide-done", false, "hide done tasks")
	cmd.Flags().BoolVar(&cfg.IncludeInboxOnly, "inbox", false, "inbox tasks only")
	cmd.Flags().BoolVar(&cfg.IncludeCanvasOnly, "canvas", false, "canvas tasks only")
	cmd.Flags().StringVar(&timeFilter, "time", "", "time window (all, now, today, tomorrow, thisWeek, noDate)")
	return cmd
}
