package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ganot/forge-registry/internal/app"
	"github.com/ganot/forge-registry/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print a per-task report",
	Long: `Run the scan tasks once (refresh, mentions, contributors, events,
website, backfill) within the time budget.

With --full-reset the mention counts are rebuilt from the message archive
instead of reading new feed entries.

Example:
  $ forge scan --budget 30s
  refresh       ran    3 changes  (applied)
  mentions      noop
  ...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fullReset, _ := cmd.Flags().GetBool("full-reset")
		budget, _ := cmd.Flags().GetDuration("budget")
		if budget <= 0 {
			budget = cfg.Scan.Budget
		}

		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), budget)
		defer cancel()
		report := a.Scanner.Run(ctx, scan.RunOptions{FullReset: fullReset, Budget: budget})
		printReport(os.Stdout, report)
		if report.Failed() {
			return fmt.Errorf("one or more scan tasks failed")
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().Bool("full-reset", false, "Recount all mentions from the message archive")
	scanCmd.Flags().Duration("budget", 0, "Time budget for the run (defaults to scan.budget)")
	rootCmd.AddCommand(scanCmd)
}

func printReport(w io.Writer, report scan.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	title := "=== Scan ==="
	if report.FullReset {
		title = "=== Scan (full reset) ==="
	}
	fmt.Fprintf(w, "\n%s\n", cyan(title))
	fmt.Fprintf(w, "Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %v\n\n", report.Duration.Round(time.Millisecond))

	for _, t := range report.Tasks {
		outcome := fmt.Sprintf("%-20s", t.Outcome)
		switch t.Outcome {
		case scan.OutcomeRan:
			outcome = green(outcome)
		case scan.OutcomeSkipped:
			outcome = yellow(outcome)
		case scan.OutcomeFailed:
			outcome = red(outcome)
		default:
			outcome = gray(outcome)
		}

		line := fmt.Sprintf("  %-13s %s", t.Task, outcome)
		if t.Changes > 0 {
			line += fmt.Sprintf(" %d changes", t.Changes)
		}
		if t.Save != "" {
			line += gray(fmt.Sprintf(" (%s)", t.Save))
		}
		if t.Partial {
			line += yellow(" partial")
		}
		if t.Err != nil {
			line += red(fmt.Sprintf(" %v", t.Err))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}
