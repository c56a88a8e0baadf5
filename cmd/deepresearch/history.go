package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deepresearch/report"
	"github.com/hupe1980/deepresearch/store"
)

const queryColumnWidth = 48

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded research runs",
		Long: `History lists past research runs recorded in the SQLite history
database, newest first.

Examples:
  # List the ten most recent runs
  deepresearch history

  # Show the full report of a run
  deepresearch history show 3f0c2a9e-...

  # Remove a run
  deepresearch history delete 3f0c2a9e-...`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}

	cmd.PersistentFlags().String("store-dir", "",
		"History database directory (default: XDG data dir)")
	cmd.Flags().IntP("limit", "l", 10, "Maximum number of runs to list (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	})

	return cmd
}

func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	dir, err := cmd.Flags().GetString("store-dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = store.DefaultDir()
	}

	st, err := store.Open(dir, store.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	return st, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runs, err := st.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No research runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDURATION\tQUERY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			statusLabel(r),
			r.Duration().Round(100*time.Millisecond),
			truncate(r.Query, queryColumnWidth),
		)
	}

	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	run, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run:     %s\n", run.ID)
	fmt.Fprintf(out, "Query:   %s\n", run.Query)
	fmt.Fprintf(out, "Status:  %s\n", statusLabel(run))
	fmt.Fprintf(out, "Started: %s (%s)\n", run.StartedAt.Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
	if run.Error != "" {
		fmt.Fprintf(out, "Error:   %s\n", run.Error)
	}

	fmt.Fprintln(out, "\nResearch Plan:")
	for i, step := range run.Plan {
		fmt.Fprintf(out, "%d. %s\n", i+1, step)
	}

	fmt.Fprintln(out, "\nSources Retrieved:")
	for i, s := range run.Sources {
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, s.Title, s.Source)
		fmt.Fprintf(out, "   URL: %s\n", s.URL)
	}

	if run.Report != "" {
		fmt.Fprintln(out, "\nFinal Report:")
		fmt.Fprintln(out, run.Report)
	}
	fmt.Fprintln(out, report.Separator)

	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return fmt.Errorf("no run with id %q", args[0])
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])

	return nil
}

func statusLabel(r store.Run) string {
	if len(r.Fallbacks) > 0 {
		return fmt.Sprintf("%s (fallback: %s)", r.Status, strings.Join(r.Fallbacks, ","))
	}
	return string(r.Status)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
