package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Pipeline string // optional - filter to one pipeline
}

// RunsResult holds the run log listing.
type RunsResult struct {
	Runs  []store.Run `json:"runs"`
	Total int         `json:"total"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded in a result cache database, oldest first.

Each run shows its sequence number, run ID, pipeline, graph size, how many
terms were computed or served from the cache and the data fingerprint.

Examples:
  sieve runs --db ./sieve.db
  sieve runs --db ./sieve.db --pipeline screen --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "only list runs of this pipeline")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error("E005", fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return fail(formatter, ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	all, err := st.Runs(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, "failed to read run log", err)
	}

	result := RunsResult{Runs: []store.Run{}}
	for _, r := range all {
		if opts.Pipeline == "" || r.Pipeline == opts.Pipeline {
			result.Runs = append(result.Runs, r)
		}
	}
	result.Total = len(result.Runs)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range result.Runs {
		fmt.Fprintf(w, "#%d %s %s terms=%d computed=%d cache_hits=%d outputs=[%s]\n",
			r.Seq, r.ID, r.Pipeline, r.Terms, r.Computed, r.CacheHits, strings.Join(r.Outputs, " "))
		formatter.VerboseLog("  fingerprint %s", r.Fingerprint)
	}
	fmt.Fprintf(w, "\n%d run(s)\n", result.Total)
	return nil
}
