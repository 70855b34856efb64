package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/engine"
	"github.com/roach88/sieve/internal/harness"
	"github.com/roach88/sieve/internal/pipeline"
	"github.com/roach88/sieve/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Data        string
	Database    string
	Pipeline    string
	Parallelism int

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunResult is the JSON payload of a run.
type RunResult struct {
	Pipeline  string                    `json:"pipeline"`
	RunID     string                    `json:"run_id"`
	Seq       int64                     `json:"seq"`
	Computed  int                       `json:"computed"`
	CacheHits int                       `json:"cache_hits"`
	Entities  []string                  `json:"entities"`
	Outputs   map[string]harness.Matrix `json:"outputs"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <pipeline-dir>",
		Short: "Evaluate a pipeline over a data file",
		Long: `Compile a pipeline and evaluate its outputs over the columns in a YAML
data file. The data file has the scenario layout without expectations:

  entities: [A, B, C]
  columns:
    volume:
      - [10, 20, 30]
  mask:            # optional, one row per output period
    - [true, true, false]

With --db, computed terms are cached in a SQLite database and each run is
appended to its run log; a repeated run is served from the cache.

Examples:
  sieve run ./pipelines/screen --data prices.yaml
  sieve run ./pipelines/liquidity --pipeline staged --data prices.yaml --db ./sieve.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "path to YAML data file (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite result cache (default: in-memory)")
	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "pipeline name (required when the directory defines several)")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 0, "max concurrent term evaluations per level (default: GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runPipeline(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	data, err := harness.LoadData(opts.Data)
	if err != nil {
		return fail(formatter, ExitCommandError, "failed to load data", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fail(formatter, ExitCommandError, "failed to resolve pipeline directory", err)
	}
	data.Pipeline = abs
	data.PipelineName = opts.Pipeline

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	logger.Debug("opening result store", "path", dbPath, "data", opts.Data, "pipeline_dir", abs)
	st, err := store.Open(dbPath)
	if err != nil {
		return fail(formatter, ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	h := harness.New(st,
		harness.WithLogger(logger),
		harness.WithRunIDGenerator(runIDs),
		harness.WithParallelism(opts.Parallelism),
	)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := h.Execute(ctx, data)
	if err != nil {
		return fail(formatter, runExitCode(err), "run failed", err)
	}

	if formatter.Format == "json" {
		payload := RunResult{
			Pipeline:  result.Pipeline,
			RunID:     result.RunID,
			Seq:       result.Seq,
			Computed:  result.Computed,
			CacheHits: result.CacheHits,
			Entities:  data.Entities,
			Outputs:   make(map[string]harness.Matrix, len(result.Outputs)),
		}
		for name, a := range result.Outputs {
			payload.Outputs[name] = harness.Values(a)
		}
		return formatter.encode(CLIResponse{Status: "ok", Data: payload, RunID: result.RunID})
	}

	name := strings.TrimSuffix(filepath.Base(opts.Data), filepath.Ext(opts.Data))
	_, err = formatter.Writer.Write(harness.Render(name, data.Entities, result))
	return err
}

// runExitCode reports definition and evaluation failures as ExitFailure and
// everything else (unreadable files, bad data) as ExitCommandError.
func runExitCode(err error) int {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) || engine.Code(err) != "" {
		return ExitFailure
	}
	return ExitCommandError
}

