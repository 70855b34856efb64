package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/graph"
	"github.com/roach88/sieve/internal/pipeline"
	"github.com/roach88/sieve/internal/term"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Pipeline string
}

// GraphNode describes one term of a compiled graph.
type GraphNode struct {
	ID        string   `json:"id"`
	Names     []string `json:"names,omitempty"`
	Kind      string   `json:"kind"`
	DType     string   `json:"dtype"`
	Level     int      `json:"level"`
	Window    int      `json:"window"`
	ExtraRows int      `json:"extra_rows"`
	Inputs    []string `json:"inputs,omitempty"`
}

// GraphResult is the dependency-ordered view of a pipeline.
type GraphResult struct {
	Pipeline     string            `json:"pipeline"`
	Outputs      map[string]string `json:"outputs"`
	Levels       int               `json:"levels"`
	MaxExtraRows int               `json:"max_extra_rows"`
	Terms        []GraphNode       `json:"terms"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <pipeline-dir>",
		Short: "Show the compiled term graph",
		Long: `Compile a pipeline and print its terms in dependency order.

Each line shows the dependency level, kind, dtype, window length, the
lookback rows the term needs in front of the first output row and the
first characters of its identity key. Terms shared between expressions
appear once.

Examples:
  sieve graph ./pipelines/screen
  sieve graph ./pipelines/liquidity --pipeline staged --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "pipeline name (required when the directory defines several)")

	return cmd
}

func runGraph(opts *GraphOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	p, err := pipeline.LoadAndCompile(dir, opts.Pipeline)
	if err != nil {
		return fail(formatter, compileExitCode(err), "failed to compile pipeline", err)
	}
	g, err := graph.New(p.Outputs)
	if err != nil {
		return fail(formatter, ExitFailure, "failed to build graph", err)
	}

	result := describeGraph(p, g)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeGraphText(formatter, result)
	return nil
}

// compileExitCode separates definition problems (exit 1) from everything
// else, such as unreadable directories (exit 2).
func compileExitCode(err error) int {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		return ExitFailure
	}
	return ExitCommandError
}

func describeGraph(p *pipeline.Pipeline, g *graph.Graph) GraphResult {
	names := make(map[string][]string)
	for name, t := range p.Terms {
		names[t.ID()] = append(names[t.ID()], name)
	}

	result := GraphResult{
		Pipeline:     p.Name,
		Outputs:      make(map[string]string, len(p.Outputs)),
		Levels:       len(g.Levels()),
		MaxExtraRows: g.MaxExtraRows(),
	}
	for name, t := range p.Outputs {
		result.Outputs[name] = term.ShortID(t.ID())
	}
	for _, t := range g.Ordered() {
		node := GraphNode{
			ID:        term.ShortID(t.ID()),
			Names:     names[t.ID()],
			Kind:      t.Kind(),
			DType:     string(t.DType()),
			Level:     g.Level(t),
			Window:    t.WindowLength(),
			ExtraRows: g.ExtraRows(t),
		}
		sort.Strings(node.Names)
		for _, in := range t.Inputs() {
			node.Inputs = append(node.Inputs, term.ShortID(in.ID()))
		}
		result.Terms = append(result.Terms, node)
	}
	return result
}

func writeGraphText(f *OutputFormatter, r GraphResult) {
	w := f.Writer
	fmt.Fprintf(w, "pipeline %s: %d terms, %d levels, %d lookback rows\n\n", r.Pipeline, len(r.Terms), r.Levels, r.MaxExtraRows)
	for _, n := range r.Terms {
		fmt.Fprintf(w, "L%d %s %-16s %-7s window=%d extra=%d", n.Level, n.ID, n.Kind, n.DType, n.Window, n.ExtraRows)
		if len(n.Names) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(n.Names, ", "))
		}
		if len(n.Inputs) > 0 {
			fmt.Fprintf(w, " <- %s", strings.Join(n.Inputs, " "))
		}
		fmt.Fprintln(w)
	}

	outs := make([]string, 0, len(r.Outputs))
	for name := range r.Outputs {
		outs = append(outs, name)
	}
	sort.Strings(outs)
	fmt.Fprintln(w)
	for _, name := range outs {
		fmt.Fprintf(w, "output %s = %s\n", name, r.Outputs[name])
	}
}
