package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/pipeline"
)

// ValidationIssue is one problem found in a pipeline definition.
type ValidationIssue struct {
	Pipeline string `json:"pipeline"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Pipelines []string          `json:"pipelines"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline-dir>",
		Short: "Validate pipeline definitions",
		Long: `Load the CUE package in a directory and check every pipeline it defines.

Reports unknown dtypes, kinds and references, missing fields, undefined
outputs, reference cycles and term construction errors (for example
inverted percentile bounds) without running anything.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	res, err := pipeline.Load(dir)
	if err != nil {
		return fail(formatter, ExitCommandError, "failed to load pipelines", err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)

	names := res.Names()
	var issues []ValidationIssue
	for _, name := range names {
		formatter.VerboseLog("Validating pipeline: %s", name)
		issues = append(issues, validatePipeline(res.Pipelines[name])...)
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, names, issues)
	}
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Pipelines: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ All pipelines valid (%d)\n", len(names))
	return nil
}

// validatePipeline collects every Validate error, then tries Compile for
// the construction errors Validate cannot see.
func validatePipeline(def *pipeline.Definition) []ValidationIssue {
	errs := pipeline.Validate(def)
	if len(errs) == 0 {
		if _, err := pipeline.Compile(def); err != nil {
			var ve *pipeline.ValidationError
			if !errors.As(err, &ve) {
				ve = &pipeline.ValidationError{Code: pipeline.ErrCodeGeneric, Field: "pipeline", Message: err.Error()}
			}
			errs = append(errs, ve)
		}
	}

	issues := make([]ValidationIssue, 0, len(errs))
	for _, e := range errs {
		issue := ValidationIssue{
			Pipeline: def.Name,
			Code:     e.Code,
			Field:    e.Field,
			Message:  e.Message,
		}
		if e.Pos.IsValid() {
			issue.Line = e.Pos.Line()
		}
		issues = append(issues, issue)
	}
	return issues
}

func outputValidationErrors(formatter *OutputFormatter, names []string, issues []ValidationIssue) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Pipelines: names, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s: %s (line %d)\n", issue.Pipeline, issue.Field, issue.Line)
		} else {
			fmt.Fprintf(formatter.Writer, "%s: %s\n", issue.Pipeline, issue.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return exitErr
}
