package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bapdd/internal/config"
	"github.com/roach88/bapdd/internal/engine"
)

// ValidationError is one problem found in a config file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Config *engine.Config    `json:"config,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a config file",
		Long: `Validate a CUE config file against the embedded schema and the engine's
construction rules without running anything.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeConfig, fmt.Sprintf("config file not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "config file not found", err)
	}

	file, err := config.Load(path)
	if err == nil {
		var cfg engine.Config
		cfg, err = file.EngineConfig()
		if err == nil {
			return outputValidateSuccess(formatter, path, cfg)
		}
	}

	return outputValidationErrors(formatter, []ValidationError{toValidationError(err)})
}

// toValidationError maps config and engine errors to a ValidationError,
// keeping the CUE position when there is one.
func toValidationError(err error) ValidationError {
	var loadErr *config.LoadError
	if errors.As(err, &loadErr) {
		v := ValidationError{
			Field:   loadErr.Field,
			Message: loadErr.Message,
			Code:    ErrCodeConfig,
		}
		if loadErr.Pos.IsValid() {
			v.Line = loadErr.Pos.Line()
			v.Column = loadErr.Pos.Column()
		}
		return v
	}

	var inputErr *engine.InputError
	if errors.As(err, &inputErr) {
		return ValidationError{
			Field:   "config",
			Message: inputErr.Message,
			Code:    ErrCodeConfig,
		}
	}

	return ValidationError{Field: "config", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, path string, cfg engine.Config) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Config: &cfg})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid: %d granules, alpha %v, beta %v\n",
		path, cfg.GranuleCount, cfg.Alpha, cfg.Beta)
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d:%d\n", err.Line, err.Column)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
