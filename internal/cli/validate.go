package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/cards"
	"github.com/roach88/daisy/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Cards  int                        `json:"cards"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// WriteText implements TextWriter.
func (r ValidationResult) WriteText(w io.Writer) error {
	if r.Valid {
		_, err := fmt.Fprintf(w, "✓ All %d cards valid\n", r.Cards)
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "  %s\n", e.Error()); err != nil {
			return err
		}
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [card-dir...]",
		Short: "Validate card files",
		Long: `Compile and validate the built-in cards plus every given and configured
card directory. Each problem is reported with its code; compile failures
carry the line of the offending declaration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dirs []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	builtins, err := cards.Load(cards.Options{Logger: opts.log()})
	if err != nil {
		return outputValidateError(formatter, ErrCodeCompileFailed, err.Error())
	}
	all := builtins.Cards()

	var problems []compiler.ValidationError
	for _, dir := range append(opts.cardDirs(), dirs...) {
		files, err := checkCardDir(dir)
		if err != nil {
			var le *LoadError
			if errors.As(err, &le) {
				return outputValidateError(formatter, le.Code, le.Message)
			}
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), dir)
		for _, path := range files {
			metas, verr := compileFile(path)
			if verr != nil {
				problems = append(problems, *verr)
				continue
			}
			all = append(all, metas...)
		}
	}

	byCard := compiler.ValidateAll(all)
	for _, c := range all {
		formatter.VerboseLog("Validating card: %s", c.Name)
		problems = append(problems, byCard[c.Name]...)
		// duplicates share a name; report once
		delete(byCard, c.Name)
	}

	result := ValidationResult{Valid: len(problems) == 0, Cards: countCards(all), Errors: problems}
	if !result.Valid {
		if err := formatter.Error(problems[0].Code, fmt.Sprintf("%d validation error(s)", len(problems)), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("[%s] validation failed", problems[0].Code))
	}
	return formatter.Success(result)
}

func countCards(all []*card.Meta) int {
	names := make(map[string]bool, len(all))
	for _, c := range all {
		names[c.Name] = true
	}
	return len(names)
}

func outputValidateError(f *OutputFormatter, code, message string) error {
	if err := f.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("[%s] %s", code, message))
}
