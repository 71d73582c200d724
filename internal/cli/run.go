package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/engine"
	"github.com/roach88/daisy/internal/sandbox"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Action   string
	MaxSteps int
	NoStore  bool

	// Generator allows overriding the script specifier generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Generator sandbox.Generator
}

// RunResult is the outcome of the run command.
type RunResult struct {
	*engine.Result
	Context map[string]any `json:"context,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// WriteText implements TextWriter.
func (r RunResult) WriteText(w io.Writer) error {
	if r.Specifier != "" {
		fmt.Fprintf(w, "script: %s\n", r.Specifier)
	}
	for _, c := range r.Calls {
		line := fmt.Sprintf("  #%d %s %s", c.Seq, c.Op, c.Args)
		if c.Error != "" {
			line += " ! " + c.Error
		}
		fmt.Fprintln(w, line)
	}
	if d, ok := r.Exports["default"]; ok {
		fmt.Fprintf(w, "default: %v\n", d)
	}
	fmt.Fprintf(w, "steps: %d\n", r.Steps)
	if r.Error != "" {
		fmt.Fprintf(w, "error: %s\n", r.Error)
	}
	return nil
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [script-file]",
		Short: "Run a script against the local host",
		Long: `Run a card script in a sandbox realm backed by the local host. The script
imports card namespaces (daisy/action/web, daisy/action/program, ...) and
every call it makes across the host boundary is printed with its seq.

Without a file the script is read from stdin. With --action the persisted
script of that action is booted from the script database instead.

Example:
  daisy run ./hello.js
  daisy run --action a1 --db ./daisy.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "boot the stored script of this action")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "maximum actions one run may dispatch (0 disables)")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "run without the script database")

	return cmd
}

func runScript(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.log()

	reg, err := loadRegistry(opts.RootOptions)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(log),
		engine.WithMaxSteps(opts.MaxSteps),
	}
	if opts.Generator != nil {
		engineOpts = append(engineOpts, engine.WithGenerator(opts.Generator))
	}

	var scripts sandbox.ScriptSource
	if !opts.NoStore {
		st, err := openStore(opts.RootOptions)
		if err != nil {
			if ferr := formatter.Error(ErrCodeStoreFailed, err.Error(), nil); ferr != nil {
				return ferr
			}
			return err
		}
		defer st.Close()
		scripts = st
	} else if opts.Action != "" {
		return outputCommandError(formatter, ErrCodeBadInput, "--action needs the script database")
	}
	e := engine.New(reg, scripts, engineOpts...)

	// Cancel on interrupt so a runaway script's host calls stop.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *engine.Result
	if opts.Action != "" {
		log.Info("booting action script", zap.String("action", opts.Action))
		res, err = e.Boot(ctx, opts.Action)
	} else {
		src, rerr := readSource(cmd, args)
		if rerr != nil {
			return outputCommandError(formatter, ErrCodeBadInput, rerr.Error())
		}
		res, err = e.Run(ctx, src)
	}

	out := RunResult{Result: res, Context: e.Context()}
	if res == nil {
		out.Result = &engine.Result{}
	}
	if err != nil {
		out.Error = err.Error()
		if ferr := formatter.Error(ErrCodeRunFailed, "script run failed", out); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("[%s] script run failed", ErrCodeRunFailed), err)
	}
	return formatter.Success(out)
}
