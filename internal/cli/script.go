package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/daisy/internal/store"
)

// ScriptList is the result of script list.
type ScriptList []store.Script

// WriteText implements TextWriter.
func (l ScriptList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tSEQ\tDIGEST")
	for _, s := range l {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.ActionID, s.Seq, shortDigest(s.Digest))
	}
	return tw.Flush()
}

// RevisionList is the result of script revisions.
type RevisionList []store.Revision

// WriteText implements TextWriter.
func (l RevisionList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tDIGEST")
	for _, r := range l {
		digest := shortDigest(r.Digest)
		if r.Deleted {
			digest = "(deleted)"
		}
		fmt.Fprintf(tw, "%d\t%s\n", r.Seq, digest)
	}
	return tw.Flush()
}

// scriptSource prints only the source in text mode.
type scriptSource store.Script

// WriteText implements TextWriter.
func (s scriptSource) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, s.Source)
	return err
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// NewScriptCommand creates the script command and its subcommands.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage persisted action scripts",
		Long: `Store, inspect and restore the scripts that actions boot from. Every
change is kept as a revision.`,
	}

	cmd.AddCommand(newScriptPutCommand(rootOpts))
	cmd.AddCommand(newScriptGetCommand(rootOpts))
	cmd.AddCommand(newScriptListCommand(rootOpts))
	cmd.AddCommand(newScriptDeleteCommand(rootOpts))
	cmd.AddCommand(newScriptRevisionsCommand(rootOpts))
	cmd.AddCommand(newScriptRestoreCommand(rootOpts))

	return cmd
}

// withStore opens the store for the duration of fn.
func withStore(opts *RootOptions, cmd *cobra.Command, fn func(*store.Store, *OutputFormatter) error) error {
	formatter := opts.formatter(cmd)
	st, err := openStore(opts)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStoreFailed, err.Error(), nil); ferr != nil {
			return ferr
		}
		return err
	}
	defer st.Close()
	return fn(st, formatter)
}

func storeError(f *OutputFormatter, err error) error {
	code, exit := ErrCodeStoreFailed, ExitCommandError
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNoRevision) {
		code, exit = ErrCodeNotFound, ExitFailure
	}
	if ferr := f.Error(code, err.Error(), nil); ferr != nil {
		return ferr
	}
	return WrapExitError(exit, fmt.Sprintf("[%s] script operation failed", code), err)
}

func newScriptPutCommand(rootOpts *RootOptions) *cobra.Command {
	var meta []string
	cmd := &cobra.Command{
		Use:           "put <action-id> [file]",
		Short:         "Store the script of an action (reads stdin without a file)",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store, f *OutputFormatter) error {
				src, err := readSource(cmd, args[1:])
				if err != nil {
					return outputCommandError(f, ErrCodeBadInput, err.Error())
				}
				m := make(map[string]any, len(meta))
				for _, kv := range meta {
					k, v, err := splitAssignment(kv)
					if err != nil {
						return outputCommandError(f, ErrCodeBadInput, err.Error())
					}
					m[k] = parseValue(v)
				}
				s, err := st.PutScript(cmd.Context(), args[0], src, m)
				if err != nil {
					return storeError(f, err)
				}
				rootOpts.log().Debug("script stored")
				return f.Success(ScriptList{s})
			})
		},
	}
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "metadata as name=value")
	return cmd
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

func newScriptGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <action-id>",
		Short:         "Print the current script of an action",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store, f *OutputFormatter) error {
				s, err := st.GetScript(cmd.Context(), args[0])
				if err != nil {
					return storeError(f, err)
				}
				if f.Format == "json" {
					return f.Success(s)
				}
				return f.Success(scriptSource(s))
			})
		},
	}
}

func newScriptListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List actions with a stored script",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store, f *OutputFormatter) error {
				scripts, err := st.ListScripts(cmd.Context())
				if err != nil {
					return storeError(f, err)
				}
				return f.Success(ScriptList(scripts))
			})
		},
	}
}

func newScriptDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <action-id>",
		Short:         "Delete the script of an action (kept in its revisions)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store, f *OutputFormatter) error {
				if err := st.DeleteScript(cmd.Context(), args[0]); err != nil {
					return storeError(f, err)
				}
				return f.Success(fmt.Sprintf("deleted %s", args[0]))
			})
		},
	}
}

func newScriptRevisionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "revisions <action-id>",
		Short:         "List the revisions of an action's script",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store, f *OutputFormatter) error {
				revs, err := st.Revisions(cmd.Context(), args[0])
				if err != nil {
					return storeError(f, err)
				}
				return f.Success(RevisionList(revs))
			})
		},
	}
}

func newScriptRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "restore <action-id> <seq>",
		Short:         "Make an earlier revision current again",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store, f *OutputFormatter) error {
				seq, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return outputCommandError(f, ErrCodeBadInput, fmt.Sprintf("invalid seq %q", args[1]))
				}
				s, err := st.Restore(cmd.Context(), args[0], seq)
				if err != nil {
					return storeError(f, err)
				}
				return f.Success(ScriptList{s})
			})
		},
	}
}
