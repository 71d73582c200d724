package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/daisy/internal/form"
	"github.com/roach88/daisy/internal/i18n"
	"github.com/roach88/daisy/internal/ir"
	"github.com/roach88/daisy/internal/plug"
)

// now fills Date defaults; tests pin it.
var now = time.Now

// FormOptions holds flags for the form command.
type FormOptions struct {
	*RootOptions
	Set  []string
	Plug []string
}

// FormResult is the resolved form of one card and, when values were
// given, the envelope the card would send.
type FormResult struct {
	Card     string          `json:"card"`
	Title    string          `json:"title"`
	Fields   []form.Field    `json:"fields"`
	Model    map[string]any  `json:"model"`
	Envelope json.RawMessage `json:"envelope,omitempty"`
}

// WriteText implements TextWriter.
func (r FormResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s (%s)\n", r.Title, r.Card)
	for _, f := range r.Fields {
		line := fmt.Sprintf("  %-20s %s", f.Label, f.Type)
		if f.Optional {
			line += " optional"
		}
		if f.Data.Placeholder != "" {
			line += fmt.Sprintf(" [%s]", f.Data.Placeholder)
		}
		if len(f.Data.Options) > 0 {
			labels := make([]string, len(f.Data.Options))
			for i, o := range f.Data.Options {
				labels[i] = o.Label
			}
			line += " {" + strings.Join(labels, "|") + "}"
		}
		fmt.Fprintln(w, line)
	}
	if len(r.Envelope) > 0 {
		fmt.Fprintf(w, "envelope: %s\n", r.Envelope)
	}
	return nil
}

// NewFormCommand creates the form command.
func NewFormCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "form <card>",
		Short: "Resolve a card's form",
		Long: `Resolve the labels and placeholders of a card's form for the active locale
and print its default model. With --set or --plug the model is processed
and formatted into the envelope the card sends to the host.

Example:
  daisy form fetch_action --locale zh-CN
  daisy form fetch_action --set url=https://example.com --set timeout=30
  daisy form fetch_action --plug url=card-1.Success.a.hello`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForm(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field value as name=value (value parsed as JSON when possible)")
	cmd.Flags().StringArrayVar(&opts.Plug, "plug", nil, "wire a field as name=dotted.path")

	return cmd
}

func runForm(opts *FormOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	reg, err := loadRegistry(opts.RootOptions)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	c, ok := reg.Lookup(name)
	if !ok {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("card not found: %s", name))
	}

	tr := c.Translator(opts.locale(), i18n.WithLogger(opts.log()))
	pipeline := form.NewPipeline(opts.log())
	result := FormResult{
		Card:   c.Name,
		Title:  c.Title(tr),
		Fields: pipeline.ResolveForm(tr, c.View.Form),
		Model:  form.Defaults(c.View.Form, now()),
	}

	if len(opts.Set) == 0 && len(opts.Plug) == 0 {
		return formatter.Success(result)
	}

	for _, kv := range opts.Set {
		k, v, err := splitAssignment(kv)
		if err != nil {
			return outputCommandError(formatter, ErrCodeBadInput, err.Error())
		}
		result.Model[k] = plug.Literal(parseValue(v))
	}
	for _, kv := range opts.Plug {
		k, v, err := splitAssignment(kv)
		if err != nil {
			return outputCommandError(formatter, ErrCodeBadInput, err.Error())
		}
		result.Model[k] = plug.MarkAsPlug(ir.Path(strings.Split(v, ".")), result.Model[k])
	}

	env, err := pipeline.Collect(c.View.Form, result.Model, c.View.Formatter)
	if err != nil {
		return outputCommandError(formatter, ErrCodeBadInput, err.Error())
	}
	raw, err := ir.MarshalCanonical(env)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	result.Envelope = raw
	return formatter.Success(result)
}

func splitAssignment(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", kv)
	}
	return k, v, nil
}

// parseValue reads v as JSON, falling back to the raw string.
func parseValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return v
	}
	return out
}

func outputCommandError(f *OutputFormatter, code, message string) error {
	if err := f.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("[%s] %s", code, message))
}
