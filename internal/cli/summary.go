package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/i18n"
)

// SummaryResult is the rendered preview of a placed card.
type SummaryResult struct {
	Card    string              `json:"card"`
	Entries []card.SummaryEntry `json:"entries"`
}

// WriteText implements TextWriter.
func (r SummaryResult) WriteText(w io.Writer) error {
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "%s: %v\n", e.Title, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var data, id string

	cmd := &cobra.Command{
		Use:   "summary <card>",
		Short: "Render the summary of a placed card",
		Long: `Render the key/value preview a placed card shows, from the instance data
given as JSON.

Example:
  daisy summary fetch_action --data '{"url":"https://example.com","method":"Get"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			reg, err := loadRegistry(rootOpts)
			if err != nil {
				return outputLoadError(formatter, err)
			}
			c, ok := reg.Lookup(args[0])
			if !ok {
				return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("card not found: %s", args[0]))
			}

			inst := card.Instance{ID: id, Type: c.Name}
			if data != "" {
				if err := json.Unmarshal([]byte(data), &inst.Data); err != nil {
					return outputCommandError(formatter, ErrCodeBadInput, fmt.Sprintf("--data: %v", err))
				}
			}
			tr := c.Translator(rootOpts.locale(), i18n.WithLogger(rootOpts.log()))
			return formatter.Success(SummaryResult{Card: c.Name, Entries: c.RenderSummary(inst, tr)})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "instance data as JSON")
	cmd.Flags().StringVar(&id, "id", "", "instance id")

	return cmd
}
