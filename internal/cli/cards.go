package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/daisy/internal/card"
	"github.com/roach88/daisy/internal/i18n"
)

// CardInfo is the listing entry of one card.
type CardInfo struct {
	Name      string   `json:"name"`
	Parent    string   `json:"parent"`
	Namespace string   `json:"namespace"`
	Title     string   `json:"title"`
	Args      []string `json:"args"`
	Branches  []string `json:"branches"`
}

// CardList is the result of the cards command.
type CardList []CardInfo

// WriteText implements TextWriter.
func (l CardList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNAMESPACE\tTITLE\tARGS")
	for _, c := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Namespace, c.Title, strings.Join(c.Args, ", "))
	}
	return tw.Flush()
}

// NewCardsCommand creates the cards command.
func NewCardsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards [namespace]",
		Short: "List registered cards",
		Long: `List the registered action and trigger cards in registration order,
optionally restricted to a namespace such as "action" or "action.web".
Titles and namespace names are localized with --locale.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return runCards(rootOpts, prefix, cmd)
		},
	}
	return cmd
}

func runCards(opts *RootOptions, prefix string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	reg, err := loadRegistry(opts)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	metas := reg.Cards()
	if prefix != "" {
		metas = reg.Under(prefix)
	}

	locale := opts.locale()
	list := make(CardList, 0, len(metas))
	for _, c := range metas {
		list = append(list, describeCard(reg, c, locale, opts))
	}
	return formatter.Success(list)
}

func describeCard(reg *card.Registry, c *card.Meta, locale string, opts *RootOptions) CardInfo {
	tr := c.Translator(locale, i18n.WithLogger(opts.log()))
	info := CardInfo{
		Name:      c.Name,
		Parent:    c.Parent,
		Namespace: reg.DisplayName(c.Parent, locale),
		Title:     c.Title(tr),
		Args:      c.ArgNames(),
		Branches:  make([]string, 0, len(c.Branches)),
	}
	for _, b := range c.Branches {
		info.Branches = append(info.Branches, b.Name)
	}
	return info
}

func outputLoadError(f *OutputFormatter, err error) error {
	code, msg := ErrCodeGeneric, err.Error()
	if le, ok := err.(*LoadError); ok {
		code, msg = le.Code, le.Message
	}
	if ferr := f.Error(code, msg, nil); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitCommandError, "failed to load cards", err)
}
