package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/config"
	"github.com/roach88/daisy/internal/logger"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger they resolve to.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Locale     string
	Database   string
	CardDirs   []string

	// Config and Logger are filled before any subcommand runs. Commands
	// built directly (in tests) see the zero Config and a no-op logger.
	Config config.Config
	Logger *zap.Logger

	done func()
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the daisy CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "daisy",
		Short: "daisy - card metadata and script tooling",
		Long: `Inspect the action and trigger cards of a daisy workflow, resolve their
forms, store their scripts, run scripts against a local host and check
script scenarios.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.done != nil {
				opts.done()
			}
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ./daisy.yaml)")
	pf.StringVar(&opts.Locale, "locale", "", "locale for titles and labels (default from config)")
	pf.StringVar(&opts.Database, "db", "", "path to the script database (default from config)")
	pf.StringSliceVar(&opts.CardDirs, "cards", nil, "extra directories of .cue card files")

	cmd.AddCommand(NewCardsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFormCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if !cmd.Flags().Changed("format") {
		o.Format = cfg.Output.Format
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	logCfg := cfg.Log
	if o.Verbose {
		logCfg.Level = "debug"
	}
	l, done, err := logger.Install(logCfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}

	o.Config, o.Logger, o.done = cfg, l, done
	l.Debug("config loaded",
		zap.String("locale", o.locale()),
		zap.String("db", o.dbPath()),
		zap.Strings("cards", o.cardDirs()),
	)
	return nil
}

func (o *RootOptions) log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *RootOptions) locale() string {
	switch {
	case o.Locale != "":
		return o.Locale
	case o.Config.Locale != "":
		return o.Config.Locale
	}
	return "en"
}

func (o *RootOptions) dbPath() string {
	if o.Database != "" {
		return o.Database
	}
	return o.Config.Store.Path
}

func (o *RootOptions) cardDirs() []string {
	dirs := append([]string(nil), o.Config.Cards.Dirs...)
	return append(dirs, o.CardDirs...)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
