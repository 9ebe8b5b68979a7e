// Package cli implements the actorx command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string

	logger *logrus.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "actorx",
		Short: "actorx - statecharts and actors",
		Long: `Validate, run, render and inspect statechart machines defined in YAML.

Machines are checked against the built-in CUE schema and executed by the
actorx actor runtime.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level, err := logrus.ParseLevel(opts.LogLevel)
			if err != nil {
				return err
			}
			if opts.Verbose && level < logrus.DebugLevel {
				level = logrus.DebugLevel
			}
			opts.logger = logrus.New()
			opts.logger.SetOutput(cmd.ErrOrStderr())
			opts.logger.SetLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (trace|debug|info|warn|error)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDotCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// log returns the configured logger entry, falling back to the standard
// logger when the root pre-run did not execute.
func (o *RootOptions) log() *logrus.Entry {
	if o.logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logrus.NewEntry(o.logger)
}
