package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/comalice/actorx/loader"
)

// ValidationResult is the output of the validate command.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	ID      string `json:"id"`
	Version string `json:"version"`
	Nodes   int    `json:"nodes"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <machine.yaml>",
		Short: "Check a machine definition without running it",
		Long: `Validate a YAML machine definition against the CUE schema and compile it.

Named actions, guards and actors cannot be resolved from the command line,
so definitions that reference them fail to compile here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	m, err := loader.LoadFile(path)
	if err != nil {
		return f.Failure(ExitFailure, "invalid machine", err)
	}
	res := ValidationResult{Valid: true, ID: m.ID(), Version: m.Version(), Nodes: len(m.Model().Nodes)}
	opts.log().WithField("machine", m.ID()).Debug("machine is valid")
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s: valid (%d nodes, version %s)\n", res.ID, res.Nodes, res.Version)
	})
}
