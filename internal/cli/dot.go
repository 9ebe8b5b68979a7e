package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/comalice/actorx/internal/production"
	"github.com/comalice/actorx/loader"
)

// NewDotCommand creates the dot command.
func NewDotCommand(rootOpts *RootOptions) *cobra.Command {
	var events []string

	cmd := &cobra.Command{
		Use:   "dot <machine.yaml>",
		Short: "Render a machine as Graphviz DOT",
		Long: `Render the machine as Graphviz DOT with the active configuration highlighted.

Events given with -e are applied with the pure transition function first:
guards and assignments run, side effects do not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			m, err := loader.LoadFile(args[0])
			if err != nil {
				return f.Failure(ExitFailure, "invalid machine", err)
			}
			evs, err := parseEvents(events)
			if err != nil {
				return f.Failure(ExitCommandError, "bad event", err)
			}
			snap, err := m.InitialSnapshot(nil)
			if err != nil {
				return f.Failure(ExitFailure, "initial state", err)
			}
			for _, ev := range evs {
				if snap, err = m.Transition(snap, ev); err != nil {
					return f.Failure(ExitFailure, "transition", err)
				}
			}
			dot := (&production.DefaultVisualizer{}).ExportDOT(m.Model(), snap.StateIDs())
			return f.Success(map[string]string{"dot": dot}, func(w io.Writer) {
				io.WriteString(w, dot)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&events, "event", "e", nil, "event to apply before rendering (repeatable)")
	return cmd
}
