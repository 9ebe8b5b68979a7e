package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/internal/production"
	"github.com/comalice/actorx/loader"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Events  []string
	Persist string
	Key     string
	Resume  bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <machine.yaml>",
		Short: "Start a machine, send events and print the resulting snapshot",
		Long: `Start an actor for the machine, deliver each -e event in order and print
the settled snapshot.

Events are bare types (-e toggle) or JSON objects with a "type" field
(-e '{"type":"inc","by":2}'). With --persist the snapshot is saved as JSON
under the given directory; --resume continues from the saved snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Events, "event", "e", nil, "event to send (repeatable)")
	cmd.Flags().StringVar(&opts.Persist, "persist", "", "directory for persisted snapshots")
	cmd.Flags().StringVar(&opts.Key, "key", "", "persistence key (defaults to the machine id)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "resume from the persisted snapshot")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	ctx := cmd.Context()
	log := rootOpts.log()

	m, err := loader.LoadFile(path)
	if err != nil {
		return f.Failure(ExitFailure, "invalid machine", err)
	}
	events, err := parseEvents(opts.Events)
	if err != nil {
		return f.Failure(ExitCommandError, "bad event", err)
	}
	if opts.Resume && opts.Persist == "" {
		return f.Failure(ExitCommandError, "bad flags", fmt.Errorf("--resume needs --persist"))
	}

	key := opts.Key
	if key == "" {
		key = m.ID()
	}
	var p actorx.Persister
	if opts.Persist != "" {
		if p, err = production.NewJSONPersister(opts.Persist); err != nil {
			return f.Failure(ExitCommandError, "persistence", err)
		}
	}

	var a *actorx.Actor
	if opts.Resume {
		a, err = actorx.Resume(ctx, m, p, key, actorx.WithLogger(log))
		if err != nil {
			return f.Failure(ExitCommandError, "resume", err)
		}
	} else {
		a = actorx.CreateActor(m, actorx.WithLogger(log))
	}
	if err := a.Start(); err != nil {
		return f.Failure(ExitFailure, "start", err)
	}
	defer a.Stop()

	for _, ev := range events {
		log.WithField("event", ev.Type).Debug("sending event")
		a.Send(ev)
	}
	snap := a.GetSnapshot()

	if p != nil {
		if err := actorx.Persist(ctx, a, p, key); err != nil {
			return f.Failure(ExitCommandError, "persist", err)
		}
		log.WithField("key", key).Debug("snapshot persisted")
	}

	view := viewOf(a.ID(), snap)
	if err := f.Success(view, func(w io.Writer) {
		fmt.Fprintf(w, "state:   %s\n", compact(view.Value))
		fmt.Fprintf(w, "status:  %s\n", view.Status)
		if len(view.Context) > 0 {
			fmt.Fprintf(w, "context: %s\n", compact(view.Context))
		}
		if view.Output != nil {
			fmt.Fprintf(w, "output:  %s\n", compact(view.Output))
		}
		if view.Error != "" {
			fmt.Fprintf(w, "error:   %s\n", view.Error)
		}
	}); err != nil {
		return err
	}
	if snap.Status == actorx.StatusError {
		return WrapExitError(ExitFailure, "actor failed", snap.Error)
	}
	return nil
}
