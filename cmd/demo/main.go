// Command demo cycles a traffic light, persisting every snapshot to a JSON
// file and printing inspection events and the active DOT graph. A second run
// resumes where the previous one stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/builder"
	"github.com/comalice/actorx/internal/production"
)

type demoOptions struct {
	Dir      string
	Cycles   int
	Interval time.Duration
}

func main() {
	if err := newDemoCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDemoCommand() *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:          "demo",
		Short:        "Cycle a persisted traffic light",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", os.TempDir(), "directory for persisted snapshots")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 12, "number of TIMER events to send")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 2*time.Second, "delay between TIMER events")

	return cmd
}

func runDemo(ctx context.Context, out, errOut io.Writer, opts *demoOptions) error {
	logger := logrus.New()
	logger.SetOutput(errOut)
	log := logrus.NewEntry(logger).WithField("app", "demo")

	machine := actorx.MustDefineMachine(builder.Machine("traffic-light",
		builder.Composite("traffic",
			builder.State("red", builder.On("TIMER", "green")),
			builder.State("green", builder.On("TIMER", "yellow")),
			builder.State("yellow", builder.On("TIMER", "red")),
		),
	))

	persister, err := production.NewJSONPersister(opts.Dir)
	if err != nil {
		return fmt.Errorf("opening persister: %w", err)
	}

	inspection := make(chan actorx.InspectionEvent, 100)
	publisher := production.NewChannelPublisher(inspection)
	defer publisher.Close()
	visualizer := &production.DefaultVisualizer{}

	actorOpts := []actorx.ActorOption{actorx.WithLogger(log), actorx.WithInspector(publisher)}
	a, err := actorx.Resume(ctx, machine, persister, machine.ID(), actorOpts...)
	switch {
	case errors.Is(err, actorx.ErrNotFound):
		a = actorx.CreateActor(machine, actorOpts...)
	case err != nil:
		return fmt.Errorf("resuming: %w", err)
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer a.Stop()
	fmt.Fprintln(out, "Starting in:", a.GetSnapshot().Value)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for i := range opts.Cycles {
		select {
		case <-ticker.C:
			a.Send(actorx.NewEvent("TIMER", nil))
			snap := a.GetSnapshot()
			fmt.Fprintf(out, "\n--- Cycle %d ---\n", i+1)
			fmt.Fprintln(out, "Current states:", snap.StateIDs())
			fmt.Fprintln(out, "DOT:\n"+visualizer.ExportDOT(machine.Model(), snap.StateIDs()))
			drain(out, inspection)
			if err := actorx.Persist(ctx, a, persister, machine.ID()); err != nil {
				log.WithError(err).Error("persisting")
			}
		case <-ctx.Done():
			fmt.Fprintln(out, "\nShutting down gracefully...")
			return nil
		}
	}
	fmt.Fprintf(out, "Demo complete after %d cycles.\n", opts.Cycles)
	return nil
}

func drain(out io.Writer, ch <-chan actorx.InspectionEvent) {
	for {
		select {
		case ev := <-ch:
			if ev.Event != nil {
				fmt.Fprintf(out, "Published: %s (%s)\n", ev.Type, ev.Event.Type)
			} else {
				fmt.Fprintf(out, "Published: %s\n", ev.Type)
			}
		default:
			return
		}
	}
}
