package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/actorx"
	"github.com/comalice/actorx/internal/production"
	"github.com/comalice/actorx/loader"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Addr   string
	Events []string
	Keep   int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve <machine.yaml>",
		Short: "Run a machine behind a read-only inspection endpoint",
		Long: `Start an actor for the machine and expose it over HTTP:

  GET /snapshot      current snapshot as JSON
  GET /inspection    recorded inspection events (?type=actor.state filters)
  GET /machine.dot   the machine as Graphviz DOT, active states highlighted

The server stops on SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringArrayVarP(&opts.Events, "event", "e", nil, "event to send after start (repeatable)")
	cmd.Flags().IntVar(&opts.Keep, "keep", 1000, "inspection events kept in memory (0 keeps all)")

	return cmd
}

func runServe(rootOpts *RootOptions, opts *ServeOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	log := rootOpts.log()

	m, err := loader.LoadFile(path)
	if err != nil {
		return f.Failure(ExitFailure, "invalid machine", err)
	}
	events, err := parseEvents(opts.Events)
	if err != nil {
		return f.Failure(ExitCommandError, "bad event", err)
	}

	rec := production.NewRecordingPublisher(opts.Keep)
	inspector := production.MultiPublisher{rec, production.NewLogrusPublisher(log, logrus.DebugLevel)}
	a := actorx.CreateActor(m, actorx.WithLogger(log), actorx.WithInspector(inspector))
	if err := a.Start(); err != nil {
		return f.Failure(ExitFailure, "start", err)
	}
	for _, ev := range events {
		a.Send(ev)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, opts.Addr, NewRouter(a, m, rec, log), a, log)
}

// Serve runs handler on addr until ctx is done, then shuts the server down
// and stops the actor.
func Serve(ctx context.Context, addr string, handler http.Handler, a *actorx.Actor, log *logrus.Entry) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", addr).Info("inspection endpoint listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// NewRouter exposes a, its machine and the recorded inspection events.
func NewRouter(a *actorx.Actor, m *actorx.Machine, rec *production.RecordingPublisher, log *logrus.Entry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(accessLog(log))

	r.Get("/snapshot", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, viewOf(a.ID(), a.GetSnapshot()))
	})
	r.Get("/inspection", func(w http.ResponseWriter, req *http.Request) {
		events := rec.Events()
		if typ := req.URL.Query().Get("type"); typ != "" {
			filtered := events[:0]
			for _, ev := range events {
				if ev.Type == typ {
					filtered = append(filtered, ev)
				}
			}
			events = filtered
		}
		render.JSON(w, req, events)
	})
	r.Get("/machine.dot", func(w http.ResponseWriter, req *http.Request) {
		dot := (&production.DefaultVisualizer{}).ExportDOT(m.Model(), a.GetSnapshot().StateIDs())
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dot))
	})
	return r
}

func accessLog(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("http request")
		})
	}
}
