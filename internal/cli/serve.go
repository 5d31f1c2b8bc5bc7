package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/zonemap/internal/server"
	"github.com/matzehuels/zonemap/pkg/refresh"
	"github.com/matzehuels/zonemap/pkg/source"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// signal.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive treemap over HTTP",
		Long: `Serve starts an HTTP server with a treemap page that follows the browser
width, polls for new zones and opens a zone's detail on click. Clicking a
flag toggles it at the source.

The zone set is re-read on the refresh schedule; file sources are also
watched when refresh.watch is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.validConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			popts, err := pipelineOptions(cfg, c.Logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := c.openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer source.Close(src)

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(server.Config{
				Addr:           cfg.Server.Addr,
				Runner:         runner,
				Options:        popts,
				Source:         src,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				PollInterval:   cfg.Server.PollInterval.Duration,
				Debounce:       cfg.Viewport.Debounce.Duration,
				Logger:         c.Logger,
			})

			zones, err := runner.Load(ctx, src)
			if err != nil {
				loggerFromContext(ctx).Warn("starting with an empty zone set", "source", src.Name(), "err", err)
			} else {
				srv.SetZones(ctx, zones)
			}
			r := refresh.New(src, srv.SetZones, c.Logger)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(srv.ListenAndServe)
			g.Go(func() error {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})

			if cfg.Refresh.Schedule != "" {
				p, err := refresh.NewPoller(r, cfg.Refresh.Schedule, refresh.DefaultTimeout)
				if err != nil {
					return err
				}
				p.Start()
				defer p.Stop()
			}
			if cfg.Refresh.Watch && cfg.Source.Kind == source.KindFile {
				w, err := refresh.NewWatcher(r, cfg.Source.Path)
				if err != nil {
					return err
				}
				g.Go(func() error { return w.Run(ctx) })
			}

			printInfo("Serving the treemap")
			printKeyValue("address", cfg.Server.Addr)
			printKeyValue("source", src.Name())
			if cfg.Refresh.Schedule != "" {
				printKeyValue("refresh", cfg.Refresh.Schedule)
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")
	return cmd
}
