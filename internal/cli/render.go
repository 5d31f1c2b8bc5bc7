package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/zonemap/pkg/config"
	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/pipeline"
	"github.com/matzehuels/zonemap/pkg/refresh"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// stdout as an output path writes the single requested format to stdout.
const stdoutPath = "-"

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output      string
	formats     string
	width       float64
	title       string
	interactive bool
	apiPrefix   string
	noCache     bool
	refresh     bool
	watch       bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the zone set to SVG, PNG, PDF, JSON or text",
		Long: `Render lays out the configured zone set as a treemap and writes one file
per format. Outputs are cached by a hash of the zone set and every option
that affects them, so re-running on unchanged zones is instant.

With --watch the command keeps running: file sources are re-rendered when
the file changes, other sources on the refresh schedule.`,
		Example: `  zonemap render --file zones.json -f svg,png -o treemap
  zonemap render --api https://scanner.example.com --interactive
  zonemap render --db zones.db -f term -o -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", `output base path, or "-" for stdout (default from config)`)
	f.StringVarP(&opts.formats, "format", "f", "", "output formats, comma-separated: svg, png, pdf, json, term")
	f.Float64Var(&opts.width, "width", 0, "treemap width in pixels (height is derived)")
	f.StringVar(&opts.title, "title", "", "document title for SVG and PDF output")
	f.BoolVar(&opts.interactive, "interactive", false, "embed the click script in SVG output")
	f.StringVar(&opts.apiPrefix, "api-prefix", "", "zone endpoint prefix used by the click script")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	f.BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")
	f.BoolVar(&opts.watch, "watch", false, "keep running and re-render when the zone set changes")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts *renderOpts) error {
	ctx := cmd.Context()
	cfg, err := c.validConfig()
	if err != nil {
		return err
	}

	popts, err := renderOptions(cfg, opts)
	if err != nil {
		return err
	}
	loggerFromContext(ctx).Debug("render options", "width", popts.Width, "formats", popts.Formats, "interactive", popts.Interactive)
	output := opts.output
	if output == "" {
		output = cfg.Render.Output
	}
	if output == stdoutPath && len(popts.Formats) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "stdout output needs exactly one format, got %d", len(popts.Formats))
	}

	src, err := c.openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer source.Close(src)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	write := func(ctx context.Context, zones []zone.Zone) error {
		return c.renderOnce(ctx, runner, zones, popts, output)
	}

	if !opts.watch {
		zones, err := runner.Load(ctx, src)
		if err != nil {
			return err
		}
		return write(ctx, zones)
	}
	return c.follow(ctx, cfg, refresh.New(src, write, c.Logger))
}

// renderOptions merges the render flags into the configured options.
func renderOptions(cfg *config.Config, opts *renderOpts) (pipeline.Options, error) {
	popts, err := pipelineOptions(cfg, nil)
	if err != nil {
		return pipeline.Options{}, err
	}
	if opts.formats != "" {
		popts.Formats = nil
		for _, s := range strings.Split(opts.formats, ",") {
			f, err := sink.ParseFormat(s)
			if err != nil {
				return pipeline.Options{}, err
			}
			popts.Formats = append(popts.Formats, f)
		}
	}
	if opts.width > 0 {
		popts.Width = opts.width
	}
	popts.Title = opts.title
	popts.Interactive = opts.interactive
	popts.API = opts.apiPrefix
	popts.Refresh = opts.refresh
	return popts, nil
}

// renderOnce runs the pipeline on zones and writes every artifact.
func (c *CLI) renderOnce(ctx context.Context, runner *pipeline.Runner, zones []zone.Zone, opts pipeline.Options, output string) error {
	toStdout := output == stdoutPath

	var spin *Spinner
	if !toStdout {
		spin = newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d zones...", len(zones)))
		spin.Start()
	}
	prog := newProgress(c.Logger)
	opts.Logger = c.Logger
	result, err := runner.Execute(ctx, zones, opts)
	if toStdout {
		if err != nil {
			return err
		}
		_, err := os.Stdout.Write(result.Artifacts[opts.Formats[0]])
		return err
	}
	if err != nil {
		spin.StopWithError(errors.UserMessage(err))
		return err
	}

	spin.Update(fmt.Sprintf("Writing %d files...", len(opts.Formats)))
	paths := make([]string, len(opts.Formats))
	for i, f := range opts.Formats {
		paths[i] = outputPath(output, f)
		if err := writeArtifact(paths[i], result.Artifacts[f]); err != nil {
			spin.StopWithError(errors.UserMessage(err))
			return err
		}
	}
	spin.Stop()
	for _, path := range paths {
		printFile(path)
	}
	printStats(result.Stats, result.CacheInfo.RenderHit)
	prog.done(fmt.Sprintf("Rendered %d zones", result.Stats.ZoneCount))
	return nil
}

// outputPath appends the format extension to base unless base already
// carries it.
func outputPath(base string, f sink.Format) string {
	if strings.EqualFold(filepath.Ext(base), f.Ext()) {
		return base
	}
	return base + f.Ext()
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// follow runs r once, then keeps the zone set current until ctx ends:
// file sources are watched, everything else is polled on the refresh
// schedule.
func (c *CLI) follow(ctx context.Context, cfg *config.Config, r *refresh.Refresher) error {
	if _, err := r.Run(ctx); err != nil {
		c.Logger.Error("initial load failed", "err", err)
	}

	if cfg.Source.Kind == source.KindFile {
		w, err := refresh.NewWatcher(r, cfg.Source.Path)
		if err != nil {
			return err
		}
		return w.Run(ctx)
	}

	if cfg.Refresh.Schedule == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "refresh.schedule is empty; nothing to follow for %s sources", cfg.Source.Kind)
	}
	p, err := refresh.NewPoller(r, cfg.Refresh.Schedule, refresh.DefaultTimeout)
	if err != nil {
		return err
	}
	p.Start()
	defer p.Stop()
	c.Logger.Info("polling zone source", "schedule", cfg.Refresh.Schedule, "next", p.Next().Format("15:04:05"))

	<-ctx.Done()
	return nil
}
