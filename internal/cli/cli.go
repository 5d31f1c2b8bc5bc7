// Package cli implements the zonemap command-line interface.
//
// # Commands
//
//   - render: lay out the zone set and write SVG, PNG, PDF, JSON or text files
//   - serve: serve an interactive treemap page and the zone endpoints
//   - view: browse the treemap in the terminal
//   - zones: print the zone set as a table
//   - db: create and fill a SQLite zone database
//   - cache: inspect and clear the artifact cache
//   - config: print or write the configuration
//
// Settings come from a TOML file (see package config); the source flags on
// the root command override it for one run.
package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/zonemap/pkg/buildinfo"
	"github.com/matzehuels/zonemap/pkg/cache"
	"github.com/matzehuels/zonemap/pkg/config"
	"github.com/matzehuels/zonemap/pkg/httputil"
	"github.com/matzehuels/zonemap/pkg/pipeline"
	"github.com/matzehuels/zonemap/pkg/source"
)

// appName prefixes cache keys and names directories.
const appName = "zonemap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
	src        sourceFlags
}

// sourceFlags override the [source] section of the configuration.
type sourceFlags struct {
	file      string
	api       string
	db        string
	completed bool
	days      int
}

// New creates a CLI that logs to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "zonemap draws scored accumulation zones as a treemap",
		Long: `zonemap lays out accumulation zones as a squarified treemap: each zone
gets a rectangle proportional to its score, coloured by score tier and
labelled as far as its size allows.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			if c.Logger.GetLevel() <= log.DebugLevel {
				registerDebugHooks(c.Logger)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/zonemap/config.toml)")
	pf.StringVar(&c.src.file, "file", "", "read zones from a JSON file")
	pf.StringVar(&c.src.api, "api", "", "read zones from a scanner API base URL")
	pf.StringVar(&c.src.db, "db", "", "read zones from a SQLite database")
	pf.BoolVar(&c.src.completed, "completed", false, "show completed zones instead of active ones")
	pf.IntVar(&c.src.days, "days", 0, "look-back window in days for --completed")
	root.MarkFlagsMutuallyExclusive("file", "api", "db")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.zonesCommand())
	root.AddCommand(c.dbCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration and applies the root flags. It does
// not validate; commands that use a section validate it.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	switch {
	case c.src.file != "":
		cfg.Source.Kind, cfg.Source.Path = source.KindFile, c.src.file
	case c.src.api != "":
		cfg.Source.Kind, cfg.Source.URL = source.KindAPI, c.src.api
	case c.src.db != "":
		cfg.Source.Kind, cfg.Source.Path = source.KindSQLite, c.src.db
	}
	if cmd.Flags().Changed("completed") {
		cfg.Source.Completed = c.src.completed
	}
	if cmd.Flags().Changed("days") {
		cfg.Source.Days = c.src.days
	}

	c.cfg = cfg
	return nil
}

// validConfig returns the validated configuration.
func (c *CLI) validConfig() (*config.Config, error) {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	return c.cfg, nil
}

// cacheDir returns the configured cache directory.
func (c *CLI) cacheDir() string {
	if c.cfg != nil && c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir
	}
	return cache.DefaultDir()
}

// newCache opens the configured artifact cache backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.cfg == nil || c.cfg.Cache.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.cfg.Cache.RedisAddr,
			Password: c.cfg.Cache.RedisPassword,
			DB:       c.cfg.Cache.RedisDB,
			Prefix:   appName + ":",
		})
	default:
		return cache.NewFileCache(filepath.Join(c.cacheDir(), "artifacts"))
	}
}

// newRunner creates a pipeline runner. Keys are scoped by release so a new
// renderer never serves artifacts drawn by an old one.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, cache.NewScopedKeyer(nil, buildinfo.Version+":"), c.Logger), nil
}

// openSource opens the configured zone source. API sources get a response
// stash under the cache directory for offline fallback.
func (c *CLI) openSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	spec := cfg.SourceSpec()
	spec.Logger = c.Logger
	if spec.Kind == source.KindAPI && cfg.Cache.Backend != config.CacheNone {
		stash, err := httputil.NewCache(filepath.Join(c.cacheDir(), "http"), cfg.Cache.TTL.Duration)
		if err != nil {
			c.Logger.Debug("API responses will not be stashed", "err", err)
		} else {
			spec.Stash = stash
		}
	}
	return source.Open(ctx, spec)
}

// pipelineOptions converts the configuration into pipeline options.
func pipelineOptions(cfg *config.Config, logger *log.Logger) (pipeline.Options, error) {
	formats, err := cfg.Formats()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Width:            cfg.Layout.Width,
		InnerPadding:     cfg.Layout.InnerPadding,
		OuterPadding:     cfg.Layout.OuterPadding,
		Palette:          cfg.Palette,
		CommentCharWidth: cfg.Render.CommentCharWidth,
		CornerRadius:     cfg.Render.CornerRadius,
		Formats:          formats,
		Scale:            cfg.Render.Scale,
		Logger:           logger,
	}, nil
}
