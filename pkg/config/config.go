// Package config loads zonemap settings from a TOML file.
//
// Every key is optional; [Load] starts from [Default] and overlays what the
// file sets. Command-line flags override the result. A minimal file:
//
//	[source]
//	kind = "api"
//	url = "https://scanner.example.com"
//
//	[palette]
//	strong = 75
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/treemap"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

// EnvToken overrides [SourceConfig.Token] so tokens stay out of files.
const EnvToken = "ZONEMAP_API_TOKEN"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Duration is a time.Duration written as a string ("250ms", "5m") in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Config is the full configuration.
type Config struct {
	Layout   LayoutConfig   `toml:"layout"`
	Render   RenderConfig   `toml:"render"`
	Palette  palette.Scale  `toml:"palette"`
	Viewport ViewportConfig `toml:"viewport"`
	Source   SourceConfig   `toml:"source"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

type LayoutConfig struct {
	// Width is the viewport width in pixels; height is derived.
	Width        float64 `toml:"width"`
	InnerPadding float64 `toml:"inner_padding"`
	OuterPadding float64 `toml:"outer_padding"`
}

type RenderConfig struct {
	CommentCharWidth float64  `toml:"comment_char_width"`
	CornerRadius     float64  `toml:"corner_radius"`
	Formats          []string `toml:"formats"`
	// Scale is the PNG scale factor.
	Scale  float64 `toml:"scale"`
	Output string  `toml:"output"`
}

type ViewportConfig struct {
	Debounce Duration `toml:"debounce"`
}

type SourceConfig struct {
	Kind      string `toml:"kind"`
	Path      string `toml:"path"`
	URL       string `toml:"url"`
	Token     string `toml:"token"`
	Cookie    string `toml:"cookie"`
	Completed bool   `toml:"completed"`
	Days      int    `toml:"days"`
}

type RefreshConfig struct {
	// Schedule is a cron spec; empty disables polling.
	Schedule string `toml:"schedule"`
	// Watch re-renders when a file source changes on disk.
	Watch bool `toml:"watch"`
}

type CacheConfig struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	// PollInterval is how often the browser page reloads the treemap.
	PollInterval Duration `toml:"poll_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{Width: 1200, InnerPadding: 2, OuterPadding: 4},
		Render: RenderConfig{
			CommentCharWidth: cell.DefaultCommentCharWidth,
			CornerRadius:     cell.DefaultCornerRadius,
			Formats:          []string{string(sink.FormatSVG)},
			Scale:            2,
			Output:           "zonemap",
		},
		Palette:  palette.Default,
		Viewport: ViewportConfig{Debounce: Duration{250 * time.Millisecond}},
		Source:   SourceConfig{Kind: source.KindFile, Path: "zones.json", Days: source.DefaultCompletedDays},
		Refresh:  RefreshConfig{Schedule: "@every 5m"},
		Cache:    CacheConfig{Backend: CacheFile, TTL: Duration{10 * time.Minute}, RedisAddr: "localhost:6379"},
		Server:   ServerConfig{Addr: ":8080", PollInterval: Duration{time.Minute}},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/zonemap/config.toml, falling back to
// ~/.config.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zonemap", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "zonemap", "config.toml")
}

// Load reads the file at path over the defaults. An empty path means
// [DefaultPath], which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case os.IsNotExist(err) && !explicit:
		// defaults only
	case os.IsNotExist(err):
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	default:
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undec[0].String())
		}
	}

	if tok := os.Getenv(EnvToken); tok != "" {
		cfg.Source.Token = tok
	}
	return cfg, nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := errors.ValidateDimensions(c.Layout.Width, viewport.HeightFor(c.Layout.Width)); err != nil {
		return err
	}
	if err := errors.ValidatePadding(c.Layout.InnerPadding, c.Layout.OuterPadding); err != nil {
		return err
	}
	if err := c.Palette.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "palette")
	}
	if c.Render.CommentCharWidth <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render.comment_char_width must be positive")
	}
	if c.Render.CornerRadius < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render.corner_radius must be >= 0")
	}
	if c.Render.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render.scale must be positive")
	}
	if _, err := c.Formats(); err != nil {
		return err
	}
	if c.Viewport.Debounce.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "viewport.debounce must be >= 0")
	}

	switch c.Source.Kind {
	case source.KindFile, source.KindSQLite:
		if c.Source.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "source.path is required for %s sources", c.Source.Kind)
		}
	case source.KindAPI:
		if err := errors.ValidateURL(c.Source.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "source.url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "source.kind must be file, api or sqlite, got %q", c.Source.Kind)
	}
	if c.Source.Days < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "source.days must be >= 0")
	}

	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "refresh.schedule %q", c.Refresh.Schedule)
		}
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	return nil
}

// Formats parses the configured output formats.
func (c *Config) Formats() ([]sink.Format, error) {
	out := make([]sink.Format, 0, len(c.Render.Formats))
	for _, s := range c.Render.Formats {
		f, err := sink.ParseFormat(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.formats")
		}
		out = append(out, f)
	}
	return out, nil
}

// Padding returns the layout padding.
func (c *Config) Padding() treemap.Padding {
	return treemap.Padding{Inner: c.Layout.InnerPadding, Outer: c.Layout.OuterPadding}
}

// Renderer returns the cell renderer configured by the render and palette
// sections.
func (c *Config) Renderer() cell.Renderer {
	return cell.Renderer{
		Scale:            c.Palette,
		CommentCharWidth: c.Render.CommentCharWidth,
		CornerRadius:     c.Render.CornerRadius,
	}
}

// SourceSpec converts the source section for [source.Open].
func (c *Config) SourceSpec() source.Spec {
	return source.Spec{
		Kind:      c.Source.Kind,
		Path:      c.Source.Path,
		URL:       c.Source.URL,
		Token:     c.Source.Token,
		Cookie:    c.Source.Cookie,
		Completed: c.Source.Completed,
		Days:      c.Source.Days,
	}
}

// Write encodes the configuration as TOML. Secrets are left out.
func (c *Config) Write(w io.Writer) error {
	out := *c
	out.Source.Token, out.Source.Cookie, out.Cache.RedisPassword = "", "", ""
	fmt.Fprintln(w, "# zonemap configuration")
	fmt.Fprintf(w, "# Set %s instead of storing the API token here.\n\n", EnvToken)
	return toml.NewEncoder(w).Encode(out)
}
