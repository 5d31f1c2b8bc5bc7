package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/matzehuels/zonemap/pkg/cache"
	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/observability"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/viewport"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner may serve concurrent runs with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching; a nil keyer
// means [cache.DefaultKeyer]. The cache is instrumented so hits and misses
// reach the registered hooks.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: cache.Instrument(c), Keyer: keyer, Logger: logger}
}

// Load reads the zone set from src. A successful load is remembered in the
// cache; when src later fails with a network or timeout error the
// remembered set is returned instead, together with a warning.
func (r *Runner) Load(ctx context.Context, src source.Source) ([]zone.Zone, error) {
	key := r.Keyer.ZonesKey(src.Name())

	zones, err := source.Load(ctx, src)
	if err == nil {
		if data, merr := json.Marshal(zones); merr == nil {
			if serr := r.Cache.Set(ctx, key, data, ZonesTTL); serr != nil {
				r.Logger.Debug("could not remember zone set", "source", src.Name(), "err", serr)
			}
		}
		return zones, nil
	}

	if !errors.Is(err, errors.ErrCodeNetwork) && !errors.Is(err, errors.ErrCodeTimeout) {
		return nil, err
	}
	data, hit, cerr := r.Cache.Get(ctx, key)
	if cerr != nil || !hit {
		return nil, err
	}
	var last []zone.Zone
	if uerr := json.Unmarshal(data, &last); uerr != nil {
		return nil, err
	}
	r.Logger.Warn("source unavailable, using last loaded zones", "source", src.Name(), "zones", len(last), "err", err)
	return last, nil
}

// Execute lays out zones and renders every requested format.
func (r *Runner) Execute(ctx context.Context, zones []zone.Zone, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()

	zonesHash, err := cache.HashJSON(zones)
	if err != nil {
		// Non-finite numbers have no JSON form; render without caching.
		opts.Logger.Debug("zone set not hashable, skipping artifact cache", "err", err)
		opts.Refresh = true
	}
	result := &Result{ZonesHash: zonesHash}

	hooks.OnLayoutStart(ctx, len(zones))
	layoutStart := time.Now()
	scene, err := Layout(zones, opts)
	if err != nil {
		hooks.OnLayoutComplete(ctx, 0, 0, time.Since(layoutStart), err)
		return nil, err
	}
	layoutTime := time.Since(layoutStart)
	hooks.OnLayoutComplete(ctx, len(scene.Cells), scene.Dropped, layoutTime, nil)
	result.Scene = scene

	opts.Logger.Debug("computed layout",
		"zones", len(zones),
		"cells", len(scene.Cells),
		"dropped", scene.Dropped,
		"duration", layoutTime)

	formats := make([]string, len(opts.Formats))
	for i, f := range opts.Formats {
		formats[i] = string(f)
	}
	hooks.OnRenderStart(ctx, formats)
	renderStart := time.Now()
	artifacts, info, err := r.render(ctx, scene, zonesHash, opts)
	hooks.OnRenderComplete(ctx, formats, time.Since(renderStart), err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo = info

	result.Stats = computeStats(zones, scene)
	result.Stats.LayoutTime = layoutTime
	result.Stats.RenderTime = time.Since(renderStart)

	opts.Logger.Debug("rendered outputs",
		"formats", formats,
		"cached", len(info.Hits),
		"duration", result.Stats.RenderTime)
	return result, nil
}

// render serves each format from the cache when possible and renders the
// rest from scene. Cached artifacts carry the scene id of the run that
// produced them.
func (r *Runner) render(ctx context.Context, scene *viewport.Scene, zonesHash string, opts Options) (map[sink.Format][]byte, CacheInfo, error) {
	sceneKey := r.Keyer.SceneKey(zonesHash, opts.SceneKeyOpts())
	artifacts := make(map[sink.Format][]byte, len(opts.Formats))
	var info CacheInfo

	var missing []sink.Format
	for _, f := range opts.Formats {
		if !opts.Refresh {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(sceneKey, opts.ArtifactKeyOpts(f)))
			if err == nil && hit {
				artifacts[f] = data
				info.Hits = append(info.Hits, f)
				continue
			}
		}
		missing = append(missing, f)
	}
	if len(missing) == 0 {
		info.RenderHit = true
		return artifacts, info, nil
	}

	rendered, err := renderFormats(ctx, scene, missing, opts.SinkOptions())
	if err != nil {
		return nil, info, err
	}
	for f, data := range rendered {
		artifacts[f] = data
		if zonesHash == "" {
			continue
		}
		if err := r.Cache.Set(ctx, r.Keyer.ArtifactKey(sceneKey, opts.ArtifactKeyOpts(f)), data, ArtifactTTL); err != nil {
			opts.Logger.Debug("could not cache artifact", "format", f, "err", err)
		}
	}
	return artifacts, info, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
