// Package source loads zone sets for the treemap.
//
// Three backends exist, all behind [Source]:
//
//   - [File]: a JSON document on disk, either a bare array or the API
//     envelope
//   - api.Client: the zone scanner's HTTP API
//   - sqlite.Store: the scanner's database, read directly
//
// Backends that can change flag state also implement [Flagger]; those that
// can show a zone's score history implement [Detailer]. [Open] builds a
// backend from a [Spec], usually taken from the config file.
package source

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/httputil"
	"github.com/matzehuels/zonemap/pkg/observability"
	"github.com/matzehuels/zonemap/pkg/source/api"
	"github.com/matzehuels/zonemap/pkg/source/sqlite"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// Source yields the current zone set, ordered as the backend orders it.
type Source interface {
	Name() string
	Zones(ctx context.Context) ([]zone.Zone, error)
}

// Flagger toggles the flag of a zone and returns the new state.
type Flagger interface {
	ToggleFlag(ctx context.Context, id int64) (bool, error)
}

// Detailer returns a zone together with its score history.
type Detailer interface {
	Detail(ctx context.Context, id int64) (zone.Detail, error)
}

// Completed lists zones that finished within the last days days.
type Completed interface {
	CompletedZones(ctx context.Context, days int) ([]zone.Zone, error)
}

// Backend kinds accepted by [Open].
const (
	KindFile   = "file"
	KindAPI    = "api"
	KindSQLite = "sqlite"
)

// DefaultCompletedDays is the look-back window for completed zones.
const DefaultCompletedDays = 21

// Spec selects and configures a backend.
type Spec struct {
	Kind string
	// Path is the JSON file or SQLite database.
	Path string
	// URL is the API base URL.
	URL    string
	Token  string
	Cookie string

	// Completed switches the source to completed zones of the last Days
	// days. Only the api and sqlite backends support it.
	Completed bool
	Days      int

	// Stash keeps the last good API response for offline fallback.
	Stash  *httputil.Cache
	Logger *log.Logger
}

// Open builds the backend described by spec. The caller closes the result
// with [Close] when done.
func Open(ctx context.Context, spec Spec) (Source, error) {
	logger := spec.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var src Source
	switch spec.Kind {
	case KindFile, "":
		if spec.Path == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "file source needs a path")
		}
		src = NewFile(spec.Path, logger)
	case KindAPI:
		c, err := api.New(api.Options{
			BaseURL: spec.URL,
			Token:   spec.Token,
			Cookie:  spec.Cookie,
			Stash:   spec.Stash,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		src = c
	case KindSQLite:
		st, err := sqlite.Open(ctx, spec.Path)
		if err != nil {
			return nil, err
		}
		src = st
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown source kind %q", spec.Kind)
	}

	if !spec.Completed {
		return src, nil
	}
	cz, ok := src.(Completed)
	if !ok {
		Close(src)
		return nil, errors.New(errors.ErrCodeUnsupported, "%s source cannot list completed zones", spec.Kind)
	}
	days := spec.Days
	if days <= 0 {
		days = DefaultCompletedDays
	}
	return &completedView{Source: src, lister: cz, days: days}, nil
}

// Close releases the backend if it holds resources.
func Close(src Source) error {
	if v, ok := src.(*completedView); ok {
		src = v.Source
	}
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// completedView serves completed zones through [Source.Zones]. Flag and
// detail calls reach the wrapped backend.
type completedView struct {
	Source
	lister Completed
	days   int
}

func (v *completedView) Name() string { return v.Source.Name() + " (completed)" }

func (v *completedView) Zones(ctx context.Context) ([]zone.Zone, error) {
	return v.lister.CompletedZones(ctx, v.days)
}

func (v *completedView) ToggleFlag(ctx context.Context, id int64) (bool, error) {
	f, ok := v.Source.(Flagger)
	if !ok {
		return false, errors.New(errors.ErrCodeUnsupported, "%s cannot toggle flags", v.Source.Name())
	}
	return f.ToggleFlag(ctx, id)
}

func (v *completedView) Detail(ctx context.Context, id int64) (zone.Detail, error) {
	d, ok := v.Source.(Detailer)
	if !ok {
		return zone.Detail{}, errors.New(errors.ErrCodeUnsupported, "%s cannot show details", v.Source.Name())
	}
	return d.Detail(ctx, id)
}

// Load fetches the zone set from src, reporting to the pipeline hooks.
func Load(ctx context.Context, src Source) ([]zone.Zone, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, src.Name())
	start := time.Now()
	zones, err := src.Zones(ctx)
	hooks.OnLoadComplete(ctx, src.Name(), len(zones), time.Since(start), err)
	return zones, err
}
