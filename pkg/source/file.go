package source

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// File serves zones from a JSON document. Flag toggles rewrite the file as
// a bare array. File has no score history, so [File.Detail] returns the
// zone alone.
type File struct {
	path   string
	logger *log.Logger

	mu sync.Mutex
}

// NewFile returns a file source for path. The file is read on every call
// to Zones, so edits show up on the next refresh.
func NewFile(path string, logger *log.Logger) *File {
	return &File{path: path, logger: logger}
}

// Path returns the watched file.
func (f *File) Path() string { return f.path }

// Name implements [Source].
func (f *File) Name() string { return "file:" + f.path }

// Zones implements [Source].
func (f *File) Zones(ctx context.Context) ([]zone.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(ctx)
}

func (f *File) read(ctx context.Context) ([]zone.Zone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zones, rep, err := zone.ImportJSON(f.path)
	if err != nil {
		return nil, err
	}
	rep.Log(f.logger, f.Name())
	return zones, nil
}

// ToggleFlag implements [Flagger].
func (f *File) ToggleFlag(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	zones, err := f.read(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(zones, id)
	if i < 0 {
		return false, errors.New(errors.ErrCodeNotFound, "zone %d not in %s", id, f.path)
	}
	zones[i].IsFlagged = !zones[i].IsFlagged
	if err := zone.ExportJSON(zones, f.path); err != nil {
		return false, err
	}
	return zones[i].IsFlagged, nil
}

// Detail implements [Detailer].
func (f *File) Detail(ctx context.Context, id int64) (zone.Detail, error) {
	zones, err := f.Zones(ctx)
	if err != nil {
		return zone.Detail{}, err
	}
	i := indexOf(zones, id)
	if i < 0 {
		return zone.Detail{}, errors.New(errors.ErrCodeNotFound, "zone %d not in %s", id, f.path)
	}
	return zone.Detail{Zone: zones[i]}, nil
}

func indexOf(zones []zone.Zone, id int64) int {
	for i, z := range zones {
		if z.ID == id {
			return i
		}
	}
	return -1
}
