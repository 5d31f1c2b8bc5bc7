package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/zone"
)

func writeZones(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileZones(t *testing.T) {
	path := writeZones(t, `{"success": true, "zones": [
		{"id": 1, "ticker": "THYAO", "score": 72},
		"garbage",
		{"id": 2, "ticker": "SISE", "score": "n/a"}
	]}`)
	f := NewFile(path, nil)

	zones, err := f.Zones(context.Background())
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}
	if zones[1].Score != 0 {
		t.Errorf("malformed score should be zero, got %v", zones[1].Score)
	}
}

func TestFileToggleFlag(t *testing.T) {
	path := writeZones(t, `[{"id": 1, "ticker": "THYAO", "score": 72}]`)
	f := NewFile(path, nil)
	ctx := context.Background()

	flagged, err := f.ToggleFlag(ctx, 1)
	if err != nil || !flagged {
		t.Fatalf("ToggleFlag = %v, %v", flagged, err)
	}
	zones, _, err := zone.ImportJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if !zones[0].IsFlagged {
		t.Error("flag not written back")
	}

	if _, err := f.ToggleFlag(ctx, 42); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown id: err = %v, want NOT_FOUND", err)
	}
}

func TestFileDetail(t *testing.T) {
	path := writeZones(t, `[{"id": 8, "ticker": "EREGL", "score": 51}]`)
	f := NewFile(path, nil)

	d, err := f.Detail(context.Background(), 8)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if d.Zone.Ticker != "EREGL" || len(d.History) != 0 {
		t.Errorf("detail = %+v", d)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := writeZones(t, `[]`)

	tests := []struct {
		name string
		spec Spec
		code errors.Code
	}{
		{"file", Spec{Kind: KindFile, Path: path}, ""},
		{"default kind", Spec{Path: path}, ""},
		{"file without path", Spec{Kind: KindFile}, errors.ErrCodeInvalidConfig},
		{"api without url", Spec{Kind: KindAPI}, errors.ErrCodeInvalidInput},
		{"unknown kind", Spec{Kind: "ftp"}, errors.ErrCodeInvalidConfig},
		{"completed file", Spec{Kind: KindFile, Path: path, Completed: true}, errors.ErrCodeUnsupported},
		{"sqlite", Spec{Kind: KindSQLite, Path: filepath.Join(t.TempDir(), "z.db")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(ctx, tt.spec)
			if tt.code != "" {
				if !errors.Is(err, tt.code) {
					t.Errorf("err = %v, want %s", err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := Close(src); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

func TestOpenCompletedSQLite(t *testing.T) {
	ctx := context.Background()
	src, err := Open(ctx, Spec{Kind: KindSQLite, Path: filepath.Join(t.TempDir(), "z.db"), Completed: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(src)

	if got := src.Name(); got[len(got)-len("(completed)"):] != "(completed)" {
		t.Errorf("Name = %q", got)
	}
	if _, ok := src.(Flagger); !ok {
		t.Error("completed view should still toggle flags")
	}
}
