package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/matzehuels/zonemap/pkg/cache"
	"github.com/matzehuels/zonemap/pkg/pipeline"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

const testZones = `[
	{"id": 1, "ticker": "THYAO", "score": 82, "candle_count": 14},
	{"id": 2, "ticker": "SISE", "score": 55, "candle_count": 9},
	{"id": 3, "ticker": "ASELS", "score": 31}
]`

func newTestServer(t *testing.T, src source.Source) *Server {
	t.Helper()
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
	s := New(Config{Runner: runner, Source: src, Options: pipeline.Options{Width: 800}})

	zones, err := runner.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.SetZones(context.Background(), zones); err != nil {
		t.Fatal(err)
	}
	return s
}

func fileSource(t *testing.T) *source.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.json")
	if err := os.WriteFile(path, []byte(testZones), 0o644); err != nil {
		t.Fatal(err)
	}
	return source.NewFile(path, nil)
}

func do(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// staticSource has no flag or detail support.
type staticSource []zone.Zone

func (s staticSource) Name() string { return "static" }

func (s staticSource) Zones(context.Context) ([]zone.Zone, error) { return s, nil }

func TestHealth(t *testing.T) {
	s := newTestServer(t, staticSource(nil))
	rec := do(t, s.Handler(), "GET", "/healthz", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, staticSource(nil))
	rec := do(t, s.Handler(), "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>zonemap</title>", "treemap.svg?width=", "60000", "250"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestTreemap(t *testing.T) {
	s := newTestServer(t, fileSource(t))
	h := s.Handler()

	rec := do(t, h, "GET", "/treemap.svg?width=640.4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="zonemap"`) || !strings.Contains(body, `data-zone="1"`) {
		t.Error("svg is missing the treemap or its cells")
	}
	if strings.Contains(body, "<script") {
		t.Error("served svg should not embed the click script")
	}

	etag := rec.Header().Get("ETag")
	if !strings.Contains(etag, "-640-svg") {
		t.Fatalf("ETag = %q, want rounded width and format", etag)
	}
	rec = do(t, h, "GET", "/treemap.svg?width=640", http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusNotModified {
		t.Errorf("matching ETag: status = %d, want 304", rec.Code)
	}
	rec = do(t, h, "GET", "/treemap.svg?width=900", http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusOK {
		t.Errorf("new width: status = %d, want 200", rec.Code)
	}

	rec = do(t, h, "GET", "/treemap.json", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("json: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestTreemapErrors(t *testing.T) {
	s := newTestServer(t, staticSource(nil))

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown format", "/treemap.gif", http.StatusBadRequest, "INVALID_INPUT"},
		{"width not a number", "/treemap.svg?width=wide", http.StatusBadRequest, "INVALID_INPUT"},
		{"negative width", "/treemap.svg?width=-10", http.StatusBadRequest, "INVALID_INPUT"},
		{"width too large", "/treemap.svg?width=100000", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), "GET", tt.target, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			resp := decode[errorResponse](t, rec)
			if resp.Success || string(resp.Code) != tt.code || resp.Error == "" {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}

func TestEmptyZoneSet(t *testing.T) {
	s := newTestServer(t, staticSource(nil))

	rec := do(t, s.Handler(), "GET", "/zones", nil)
	resp := decode[zonesResponse](t, rec)
	if !resp.Success || resp.Zones == nil || len(resp.Zones) != 0 {
		t.Errorf("zones = %+v, want an empty list", resp)
	}
	if !strings.Contains(rec.Body.String(), `"zones":[]`) {
		t.Errorf("empty set should encode as [], got %s", rec.Body.String())
	}

	if rec := do(t, s.Handler(), "GET", "/treemap.svg", nil); rec.Code != http.StatusOK {
		t.Errorf("empty treemap status = %d", rec.Code)
	}
}

func TestZoneDetail(t *testing.T) {
	s := newTestServer(t, fileSource(t))
	h := s.Handler()

	rec := do(t, h, "GET", "/zones/2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[detailResponse](t, rec); got.Detail.Zone.Ticker != "SISE" {
		t.Errorf("ticker = %q, want SISE", got.Detail.Zone.Ticker)
	}

	if rec := do(t, h, "GET", "/zones/99", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, "GET", "/zones/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestZoneDetailFallsBackToZoneSet(t *testing.T) {
	s := newTestServer(t, staticSource{{ID: 5, Ticker: "KCHOL", Score: 40}})

	rec := do(t, s.Handler(), "GET", "/zones/5", nil)
	if got := decode[detailResponse](t, rec); got.Detail.Zone.Ticker != "KCHOL" || len(got.Detail.History) != 0 {
		t.Errorf("detail = %+v", got.Detail)
	}
}

func TestFlag(t *testing.T) {
	s := newTestServer(t, fileSource(t))
	h := s.Handler()

	rec := do(t, h, "POST", "/zones/3/flag", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[flagResponse](t, rec); !got.Success || !got.IsFlagged {
		t.Errorf("flag response = %+v", got)
	}

	zones, _ := s.Zones()
	for _, z := range zones {
		if z.ID == 3 && !z.IsFlagged {
			t.Error("zone set not reloaded after toggle")
		}
	}

	if got := decode[flagResponse](t, do(t, h, "POST", "/zones/3/flag", nil)); got.IsFlagged {
		t.Error("second toggle should clear the flag")
	}
	if rec := do(t, h, "GET", "/zones/3/flag", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET flag: status = %d, want 405", rec.Code)
	}
}

func TestFlagUnsupported(t *testing.T) {
	s := newTestServer(t, staticSource{{ID: 1, Ticker: "A", Score: 10}})

	rec := do(t, s.Handler(), "POST", "/zones/1/flag", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Code != "UNSUPPORTED" {
		t.Errorf("code = %q", got.Code)
	}
}

func TestCORS(t *testing.T) {
	runner := pipeline.NewRunner(nil, nil, nil)
	s := New(Config{Runner: runner, Source: staticSource(nil), AllowedOrigins: []string{"https://desk.example.com"}})

	rec := do(t, s.Handler(), "GET", "/zones", http.Header{"Origin": {"https://desk.example.com"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://desk.example.com" {
		t.Errorf("allowed origin header = %q", got)
	}
	rec = do(t, s.Handler(), "GET", "/zones", http.Header{"Origin": {"https://evil.example.com"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got %q", got)
	}
}
