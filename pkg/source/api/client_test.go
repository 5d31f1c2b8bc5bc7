package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/httputil"
)

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	if opts.Delay == 0 {
		opts.Delay = time.Millisecond
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://scanner", "scanner.local"} {
		if _, err := New(Options{BaseURL: u}); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("New(%q) err = %v, want INVALID_INPUT", u, err)
		}
	}
}

func TestZones(t *testing.T) {
	var auth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/active-zones", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success": true, "zones": [
			{"id": 3, "ticker": "THYAO", "score": 81.2, "score_change": -0.5, "last_comment": null},
			{"id": 4, "ticker": "SISE", "score": "44"}
		]}`))
	})
	c := newTestClient(t, mux, Options{Token: "s3cret"})

	zones, err := c.Zones(context.Background())
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zones) != 2 || zones[0].Ticker != "THYAO" || zones[1].Score != 44 {
		t.Errorf("zones = %+v", zones)
	}
	if auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestCompletedZonesDays(t *testing.T) {
	var days string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/completed-zones", func(w http.ResponseWriter, r *http.Request) {
		days = r.URL.Query().Get("days")
		w.Write([]byte(`{"success": true, "zones": []}`))
	})
	c := newTestClient(t, mux, Options{})

	zones, err := c.CompletedZones(context.Background(), 7)
	if err != nil {
		t.Fatalf("CompletedZones: %v", err)
	}
	if len(zones) != 0 || days != "7" {
		t.Errorf("zones = %v, days = %q", zones, days)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id": 1, "ticker": "AKBNK", "score": 60}]`))
	})
	c := newTestClient(t, h, Options{Attempts: 3})

	zones, err := c.Zones(context.Background())
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zones) != 1 || calls.Load() != 3 {
		t.Errorf("zones = %d, calls = %d", len(zones), calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestClient(t, h, Options{Attempts: 3})

	_, err := c.Zones(context.Background())
	if !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("err = %v, want UNAUTHORIZED", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestStashFallback(t *testing.T) {
	stash, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	var down atomic.Bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success": true, "zones": [{"id": 9, "ticker": "EREGL", "score": 72}]}`))
	})
	c := newTestClient(t, h, Options{Stash: stash, Attempts: 2})

	if _, err := c.Zones(context.Background()); err != nil {
		t.Fatalf("first Zones: %v", err)
	}
	down.Store(true)
	zones, err := c.Zones(context.Background())
	if err != nil {
		t.Fatalf("Zones while down: %v", err)
	}
	if len(zones) != 1 || zones[0].ID != 9 {
		t.Errorf("stashed zones = %+v", zones)
	}
}

func TestDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/zone/5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true,
			"zone": {"id": 5, "ticker": "TUPRS", "score": 66},
			"history": [{"date": "2026-10-01", "score": 60, "score_change": 0},
			            {"date": "2026-10-02", "score": 66, "score_change": 6}]}`))
	})
	mux.HandleFunc("GET /api/zone/6", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success": false, "error": "Zone not found"}`))
	})
	c := newTestClient(t, mux, Options{})

	d, err := c.Detail(context.Background(), 5)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if d.Zone.Ticker != "TUPRS" || len(d.History) != 2 || d.History[1].ScoreChange != 6 {
		t.Errorf("detail = %+v", d)
	}

	if _, err := c.Detail(context.Background(), 6); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing zone: err = %v, want NOT_FOUND", err)
	}
}

func TestToggleFlag(t *testing.T) {
	var calls atomic.Int32
	flagged := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/zone/{id}/flag", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.PathValue("id") != "12" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		flagged = !flagged
		if flagged {
			w.Write([]byte(`{"success": true, "is_flagged": true}`))
			return
		}
		w.Write([]byte(`{"success": true, "is_flagged": false}`))
	})
	c := newTestClient(t, mux, Options{})

	got, err := c.ToggleFlag(context.Background(), 12)
	if err != nil || !got {
		t.Fatalf("first toggle = %v, %v; want true", got, err)
	}
	got, err = c.ToggleFlag(context.Background(), 12)
	if err != nil || got {
		t.Fatalf("second toggle = %v, %v; want false", got, err)
	}
	if _, err := c.ToggleFlag(context.Background(), 13); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown zone: err = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}
