package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

type zonesResponse struct {
	Success   bool        `json:"success"`
	Zones     []zone.Zone `json:"zones"`
	UpdatedAt string      `json:"updated_at,omitempty"`
}

type detailResponse struct {
	Success bool        `json:"success"`
	Detail  zone.Detail `json:"detail"`
}

type flagResponse struct {
	Success   bool `json:"success"`
	IsFlagged bool `json:"is_flagged"`
}

type errorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    errors.Code `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// handleTreemap renders the current zone set. The width query parameter
// sets the viewport width; cols and rows size term output. Responses carry
// an ETag derived from the zone set so polling clients get 304s while
// nothing changes.
func (s *Server) handleTreemap(w http.ResponseWriter, r *http.Request) {
	f, err := sink.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := s.cfg.Options
	opts.Formats = []sink.Format{f}
	opts.Height = 0
	opts.Interactive = false
	if v := r.URL.Query().Get("width"); v != "" {
		width, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(width) {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "width must be a number, got %q", v))
			return
		}
		opts.Width = math.Round(width)
	}
	if f == sink.FormatTerminal {
		opts.Cols = queryInt(r, "cols", 0)
		opts.Rows = queryInt(r, "rows", 0)
	}

	zones, _ := s.Zones()
	result, err := s.cfg.Runner.Execute(r.Context(), zones, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if result.ZonesHash != "" {
		etag := `"` + result.ZonesHash[:16] + "-" + strconv.FormatFloat(result.Scene.Width, 'f', 0, 64) + "-" + string(f) + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(result.Artifacts[f])
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	zones, updated := s.Zones()
	if zones == nil {
		zones = []zone.Zone{}
	}
	resp := zonesResponse{Success: true, Zones: zones}
	if !updated.IsZero() {
		resp.UpdatedAt = updated.UTC().Format("2006-01-02T15:04:05Z")
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleZone returns the detail of one zone. Sources without score
// history answer with the zone from the current set.
func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	id, err := zoneID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if d, ok := s.cfg.Source.(source.Detailer); ok {
		detail, err := d.Detail(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, detailResponse{Success: true, Detail: detail})
		return
	}

	zones, _ := s.Zones()
	for _, z := range zones {
		if z.ID == id {
			s.writeJSON(w, http.StatusOK, detailResponse{Success: true, Detail: zone.Detail{Zone: z}})
			return
		}
	}
	s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "zone %d not found", id))
}

// handleFlag toggles a zone's flag and reloads the zone set so the next
// treemap shows the new glyph.
func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	id, err := zoneID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, ok := s.cfg.Source.(source.Flagger)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "%s cannot toggle flags", s.cfg.Source.Name()))
		return
	}

	flagged, err := f.ToggleFlag(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("toggled flag", "zone", id, "flagged", flagged)
	if err := s.reload(r.Context()); err != nil {
		s.logger.Warn("reload after flag toggle failed", "zone", id, "err", err)
	}
	s.writeJSON(w, http.StatusOK, flagResponse{Success: true, IsFlagged: flagged})
}

func zoneID(r *http.Request) (int64, error) {
	v := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "zone id must be an integer, got %q", v)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}
