package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed assets/index.html.tmpl
var assets embed.FS

var indexTmpl = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))

type indexData struct {
	Title          string
	PollMillis     int64
	DebounceMillis int64
}

// handleIndex serves the page. It fetches the plain SVG and handles clicks
// itself, since scripts inside markup inserted through innerHTML never run.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, indexData{
		Title:          s.cfg.Title,
		PollMillis:     s.cfg.PollInterval.Milliseconds(),
		DebounceMillis: s.cfg.Debounce.Milliseconds(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
