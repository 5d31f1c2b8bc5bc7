package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/zonemap/pkg/observability"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps that writes to w
// and filters messages below level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Rendered 42 zones (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a copy of ctx carrying l.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// debugHooks logs every observability event at debug level. It is
// registered when the CLI runs with --verbose.
type debugHooks struct {
	logger *log.Logger
}

func registerDebugHooks(l *log.Logger) {
	h := &debugHooks{logger: l.WithPrefix("hooks")}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	observability.SetViewportHooks(h)
}

func (h *debugHooks) OnLoadStart(_ context.Context, source string) {
	h.logger.Debug("load start", "source", source)
}

func (h *debugHooks) OnLoadComplete(_ context.Context, source string, n int, d time.Duration, err error) {
	h.logger.Debug("load complete", "source", source, "zones", n, "duration", d, "err", err)
}

func (h *debugHooks) OnLayoutStart(_ context.Context, n int) {
	h.logger.Debug("layout start", "zones", n)
}

func (h *debugHooks) OnLayoutComplete(_ context.Context, cells, dropped int, d time.Duration, err error) {
	h.logger.Debug("layout complete", "cells", cells, "dropped", dropped, "duration", d, "err", err)
}

func (h *debugHooks) OnRenderStart(_ context.Context, formats []string) {
	h.logger.Debug("render start", "formats", formats)
}

func (h *debugHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	h.logger.Debug("render complete", "formats", formats, "duration", d, "err", err)
}

func (h *debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

func (h *debugHooks) OnResizeScheduled(width float64) {
	h.logger.Debug("resize scheduled", "width", width)
}

func (h *debugHooks) OnPass(sceneID string, cells int, d time.Duration, err error) {
	h.logger.Debug("render pass", "scene", sceneID, "cells", cells, "duration", d, "err", err)
}

func (h *debugHooks) OnDispatch(region string, zoneID int64) {
	h.logger.Debug("click dispatched", "region", region, "zone", zoneID)
}
