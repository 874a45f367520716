package gwlog

import (
	"context"
	"fmt"
	"log/slog"
)

// redactedKeys are attribute keys whose string value is replaced with a
// byte-length summary rather than logged verbatim.
var redactedKeys = map[string]bool{
	"audio":         true,
	"audioContent":  true,
	"audioInput":    true,
	"audioOutput":   true,
	"authorization": true,
	"idToken":       true,
	"bearerToken":   true,
}

// ComponentHandler is a slog.Handler that filters by per-component level
// (via ModuleConfig) and redacts sensitive attribute values before
// delegating to an inner handler.
type ComponentHandler struct {
	inner        slog.Handler
	moduleConfig *ModuleConfig
	component    string
}

// NewComponentHandler wraps inner with component-level filtering and
// redaction. component identifies the subsystem (e.g. "gateway.session")
// and is attached to every record as a "component" attribute.
func NewComponentHandler(inner slog.Handler, moduleConfig *ModuleConfig, component string) *ComponentHandler {
	return &ComponentHandler{inner: inner, moduleConfig: moduleConfig, component: component}
}

// Enabled reports whether this handler handles records at the given level.
func (h *ComponentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.moduleConfig.LevelFor(h.component)
}

// Handle redacts sensitive attributes and forwards the record.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler contract
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	newRecord.AddAttrs(slog.String("component", h.component))
	r.Attrs(func(a slog.Attr) bool {
		newRecord.AddAttrs(redact(a))
		return true
	})
	return h.inner.Handle(ctx, newRecord)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ComponentHandler{inner: h.inner.WithAttrs(attrs), moduleConfig: h.moduleConfig, component: h.component}
}

// WithGroup returns a new handler with the given group name.
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{inner: h.inner.WithGroup(name), moduleConfig: h.moduleConfig, component: h.component}
}

// redact replaces the value of sensitive attributes with a redaction
// placeholder that still reveals payload size for debugging.
func redact(a slog.Attr) slog.Attr {
	if !redactedKeys[a.Key] {
		return a
	}
	s := a.Value.String()
	return slog.String(a.Key, fmt.Sprintf("[redacted %d bytes]", len(s)))
}

var _ slog.Handler = (*ComponentHandler)(nil)

// New builds a *slog.Logger for the given component name, backed by inner
// and filtered/redacted per moduleConfig.
func New(inner slog.Handler, moduleConfig *ModuleConfig, component string) *slog.Logger {
	return slog.New(NewComponentHandler(inner, moduleConfig, component))
}
