package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// GelfHandler forwards slog records to a Graylog server over GELF/UDP.
type GelfHandler struct {
	writer *gelf.Writer
	level  slog.Level
	host   string
	attrs  []slog.Attr
}

// NewGelfHandler dials the Graylog endpoint and returns a handler that emits
// records at or above the given level.
func NewGelfHandler(address string, level slog.Level) (*GelfHandler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "ow_behaviors"
	}
	return &GelfHandler{
		writer: w,
		level:  level,
		host:   host,
	}, nil
}

// Enabled reports whether the record level passes the handler threshold.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record to a GELF message and writes it.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+a.Key] = a.Value.String()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Extra:    extra,
	})
}

// WithAttrs returns a new handler carrying the additional attributes.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &GelfHandler{
		writer: h.writer,
		level:  h.level,
		host:   h.host,
		attrs:  merged,
	}
}

// WithGroup is a no-op; GELF extra fields are flat.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	return h
}

// gelfLevel maps slog levels onto syslog severities.
func gelfLevel(level slog.Level) int32 {
	switch {
	case level >= slog.LevelError:
		return 3
	case level >= slog.LevelWarn:
		return 4
	case level >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
