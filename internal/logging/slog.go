package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// SlogManager manages slog-based logging with optional OTel and Graylog
// integration. All behavior packages receive their logger from here.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures optional log destinations beyond stdout.
type Options struct {
	File io.Writer
	// GraylogAddress enables a GELF handler when non-empty.
	GraylogAddress string
	// Provider enables the OTel bridge when non-nil.
	Provider *sdklog.LoggerProvider
}

// Setup initializes the logging system. Stdout is always included; a file
// writer, a Graylog endpoint, and an OTel provider are each optional.
func (m *SlogManager) Setup(level string, opts Options) error {
	lvl := parseLevel(level)
	m.logProvider = opts.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	}

	if opts.GraylogAddress != "" {
		gelfHandler, err := NewGelfHandler(opts.GraylogAddress, lvl)
		if err != nil {
			return err
		}
		handlers = append(handlers, gelfHandler)
	}

	if opts.Provider != nil {
		otelHandler := otelslog.NewHandler("ow_behaviors", otelslog.WithLoggerProvider(opts.Provider))
		handlers = append(handlers, otelHandler)
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", level)
	return nil
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// WithContext returns a logger that injects dynamic attributes from the
// provider into every record, e.g. the active session name and tick.
func (m *SlogManager) WithContext(provider ContextProvider) *slog.Logger {
	return slog.New(NewContextHandler(m.Logger().Handler(), provider))
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
