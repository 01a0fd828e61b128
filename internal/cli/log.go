// Package cli implements the floorplan command-line interface.
//
// The CLI is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - layers: Print the layer tree of a drawing
//   - mask: Resolve which layers a selection or configured page shows
//   - circuits: Derive the circuit manifest as a table, CSV, JSON, YAML, CBOR or graph
//   - check: Validate a drawing against its configuration without rendering
//   - export: Render configured layer sets to PDF, SVG or PNG
//   - serve: Serve a drawing over HTTP
//   - browse: Explore circuits interactively
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Exported 3 outputs (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// logHooks reports pipeline events at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnLoadStart(_ context.Context, path string) {
	h.logger.Debug("loading drawing", "path", path)
}

func (h logHooks) OnLoadComplete(_ context.Context, path string, layers int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("load failed", "path", path, "err", err)
		return
	}
	h.logger.Debug("loaded drawing", "path", path, "layers", layers, "duration", d)
}

func (h logHooks) OnBuildComplete(_ context.Context, circuits, warnings int, d time.Duration, err error) {
	h.logger.Debug("built circuits", "circuits", circuits, "warnings", warnings, "failed", err != nil, "duration", d)
}

func (h logHooks) OnExportStart(_ context.Context, output string, pages int) {
	h.logger.Debug("export started", "output", output, "pages", pages)
}

func (h logHooks) OnPageRendered(_ context.Context, output string, page int, d time.Duration, err error) {
	h.logger.Debug("page done", "output", output, "page", page+1, "failed", err != nil, "duration", d)
}

func (h logHooks) OnExportComplete(_ context.Context, output string, d time.Duration, err error) {
	h.logger.Debug("export done", "output", output, "failed", err != nil, "duration", d)
}
