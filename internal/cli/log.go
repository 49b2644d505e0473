// Package cli implements the treescan command-line interface.
//
// The commands are thin wrappers around [pipeline.Runner]: they translate
// flags and config files into [pipeline.Options], show progress and print
// the resulting [report.Document].
//
// # Commands
//
//   - run: scan a tree file and print the ranked cuts
//   - report: re-render a saved JSON result as text
//   - browse: page through the cuts of a saved result interactively
//   - cache: inspect or clear the result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels through context.Context and is shared with the pipeline.
//
// [pipeline.Runner]: github.com/matzehuels/treescan/pkg/pipeline.Runner
// [pipeline.Options]: github.com/matzehuels/treescan/pkg/pipeline.Options
// [report.Document]: github.com/matzehuels/treescan/pkg/report.Document
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the logger shared by all commands and the pipeline.
// It writes to w, which is stderr in main so that reports on stdout stay
// clean. At debug level the source location of each message is included.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    level <= log.DebugLevel,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stageTimer logs the end of a run stage with its wall-clock duration.
type stageTimer struct {
	logger *log.Logger
	start  time.Time
}

func startStage(l *log.Logger) *stageTimer {
	return &stageTimer{logger: l, start: time.Now()}
}

// done logs msg at info level with keyvals and an "elapsed" field rounded
// to the millisecond, e.g. "scan complete nodes=1203 cached=false elapsed=1.234s".
func (s *stageTimer) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx. The root command does this once so that
// every subcommand and the pipeline runner log through the same logger.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() for commands executed without the root command (tests).
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
