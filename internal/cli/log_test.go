package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		debug   bool
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, false, true},
		{"debug at info level", log.InfoLevel, true, false},
		{"debug at debug level", log.DebugLevel, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			if tt.debug {
				logger.Debug("scan", "nodes", 3)
			} else {
				logger.Info("scan", "nodes", 3)
			}
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("wrote output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestStageTimerDone(t *testing.T) {
	var buf bytes.Buffer
	stage := startStage(newLogger(&buf, log.InfoLevel))
	stage.done("scan complete", "nodes", 4)

	out := buf.String()
	for _, want := range []string{"scan complete", "nodes=4", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("done() output = %q, want %q", out, want)
		}
	}
}

func TestNewLoggerCallerAtDebug(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.DebugLevel).Debug("cache lookup")
	if !strings.Contains(buf.String(), "log_test.go:") {
		t.Errorf("debug output = %q, want caller location", buf.String())
	}

	buf.Reset()
	newLogger(&buf, log.InfoLevel).Info("cache lookup")
	if strings.Contains(buf.String(), "log_test.go:") {
		t.Errorf("info output = %q, want no caller location", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("loggerFromContext() without a logger should fall back to the default")
	}

	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), logger)
	if got := loggerFromContext(ctx); got != logger {
		t.Errorf("loggerFromContext() = %p, want %p", got, logger)
	}
}
