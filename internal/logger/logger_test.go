package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("dispatch", "batch started")

	line := buf.String()
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "[DISPATCH  ]")
	assert.Contains(t, line, "batch started")
	assert.Contains(t, line, "logger_test.go:")
	assert.NotContains(t, line, "\x1b[", "writer loggers never emit color codes")
}

func TestSetLevel_FiltersLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel(WARN)

	l.Debug("PAGE", "debug line")
	l.Info("PAGE", "info line")
	l.Warn("PAGE", "warn line")
	l.Error("PAGE", "error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestComponentHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.LogDispatch("batch-1", "2 requests submitted")
	l.LogKafka("PUBLISH", "groups.dispatch.failed", "ok")

	out := buf.String()
	assert.Contains(t, out, "[batch-1] 2 requests submitted")
	assert.Contains(t, out, "[PUBLISH] groups.dispatch.failed - ok")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("X", "nothing") })
}
