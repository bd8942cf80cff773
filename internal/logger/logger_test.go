package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, int(slog.LevelWarn))

	l.Info("Hub: dropped")
	assert.Empty(t, buf.String())

	l.Warn("Hub: slow subscriber", "owner_id", "abc")
	assert.Contains(t, buf.String(), "Hub: slow subscriber")
	assert.Contains(t, buf.String(), "owner_id=abc")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, 0).With("component", "listener")

	l.Info("started")
	assert.Contains(t, buf.String(), "component=listener")
}
