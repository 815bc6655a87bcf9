package slabkit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.WithClass(64).LogVerify(64, 10, nil)
	assert.Contains(t, buf.String(), "slab class verified")
	assert.Contains(t, buf.String(), "slot_size=64")

	buf.Reset()
	l.LogVerify(32, 0, errors.New("broken"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "broken")

	buf.Reset()
	l.LogFallback(16, 3)
	assert.Contains(t, buf.String(), "suppressed=3")
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.LogFatal("alloc", errors.New("ignored"))
}
