// SPDX-License-Identifier: Unlicense OR MIT

package surf

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerSilentByDefault(t *testing.T) {
	l := Logger()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	dev := newSoftwareDevice(t)
	ctx, err := dev.CreateContext(ContextDescriptor{})
	require.NoError(t, err)
	require.NoError(t, dev.DestroyContext(ctx))

	out := buf.String()
	assert.Contains(t, out, "backend opened")
	assert.Contains(t, out, "context created")
	assert.Contains(t, out, "context destroyed")

	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}
