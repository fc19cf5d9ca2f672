package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "todo_id", "t1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"bsmanager"`)
	assert.Contains(t, out, `"todo_id":"t1"`)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)

	require.Same(t, logger, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
}

func TestFromContextOr(t *testing.T) {
	t.Parallel()

	attached := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	assert.Same(t, attached, FromContextOr(ContextWithLogger(context.Background(), attached), fallback))
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, slog.Default(), FromContextOr(context.Background(), nil))
}
