package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	ctx := context.Background()

	Init(false, "")
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelInfo))

	Init(true, "")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))
}

func TestInitTeesToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "varta.log")
	Init(false, path)
	slog.Info("capture started", "source", "default")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "capture started")
	assert.Contains(t, string(data), `"source":"default"`)
}
