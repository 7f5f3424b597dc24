package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varta-systems/varta-go/internal/conf"
)

// execute runs the command tree with a no-op leaf so the persistent hooks
// fire without touching audio hardware or the filesystem.
func execute(t *testing.T, settings *conf.Settings, args ...string) {
	t.Helper()
	root := RootCommand(settings)
	root.AddCommand(&cobra.Command{
		Use:  "noop",
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "noop"))
	require.NoError(t, root.Execute())
}

func TestDebugFlagEnablesDebugLogging(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	ctx := context.Background()

	execute(t, &conf.Settings{})
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug),
		"without --debug the default logger stays at info")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelInfo))

	execute(t, &conf.Settings{}, "--debug")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug),
		"--debug must reach the logger installed after flag parsing")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := RootCommand(&conf.Settings{})

	for _, name := range []string{"collect", "label", "train", "export", "devices"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}
