package config_test

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/duskstore/filetracker/internal/config"
)

func newTestCommand(t *testing.T, args []string) *cobra.Command {
	t.Helper()
	viper.Reset()
	cmd := &cobra.Command{Use: "filetrackerd", RunE: func(*cobra.Command, []string) error { return nil }}
	config.Flags(cmd)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return cmd
}

func TestLoadAppliesDefaultsWhenNoFlagsGiven(t *testing.T) {
	newTestCommand(t, nil)
	cfg := config.Load()

	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, "/data/filetracker", cfg.StorageRoot)
	require.Equal(t, 256, cfg.MaxConcurrentOps)
	require.Equal(t, time.Hour, cfg.ScrubInterval)
	require.Equal(t, 24*time.Hour, cfg.ScrubGrace)
}

func TestLoadHonorsExplicitFlags(t *testing.T) {
	newTestCommand(t, []string{
		"--listen", ":9000",
		"--storage-root", "/srv/filetracker",
		"--max-concurrent-ops", "64",
		"--scrub-interval", "10m",
	})
	cfg := config.Load()

	require.Equal(t, ":9000", cfg.Listen)
	require.Equal(t, "/srv/filetracker", cfg.StorageRoot)
	require.Equal(t, 64, cfg.MaxConcurrentOps)
	require.Equal(t, 10*time.Minute, cfg.ScrubInterval)
}

func TestLoadHonorsEnvironmentOverride(t *testing.T) {
	t.Setenv("FILETRACKERD_STORAGE_ROOT", "/mnt/filetracker")
	newTestCommand(t, nil)
	cfg := config.Load()

	require.Equal(t, "/mnt/filetracker", cfg.StorageRoot)
}
