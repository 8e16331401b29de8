// Package config parses filetrackerd's runtime configuration from flags
// and environment variables using cobra for the flag surface and viper for
// env/flag/default binding.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the storage service.
//
// The keyed-lock janitor's 60-second sweep interval (spec §4.2) is not
// configurable here — it's a fixed property of the locking discipline, not
// a deployment knob.
type Config struct {
	Listen           string
	StorageRoot      string
	MaxConcurrentOps int
	ScrubInterval    time.Duration
	ScrubGrace       time.Duration
}

const envPrefix = "FILETRACKERD"

// Flags registers the config surface on cmd's flag set and binds each flag
// through viper so FILETRACKERD_<NAME> environment variables (and, for a
// library caller wiring its own config file, matching keys) override the
// defaults below.
func Flags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String("listen", ":8080", "address to listen on")
	fs.String("storage-root", "/data/filetracker", "root directory for blobs/ and metadata/")
	fs.Int("max-concurrent-ops", 256, "max concurrent GET/HEAD/PUT/DELETE operations before returning 503")
	fs.Duration("scrub-interval", time.Hour, "blob-root orphan scrubber sweep interval")
	fs.Duration("scrub-grace", 24*time.Hour, "minimum age before an orphaned blob or spill file is reclaimed")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(fs))
}

// Load reads the bound flags/env vars into a Config. Call after Flags has
// registered the flag set and cobra has parsed the command line.
func Load() *Config {
	return &Config{
		Listen:           viper.GetString("listen"),
		StorageRoot:      viper.GetString("storage-root"),
		MaxConcurrentOps: viper.GetInt("max-concurrent-ops"),
		ScrubInterval:    viper.GetDuration("scrub-interval"),
		ScrubGrace:       viper.GetDuration("scrub-grace"),
	}
}
