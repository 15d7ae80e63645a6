// Package config loads tool settings: compiled-in defaults, an optional
// config file in the metadata directory, and GIT_IBUNDLE_* environment
// overrides. Command-line flags take precedence over everything here.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings are the recognized tunables.
type Settings struct {
	// Keep is the default retention for `clean --keep`.
	Keep uint64

	// Progress selects bundle-creation progress output: "auto" (terminal
	// and verbosity permitting), "always", or "never".
	Progress string
}

// Default retention matches the original tool's `clean --keep` default.
const DefaultKeep = 20

// Load reads settings for the repository whose metadata directory is
// metaDir; pass "" to load defaults and environment only.
func Load(metaDir string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("keep", DefaultKeep)
	v.SetDefault("progress", "auto")
	v.SetEnvPrefix("GIT_IBUNDLE")
	v.AutomaticEnv()

	if metaDir != "" {
		// A missing config file is fine; a broken one is not.
		path := filepath.Join(metaDir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	s := &Settings{
		Keep:     v.GetUint64("keep"),
		Progress: v.GetString("progress"),
	}
	if s.Keep < 1 {
		s.Keep = DefaultKeep
	}
	return s, nil
}
