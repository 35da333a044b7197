// Package config loads runtime settings from the environment. Binaries
// override individual fields from their command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds the settings shared by the API server and the CLI.
type Config struct {
	// DatabasePath is opened (or created) at startup. Empty means start unloaded.
	DatabasePath string
	Port         string
	LogLevel     string
	LogFormat    string

	// GCSCredentialsFile is optional; Application Default Credentials are used when empty.
	GCSCredentialsFile string

	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string
}

// Load reads the environment, applying defaults for unset variables.
func Load() Config {
	return Config{
		DatabasePath:       os.Getenv("TXDB_PATH"),
		Port:               env("PORT", "8080"),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "console"),
		GCSCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		BigQueryProject:    os.Getenv("BQ_PROJECT"),
		BigQueryDataset:    env("BQ_DATASET", "finance"),
		BigQueryTable:      env("BQ_TABLE", "transactions"),
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("config: invalid port %q", c.Port)
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.LogFormat)
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
