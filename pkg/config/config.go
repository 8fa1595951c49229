package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the settings of a patch run.
type Config struct {
	// DiffLibrary selects the delta codec ("bsdiff" or "binarydist")
	DiffLibrary string

	// HashAlgo selects the content fingerprint ("sha1", "sha256" or "blake3")
	HashAlgo string

	// Workers bounds how many files are fingerprinted concurrently
	Workers int

	// TempDir is where old files are materialized when a backend cannot seek
	TempDir string

	// Verbose logs every visited path
	Verbose bool

	// MetricsFile, when set, receives the run's metrics in Prometheus text format
	MetricsFile string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DiffLibrary: "bsdiff",
		HashAlgo:    "sha1",
		Workers:     1, // sequential reference behavior
		TempDir:     os.TempDir(),
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if lib := os.Getenv("DIRDELTA_DIFF_LIBRARY"); lib != "" {
		cfg.DiffLibrary = lib
	}

	if algo := os.Getenv("DIRDELTA_HASH_ALGO"); algo != "" {
		cfg.HashAlgo = algo
	}

	if workers := os.Getenv("DIRDELTA_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Workers = n
		}
	}

	if dir := os.Getenv("DIRDELTA_TEMP_DIR"); dir != "" {
		cfg.TempDir = dir
	}

	if v := os.Getenv("DIRDELTA_VERBOSE"); v != "" {
		cfg.Verbose = v == "1" || v == "true" || v == "TRUE"
	}

	if path := os.Getenv("DIRDELTA_METRICS_FILE"); path != "" {
		cfg.MetricsFile = path
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DiffLibrary != "bsdiff" && c.DiffLibrary != "binarydist" {
		return fmt.Errorf("invalid diff library: %s (must be 'bsdiff' or 'binarydist')", c.DiffLibrary)
	}

	switch c.HashAlgo {
	case "sha1", "sha256", "blake3":
	default:
		return fmt.Errorf("invalid hash algorithm: %s (must be 'sha1', 'sha256' or 'blake3')", c.HashAlgo)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got: %d", c.Workers)
	}

	if c.TempDir == "" {
		return fmt.Errorf("temp dir must not be empty")
	}

	return nil
}
