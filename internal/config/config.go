// Package config parses the engine's flag-based configuration, adapted
// from the teacher's internal/config/config.go: same flag package, same
// env-var-with-home-dir-fallback data directory pattern, with the
// auth-specific flag dropped (spec.md places auth out of scope) and new
// flags added for the Analysis Queue's worker count and the Oracle
// client's address/timeout, per SPEC_FULL.md's ambient-stack section.
package config

import (
	"flag"
	"os"
	"time"
)

// Config holds every flag the engine process accepts.
type Config struct {
	// Server settings
	Port     int
	DataDir  string
	LogLevel string

	// Queue settings
	QueueWorkers int

	// Oracle settings
	OracleAddr    string
	OracleTimeout time.Duration

	// Analyzer settings
	AnalyzerAddr string

	// Render settings
	RenderSampleRate int
}

// Parse reads flags from os.Args into a Config.
func Parse() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 50051, "gRPC server port")
	flag.StringVar(&cfg.DataDir, "data-dir", defaultDataDir(), "data directory for SQLite and blobs")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	flag.IntVar(&cfg.QueueWorkers, "queue-workers", 2, "number of background analysis queue workers")

	flag.StringVar(&cfg.OracleAddr, "oracle-addr", "localhost:50053", "oracle gRPC address")
	flag.DurationVar(&cfg.OracleTimeout, "oracle-timeout", 20*time.Second, "oracle call timeout (parsed but not applied; oracle calls are bounded only by the request context)")

	flag.StringVar(&cfg.AnalyzerAddr, "analyzer-addr", "localhost:50052", "analyzer worker gRPC address")

	flag.IntVar(&cfg.RenderSampleRate, "render-sample-rate", 44100, "renderer output sample rate")

	flag.Parse()
	return cfg
}

func defaultDataDir() string {
	if dir := os.Getenv("DJCORE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".djcore"
	}
	return home + "/.djcore"
}
