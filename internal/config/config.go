// Package config defines ctfscores configuration and its loading layers.
//
// Conventions:
// - New() returns defaults; Load(ctx) layers file and environment on top.
// - Errors are wrapped with this package's sentinels.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Format is the output wire format: json, yaml or cbor.
	Format string `koanf:"format"`

	// InputFormat is the format of documents read by reencode. Empty means
	// the same as Format.
	InputFormat string `koanf:"input_format"`

	// Indent pretty-prints JSON and YAML output when non-empty.
	Indent string `koanf:"indent"`

	// Input and Output are file paths; empty means stdin/stdout.
	Input  string `koanf:"input"`
	Output string `koanf:"output"`

	// Events and Challenges size the graphs built by generate.
	Events     int `koanf:"events"`
	Challenges int `koanf:"challenges"`

	// Seed makes generate reproducible; 0 picks a time-based seed.
	Seed int64 `koanf:"seed"`

	// PrintMetrics dumps the metrics registry to stderr on exit.
	PrintMetrics bool `koanf:"print_metrics"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:   "info",
		Format:     "json",
		Events:     3,
		Challenges: 5,
	}
}
