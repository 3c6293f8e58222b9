package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable parameters of the LSI engine and its ambient
// logging setup. It has no notion of storage backend or server identity —
// those belong to whatever embeds this package.
type Config struct {
	// MaxSweeps bounds the number of Jacobi sweeps attempted per build.
	MaxSweeps int `yaml:"max_sweeps"`

	// ConvTol is the sum-of-deltas threshold below which a sweep is
	// considered converged.
	ConvTol float64 `yaml:"conv_tol"`

	// Epsilon guards divisions and near-zero comparisons throughout the
	// linear-algebra and vectorization layers.
	Epsilon float64 `yaml:"epsilon"`

	// DefaultCutoff is the build_index rank-reduction cutoff used when the
	// caller does not supply one.
	DefaultCutoff float64 `yaml:"default_cutoff"`

	// DefaultClassifyCutoff is the classify/classify_with_confidence
	// neighborhood fraction used when the caller does not supply one.
	DefaultClassifyCutoff float64 `yaml:"default_classify_cutoff"`

	// AutoRebuild makes every added item rebuild the index immediately;
	// when disabled, additions leave the index dirty until it is rebuilt.
	AutoRebuild bool `yaml:"auto_rebuild"`

	// Incremental configures Brand's thin-SVD update path.
	Incremental IncrementalConfig `yaml:"incremental"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFormat is the log output format (json, text).
	LogFormat string `yaml:"log_format"`
}

// IncrementalConfig governs when Brand's update is used instead of a full
// rebuild, and the rank ceiling it is bounded by.
type IncrementalConfig struct {
	// Enabled turns on incremental updates after the first full build.
	Enabled bool `yaml:"enabled"`

	// MaxRank bounds the thin decomposition kept across updates.
	MaxRank int `yaml:"max_rank"`

	// VocabGrowthThreshold is the fraction of vocabulary growth (relative
	// to the vocabulary size at the last full build) that forces a full
	// rebuild and tears down incremental state.
	VocabGrowthThreshold float64 `yaml:"vocab_growth_threshold"`
}

// DefaultConfig returns the engine's defaults, matching the constants in the
// component design.
func DefaultConfig() *Config {
	return &Config{
		MaxSweeps:             20,
		ConvTol:               0.001,
		Epsilon:               1e-10,
		DefaultCutoff:         0.75,
		DefaultClassifyCutoff: 0.30,
		AutoRebuild:           true,
		Incremental: IncrementalConfig{
			Enabled:              false,
			MaxRank:              100,
			VocabGrowthThreshold: 0.20,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads configuration from environment variables and command-line
// flags, falling back to DefaultConfig's values.
func Load() *Config {
	cfg := DefaultConfig()

	cfg.MaxSweeps = getEnvInt("LSI_MAX_SWEEPS", cfg.MaxSweeps)
	cfg.ConvTol = getEnvFloat("LSI_CONV_TOL", cfg.ConvTol)
	cfg.Epsilon = getEnvFloat("LSI_EPSILON", cfg.Epsilon)
	cfg.DefaultCutoff = getEnvFloat("LSI_DEFAULT_CUTOFF", cfg.DefaultCutoff)
	cfg.DefaultClassifyCutoff = getEnvFloat("LSI_DEFAULT_CLASSIFY_CUTOFF", cfg.DefaultClassifyCutoff)
	cfg.AutoRebuild = getEnvBool("LSI_AUTO_REBUILD", cfg.AutoRebuild)
	cfg.Incremental.Enabled = getEnvBool("LSI_INCREMENTAL_ENABLED", cfg.Incremental.Enabled)
	cfg.Incremental.MaxRank = getEnvInt("LSI_INCREMENTAL_MAX_RANK", cfg.Incremental.MaxRank)
	cfg.Incremental.VocabGrowthThreshold = getEnvFloat("LSI_INCREMENTAL_VOCAB_GROWTH_THRESHOLD", cfg.Incremental.VocabGrowthThreshold)
	cfg.LogLevel = getEnvOrDefault("LSI_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LSI_LOG_FORMAT", cfg.LogFormat)

	flag.IntVar(&cfg.MaxSweeps, "max-sweeps", cfg.MaxSweeps, "Maximum Jacobi sweeps per build")
	flag.Float64Var(&cfg.ConvTol, "conv-tol", cfg.ConvTol, "Sweep convergence tolerance")
	flag.Float64Var(&cfg.DefaultCutoff, "default-cutoff", cfg.DefaultCutoff, "Default build_index rank cutoff, in (0,1)")
	flag.Float64Var(&cfg.DefaultClassifyCutoff, "default-classify-cutoff", cfg.DefaultClassifyCutoff, "Default classify neighborhood cutoff, in (0,1)")
	flag.BoolVar(&cfg.AutoRebuild, "auto-rebuild", cfg.AutoRebuild, "Rebuild the index immediately after every added item")
	flag.BoolVar(&cfg.Incremental.Enabled, "incremental-enabled", cfg.Incremental.Enabled, "Use Brand's incremental update after the first full build")
	flag.IntVar(&cfg.Incremental.MaxRank, "incremental-max-rank", cfg.Incremental.MaxRank, "Rank ceiling for the incremental thin-SVD state")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or text")

	flag.Parse()

	return cfg
}

// LoadFile reads a YAML configuration file into a Config, starting from
// DefaultConfig's values for any field the file omits.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// getEnvOrDefault returns an environment variable value or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable value or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt returns an integer environment variable value or a default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getEnvFloat returns a float environment variable value or a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(value, "%f", &result); err != nil {
		return defaultValue
	}
	return result
}
