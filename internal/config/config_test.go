package config

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.MaxSweeps)
	assert.Equal(t, 0.001, cfg.ConvTol)
	assert.Equal(t, 1e-10, cfg.Epsilon)
	assert.Equal(t, 0.75, cfg.DefaultCutoff)
	assert.Equal(t, 0.30, cfg.DefaultClassifyCutoff)
	assert.True(t, cfg.AutoRebuild)
	assert.False(t, cfg.Incremental.Enabled)
	assert.Equal(t, 0.20, cfg.Incremental.VocabGrowthThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "defaults when unset",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 20, cfg.MaxSweeps)
				assert.Equal(t, 0.75, cfg.DefaultCutoff)
			},
		},
		{
			name: "environment variables override defaults",
			envVars: map[string]string{
				"LSI_MAX_SWEEPS":          "40",
				"LSI_DEFAULT_CUTOFF":      "0.5",
				"LSI_INCREMENTAL_ENABLED": "true",
				"LSI_LOG_FORMAT":          "text",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 40, cfg.MaxSweeps)
				assert.Equal(t, 0.5, cfg.DefaultCutoff)
				assert.True(t, cfg.Incremental.Enabled)
				assert.Equal(t, "text", cfg.LogFormat)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			oldArgs := os.Args
			os.Args = []string{"cmd"}
			defer func() { os.Args = oldArgs }()

			cfg := Load()
			tt.check(t, cfg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/lsi.yaml"

	content := []byte(`
max_sweeps: 30
default_cutoff: 0.6
incremental:
  enabled: true
  max_rank: 50
  vocab_growth_threshold: 0.1
log_level: debug
`)
	require(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadFile(path)
	require(t, err)

	assert.Equal(t, 30, cfg.MaxSweeps)
	assert.Equal(t, 0.6, cfg.DefaultCutoff)
	assert.True(t, cfg.Incremental.Enabled)
	assert.Equal(t, 50, cfg.Incremental.MaxRank)
	assert.Equal(t, 0.1, cfg.Incremental.VocabGrowthThreshold)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Fields omitted from the file keep DefaultConfig's values.
	assert.Equal(t, 0.001, cfg.ConvTol)
	assert.Equal(t, 0.30, cfg.DefaultClassifyCutoff)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/lsi.yaml")
	assert.Error(t, err)
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		envKey       string
		envValue     string
		defaultValue string
		expected     string
	}{
		{
			name:         "environment variable exists",
			envKey:       "TEST_ENV_VAR",
			envValue:     "test-value",
			defaultValue: "default-value",
			expected:     "test-value",
		},
		{
			name:         "environment variable does not exist",
			envKey:       "NONEXISTENT_VAR",
			envValue:     "",
			defaultValue: "default-value",
			expected:     "default-value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.envKey, tt.envValue)
			} else {
				os.Unsetenv(tt.envKey)
			}

			result := getEnvOrDefault(tt.envKey, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// require fails the test immediately if err is non-nil, matching the
// package's habit of keeping assertion helpers terse.
func require(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
