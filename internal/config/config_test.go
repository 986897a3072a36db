package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "50051", cfg.App.GRPCPort)
	assert.Equal(t, 10, cfg.App.ShutdownTimeoutSeconds)
	assert.True(t, cfg.App.DocsEnabled)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "stdout", cfg.Logger.OutputPath)
	assert.False(t, cfg.Logger.EnableSampling)
	assert.Equal(t, "user-api", cfg.Logger.ServiceName)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.RateLimit.BurstCapacity)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_ProductionDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.Logger.EnableSampling)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "HTTP_PORT=9000\nGRPC_PORT=9001\nDOCS_ENABLED=false\nRATE_LIMIT_ENABLED=true\nRATE_LIMIT_BURST_CAPACITY=5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	// Environment wins over the file
	t.Setenv("GRPC_PORT", "9100")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.HTTPPort)
	assert.Equal(t, "9100", cfg.App.GRPCPort)
	assert.False(t, cfg.App.DocsEnabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.BurstCapacity)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App: AppConfig{
				HTTPPort:               "8080",
				GRPCPort:               "50051",
				ShutdownTimeoutSeconds: 10,
			},
			Logger:    LoggerConfig{Format: "json"},
			Redis:     RedisConfig{Host: "localhost", Port: "6379"},
			RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 10, BurstCapacity: 20},
		}
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"ephemeral ports", func(c *Config) { c.App.HTTPPort, c.App.GRPCPort = "0", "0" }, ""},
		{"missing http port", func(c *Config) { c.App.HTTPPort = "" }, "HTTP_PORT is required"},
		{"non-numeric grpc port", func(c *Config) { c.App.GRPCPort = "grpc" }, "GRPC_PORT must be a port number"},
		{"port out of range", func(c *Config) { c.App.HTTPPort = "70000" }, "HTTP_PORT must be a port number"},
		{"zero shutdown timeout", func(c *Config) { c.App.ShutdownTimeoutSeconds = 0 }, "SHUTDOWN_TIMEOUT_SECONDS"},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }, "LOG_FORMAT"},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }, "RATE_LIMIT_REQUESTS_PER_SECOND"},
		{"zero burst", func(c *Config) { c.RateLimit.BurstCapacity = 0 }, "RATE_LIMIT_BURST_CAPACITY"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.RateLimit = RateLimitConfig{}
			c.Redis.Port = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}
