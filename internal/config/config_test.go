package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:              "./data/retroguide.db",
			ConnectionTimeout: 5 * time.Second,
			EnableWAL:         true,
		},
		Logging: LoggingConfig{Level: "info"},
		Duration: DurationConfig{
			FallbackSeconds:  180,
			ProbeTimeout:     5 * time.Second,
			RetryAfter:       10 * time.Minute,
			ProbeWorkers:     4,
			ProbesPerSecond:  8,
			ProbeBurst:       8,
			BreakerThreshold: 5,
			BreakerReset:     time.Minute,
			CacheBackend:     CacheBackendSQLite,
			Redis:            RedisConfig{Addr: "localhost:6379"},
		},
		Guide: GuideConfig{
			BaseURL:         "http://localhost:8080",
			WindowHours:     24,
			RefreshInterval: time.Hour,
			Timezone:        "UTC",
			IDSuffix:        "retroguide",
			StreamPrograms:  3,
			MaxUpcoming:     50,
		},
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, defaultServerHost, cfg.Server.Host)
	assert.Equal(t, defaultReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, defaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, defaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, []string{"mp4", "mkv", "avi", "mov"}, cfg.Media.SupportedFormats)

	assert.InDelta(t, 180.0, cfg.Duration.FallbackSeconds, 0.0001)
	assert.Equal(t, 5*time.Second, cfg.Duration.ProbeTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Duration.RetryAfter)
	assert.Equal(t, CacheBackendSQLite, cfg.Duration.CacheBackend)
	assert.False(t, cfg.Duration.WatchFiles)

	assert.Equal(t, 24, cfg.Guide.WindowHours)
	assert.Equal(t, 24*time.Hour, cfg.Guide.Window())
	assert.Equal(t, "UTC", cfg.Guide.Timezone)
	assert.Equal(t, "retroguide", cfg.Guide.IDSuffix)
	assert.Empty(t, cfg.Guide.MediaBaseURL)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port - too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: "invalid read timeout",
		},
		{
			name:    "non-positive fallback",
			mutate:  func(c *Config) { c.Duration.FallbackSeconds = 0 },
			wantErr: "invalid fallback duration",
		},
		{
			name:    "zero probe workers",
			mutate:  func(c *Config) { c.Duration.ProbeWorkers = 0 },
			wantErr: "invalid probe workers",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Duration.CacheBackend = "memcached" },
			wantErr: "invalid cache backend",
		},
		{
			name: "redis backend without address",
			mutate: func(c *Config) {
				c.Duration.CacheBackend = CacheBackendRedis
				c.Duration.Redis.Addr = ""
			},
			wantErr: "requires duration.redis.addr",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Guide.BaseURL = "localhost:8080" },
			wantErr: "invalid guide base url",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Guide.Timezone = "Mars/Olympus_Mons" },
			wantErr: "invalid guide timezone",
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.Guide.WindowHours = 0 },
			wantErr: "invalid guide window",
		},
		{
			name:    "empty id suffix",
			mutate:  func(c *Config) { c.Guide.IDSuffix = "" },
			wantErr: "id suffix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}

func TestDurationConfigEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RETROGUIDE_DURATION_FALLBACKSECONDS", "90")
	t.Setenv("RETROGUIDE_DURATION_PROBETIMEOUT", "2s")
	t.Setenv("RETROGUIDE_DURATION_CACHEBACKEND", "memory")
	t.Setenv("RETROGUIDE_GUIDE_WINDOWHOURS", "12")
	t.Setenv("RETROGUIDE_GUIDE_TIMEZONE", "America/New_York")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 90.0, cfg.Duration.FallbackSeconds, 0.0001)
	assert.Equal(t, 2*time.Second, cfg.Duration.ProbeTimeout)
	assert.Equal(t, CacheBackendMemory, cfg.Duration.CacheBackend)
	assert.Equal(t, 12, cfg.Guide.WindowHours)

	loc, err := cfg.Guide.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RETROGUIDE_DURATION_CACHEBACKEND", "bogus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestContains(t *testing.T) {
	slice := []string{"debug", "info", "warn", "error"}

	assert.True(t, contains(slice, "info"))
	assert.False(t, contains(slice, "trace"))
	assert.False(t, contains(nil, "info"))
}
