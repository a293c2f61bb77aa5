// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/retroguide.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultDatabaseEnableWAL         = true
	defaultMediaLibraryPath          = "./media"

	defaultFallbackSeconds  = 180.0
	defaultProbeTimeout     = 5 * time.Second
	defaultRetryAfter       = 10 * time.Minute
	defaultProbeWorkers     = 4
	defaultProbesPerSecond  = 8.0
	defaultProbeBurst       = 8
	defaultBreakerThreshold = 5
	defaultBreakerReset     = time.Minute
	defaultCacheBackend     = CacheBackendSQLite
	defaultRedisAddr        = "localhost:6379"

	defaultGuideBaseURL           = "http://localhost:8080"
	defaultGuideWindowHours       = 24
	defaultGuideRefreshInterval   = time.Hour
	defaultGuideTimezone          = "UTC"
	defaultGuideGroupTitle        = "RetroGuide"
	defaultGuideGeneratorName     = "RetroGuide"
	defaultGuideDescriptionPrefix = "RetroGuide"
	defaultGuideIDSuffix          = "retroguide"
	defaultGuideStreamPrograms    = 3
	defaultGuideMaxUpcoming       = 50

	envPrefix = "RETROGUIDE"
)

// Duration cache backends
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Media    MediaConfig
	Duration DurationConfig
	Guide    GuideConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// MediaConfig holds media library configuration
type MediaConfig struct {
	LibraryPath      string
	SupportedFormats []string
}

// DurationConfig controls duration probing and caching
type DurationConfig struct {
	// FallbackSeconds is the estimated length used when probing fails
	FallbackSeconds float64
	ProbeTimeout    time.Duration
	// RetryAfter is how long a failed probe is remembered before probing again
	RetryAfter       time.Duration
	ProbeWorkers     int
	ProbesPerSecond  float64
	ProbeBurst       int
	BreakerThreshold int
	BreakerReset     time.Duration
	CacheBackend     string
	Redis            RedisConfig
	WatchFiles       bool
}

// RedisConfig holds connection settings for the redis duration cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GuideConfig controls channel list and program guide rendering
type GuideConfig struct {
	// BaseURL is the externally reachable address used in channel list stream URLs
	BaseURL string
	// MediaBaseURL is where content files are served from; empty means BaseURL + "/media"
	MediaBaseURL      string
	WindowHours       int
	RefreshInterval   time.Duration
	Timezone          string
	GroupTitle        string
	GeneratorName     string
	DescriptionPrefix string
	IDSuffix          string
	Clip              bool
	StreamPrograms    int
	MaxUpcoming       int
}

// MediaURL returns the base URL stream playlists point segments at
func (g GuideConfig) MediaURL() string {
	if g.MediaBaseURL != "" {
		return strings.TrimRight(g.MediaBaseURL, "/")
	}
	return strings.TrimRight(g.BaseURL, "/") + "/media"
}

// Window returns the guide horizon as a duration
func (g GuideConfig) Window() time.Duration {
	return time.Duration(g.WindowHours) * time.Hour
}

// Location resolves the configured timezone
func (g GuideConfig) Location() (*time.Location, error) {
	return time.LoadLocation(g.Timezone)
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/retroguide")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Every key needs a default so AutomaticEnv can see it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	v.SetDefault("media.librarypath", defaultMediaLibraryPath)
	v.SetDefault("media.supportedformats", []string{"mp4", "mkv", "avi", "mov"})

	v.SetDefault("duration.fallbackseconds", defaultFallbackSeconds)
	v.SetDefault("duration.probetimeout", defaultProbeTimeout)
	v.SetDefault("duration.retryafter", defaultRetryAfter)
	v.SetDefault("duration.probeworkers", defaultProbeWorkers)
	v.SetDefault("duration.probespersecond", defaultProbesPerSecond)
	v.SetDefault("duration.probeburst", defaultProbeBurst)
	v.SetDefault("duration.breakerthreshold", defaultBreakerThreshold)
	v.SetDefault("duration.breakerreset", defaultBreakerReset)
	v.SetDefault("duration.cachebackend", defaultCacheBackend)
	v.SetDefault("duration.redis.addr", defaultRedisAddr)
	v.SetDefault("duration.redis.password", "")
	v.SetDefault("duration.redis.db", 0)
	v.SetDefault("duration.watchfiles", false)

	v.SetDefault("guide.baseurl", defaultGuideBaseURL)
	v.SetDefault("guide.mediabaseurl", "")
	v.SetDefault("guide.windowhours", defaultGuideWindowHours)
	v.SetDefault("guide.refreshinterval", defaultGuideRefreshInterval)
	v.SetDefault("guide.timezone", defaultGuideTimezone)
	v.SetDefault("guide.grouptitle", defaultGuideGroupTitle)
	v.SetDefault("guide.generatorname", defaultGuideGeneratorName)
	v.SetDefault("guide.descriptionprefix", defaultGuideDescriptionPrefix)
	v.SetDefault("guide.idsuffix", defaultGuideIDSuffix)
	v.SetDefault("guide.clip", false)
	v.SetDefault("guide.streamprograms", defaultGuideStreamPrograms)
	v.SetDefault("guide.maxupcoming", defaultGuideMaxUpcoming)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if err := c.Duration.validate(); err != nil {
		return err
	}
	return c.Guide.validate()
}

func (d *DurationConfig) validate() error {
	if d.FallbackSeconds <= 0 {
		return fmt.Errorf("invalid fallback duration: %v (must be > 0)", d.FallbackSeconds)
	}
	if d.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %v (must be > 0)", d.ProbeTimeout)
	}
	if d.RetryAfter < 0 {
		return fmt.Errorf("invalid retry interval: %v (must be >= 0)", d.RetryAfter)
	}
	if d.ProbeWorkers < 1 {
		return fmt.Errorf("invalid probe workers: %d (must be >= 1)", d.ProbeWorkers)
	}
	if d.ProbesPerSecond <= 0 || d.ProbeBurst < 1 {
		return fmt.Errorf("invalid probe rate: %v/s burst %d", d.ProbesPerSecond, d.ProbeBurst)
	}
	if d.BreakerThreshold < 1 || d.BreakerReset <= 0 {
		return fmt.Errorf("invalid circuit breaker settings: threshold %d reset %v", d.BreakerThreshold, d.BreakerReset)
	}

	backends := []string{CacheBackendSQLite, CacheBackendRedis, CacheBackendMemory}
	if !contains(backends, d.CacheBackend) {
		return fmt.Errorf("invalid cache backend: %s (must be one of: %s)", d.CacheBackend, strings.Join(backends, ", "))
	}
	if d.CacheBackend == CacheBackendRedis && d.Redis.Addr == "" {
		return errors.New("redis cache backend requires duration.redis.addr")
	}
	return nil
}

func (g *GuideConfig) validate() error {
	u, err := url.Parse(g.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid guide base url: %q (must be an absolute URL)", g.BaseURL)
	}
	if g.MediaBaseURL != "" {
		if mu, err := url.Parse(g.MediaBaseURL); err != nil || mu.Scheme == "" {
			return fmt.Errorf("invalid media base url: %q (must be an absolute URL)", g.MediaBaseURL)
		}
	}
	if g.WindowHours < 1 || g.WindowHours > 24*14 {
		return fmt.Errorf("invalid guide window: %d hours (must be between 1 and 336)", g.WindowHours)
	}
	if g.RefreshInterval <= 0 {
		return fmt.Errorf("invalid guide refresh interval: %v (must be > 0)", g.RefreshInterval)
	}
	if _, err := g.Location(); err != nil {
		return fmt.Errorf("invalid guide timezone: %q: %w", g.Timezone, err)
	}
	if g.IDSuffix == "" {
		return errors.New("guide id suffix cannot be empty")
	}
	if g.StreamPrograms < 1 {
		return fmt.Errorf("invalid stream program count: %d (must be >= 1)", g.StreamPrograms)
	}
	if g.MaxUpcoming < 1 {
		return fmt.Errorf("invalid max upcoming: %d (must be >= 1)", g.MaxUpcoming)
	}
	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}
