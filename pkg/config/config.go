package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration settings for the application
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Log         LogConfig     `mapstructure:"log"`
	Catalog     CatalogConfig `mapstructure:"catalog"`
	Fetch       FetchConfig   `mapstructure:"fetch"`
	Refresh     RefreshConfig `mapstructure:"refresh"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

// CatalogConfig selects the municipality and optionally overrides sources
type CatalogConfig struct {
	DepartmentCode string         `mapstructure:"department_code"`
	CommuneCode    string         `mapstructure:"commune_code"`
	Sources        []SourceConfig `mapstructure:"sources"`
}

// SourceConfig overrides the location or format of one dataset
type SourceConfig struct {
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	Format string `mapstructure:"format"`
}

// FetchConfig holds download settings
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Concurrency  int           `mapstructure:"concurrency"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// RefreshConfig holds periodic reload settings. An empty schedule disables
// periodic refresh.
type RefreshConfig struct {
	Schedule      string        `mapstructure:"schedule"`
	OnStart       bool          `mapstructure:"on_start"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// Load reads the configuration file and environment variables. A missing
// file is not an error: defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ELECTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "logs/elections.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.console", true)

	// Catalog defaults: Fontoy, Moselle
	v.SetDefault("catalog.department_code", "57")
	v.SetDefault("catalog.commune_code", "226")

	// Fetch defaults
	v.SetDefault("fetch.timeout", "2m")
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_delay", "500ms")
	v.SetDefault("fetch.max_delay", "10s")
	v.SetDefault("fetch.concurrency", 3)
	v.SetDefault("fetch.user_agent", "election-dashboard/1.0")

	// Refresh defaults
	v.SetDefault("refresh.schedule", "0 6 * * *")
	v.SetDefault("refresh.on_start", true)
	v.SetDefault("refresh.max_concurrent", 1)
	v.SetDefault("refresh.max_retries", 2)
	v.SetDefault("refresh.retry_delay", "1m")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.validateLog(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	if err := c.validateCatalog(); err != nil {
		return fmt.Errorf("catalog config: %w", err)
	}

	if err := c.validateFetch(); err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}

	if err := c.validateRefresh(); err != nil {
		return fmt.Errorf("refresh config: %w", err)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLog() error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid level %q", c.Log.Level)
	}
	if c.Log.OutputPath == "" && !c.Log.Console {
		return fmt.Errorf("output_path cannot be empty when console is disabled")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if !isCode(c.Catalog.DepartmentCode) {
		return fmt.Errorf("invalid department_code %q", c.Catalog.DepartmentCode)
	}
	if !isCode(c.Catalog.CommuneCode) {
		return fmt.Errorf("invalid commune_code %q", c.Catalog.CommuneCode)
	}
	for i, s := range c.Catalog.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d]: name cannot be empty", i)
		}
	}
	return nil
}

// isCode accepts INSEE style codes such as "57", "2A" or "226"
func isCode(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && r != 'A' && r != 'B' {
			return false
		}
	}
	return true
}

func (c *Config) validateFetch() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Fetch.MaxDelay < c.Fetch.InitialDelay {
		return fmt.Errorf("max_delay (%s) cannot be less than initial_delay (%s)",
			c.Fetch.MaxDelay, c.Fetch.InitialDelay)
	}
	return nil
}

func (c *Config) validateRefresh() error {
	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule: %w", err)
		}
	}
	if c.Refresh.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	if c.Refresh.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	return nil
}

// GetLogLevel returns a zap log level based on the configured string
func (c *Config) GetLogLevel() zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}
	return level
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}

// Exists reports whether a config file is present at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
