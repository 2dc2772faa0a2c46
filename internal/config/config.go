// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Default values for the filter section. These reproduce the behavior of the
// tool when no config file, environment or flags are present.
const (
	DefaultLogPath        = "log.txt"
	DefaultPrompt         = "Filter by: "
	DefaultInvalidMessage = "Invalid input. Please enter a valid number."
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Filter FilterConfig `mapstructure:"filter" yaml:"filter"`
}

// FilterConfig controls which file is filtered and how the key is prompted for.
type FilterConfig struct {
	LogPath string `mapstructure:"log_path" yaml:"log_path"`
	// MaxAttempts bounds the number of invalid keys accepted before giving up.
	// Zero means the prompt loops until a valid key is entered.
	MaxAttempts    int    `mapstructure:"max_attempts" yaml:"max_attempts"`
	Prompt         string `mapstructure:"prompt" yaml:"prompt"`
	InvalidMessage string `mapstructure:"invalid_message" yaml:"invalid_message"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// NewDefaultConfig returns a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "logtag")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// Filter
	v.SetDefault("filter.log_path", DefaultLogPath)
	v.SetDefault("filter.max_attempts", 0)
	v.SetDefault("filter.prompt", DefaultPrompt)
	v.SetDefault("filter.invalid_message", DefaultInvalidMessage)
}

// EnvPrefix is prepended to every environment override, e.g. LOGTAG_FILTER_LOG_PATH.
const EnvPrefix = "LOGTAG"

// BindEnv makes every configuration key overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Allow "~/logs/app.log" style paths in config files and env vars.
	logPath, err := homedir.Expand(cfg.Filter.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand filter.log_path %q: %w", cfg.Filter.LogPath, err)
	}
	cfg.Filter.LogPath = logPath

	if cfg.Logger.LogFile != "" {
		logFile, err := homedir.Expand(cfg.Logger.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to expand logger.log_file %q: %w", cfg.Logger.LogFile, err)
		}
		cfg.Logger.LogFile = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger configuration invalid: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the logger settings.
func (l *LoggerConfig) Validate() error {
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("level %q is not a valid log level", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("format must be 'console' or 'json', got %q", l.Format)
	}
	return nil
}

// Validate checks the filter settings.
func (f *FilterConfig) Validate() error {
	if strings.TrimSpace(f.LogPath) == "" {
		return fmt.Errorf("log_path is a required configuration field")
	}
	if f.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be zero (unlimited) or a positive integer")
	}
	return nil
}
