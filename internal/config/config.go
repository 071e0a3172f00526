// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Locator LocatorConfig `mapstructure:"locator" yaml:"locator"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
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

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LocatorConfig tunes resilient element resolution.
type LocatorConfig struct {
	// Timeout bounds every action performed through a resilient locator.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// ProbeTimeout bounds each visibility probe of a candidate element.
	ProbeTimeout       time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	EnableHealing      bool          `mapstructure:"enable_healing" yaml:"enable_healing"`
	MaxHealingAttempts int           `mapstructure:"max_healing_attempts" yaml:"max_healing_attempts"`
	LogHealing         bool          `mapstructure:"log_healing" yaml:"log_healing"`
	// AmbiguityThreshold is the candidate count at which the pure role
	// strategy refuses to pick an element.
	AmbiguityThreshold int    `mapstructure:"ambiguity_threshold" yaml:"ambiguity_threshold"`
	TestIDAttribute    string `mapstructure:"test_id_attribute" yaml:"test_id_attribute"`
}

// RetryConfig holds the defaults for backoff retries around actions.
type RetryConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor" yaml:"backoff_factor"`
}

// BrowserConfig holds settings for live browser drivers.
type BrowserConfig struct {
	// Driver selects the live backend: "chromedp" or "playwright".
	Driver            string         `mapstructure:"driver" yaml:"driver"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ReportConfig controls the healing report.
type ReportConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Format is "text" or "json".
	Format     string `mapstructure:"format" yaml:"format"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	Metrics    bool   `mapstructure:"metrics" yaml:"metrics"`
}

// NewDefaultConfig returns a configuration populated only from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-heal")
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
	v.SetDefault("logger.colors.fatal", "red")

	// -- Locator --
	v.SetDefault("locator.timeout", "10s")
	v.SetDefault("locator.probe_timeout", "1500ms")
	v.SetDefault("locator.enable_healing", true)
	v.SetDefault("locator.max_healing_attempts", 5)
	v.SetDefault("locator.log_healing", true)
	v.SetDefault("locator.ambiguity_threshold", 10)
	v.SetDefault("locator.test_id_attribute", "data-testid")

	// -- Retry --
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "500ms")
	v.SetDefault("retry.max_delay", "5s")
	v.SetDefault("retry.backoff_factor", 2.0)

	// -- Browser --
	v.SetDefault("browser.driver", "chromedp")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "30s")

	// -- Report --
	v.SetDefault("report.enabled", true)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output_path", "")
	v.SetDefault("report.metrics", false)
}

// Load applies defaults to v, unmarshals it, and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the locator cannot work with.
func (c *Config) Validate() error {
	if err := c.Locator.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Browser.Driver) {
	case "chromedp", "playwright":
	default:
		return fmt.Errorf("browser.driver must be one of chromedp, playwright (got %q)", c.Browser.Driver)
	}
	switch strings.ToLower(c.Report.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("report.format must be one of text, json (got %q)", c.Report.Format)
	}
	return nil
}

// Validate checks the locator section.
func (l LocatorConfig) Validate() error {
	if l.Timeout <= 0 {
		return fmt.Errorf("locator.timeout must be positive")
	}
	if l.ProbeTimeout <= 0 {
		return fmt.Errorf("locator.probe_timeout must be positive")
	}
	if l.ProbeTimeout > l.Timeout {
		return fmt.Errorf("locator.probe_timeout must not exceed locator.timeout")
	}
	if l.MaxHealingAttempts <= 0 {
		return fmt.Errorf("locator.max_healing_attempts must be a positive integer")
	}
	if l.AmbiguityThreshold < 2 {
		return fmt.Errorf("locator.ambiguity_threshold must be at least 2")
	}
	if strings.TrimSpace(l.TestIDAttribute) == "" {
		return fmt.Errorf("locator.test_id_attribute is required")
	}
	return nil
}

// Validate checks the retry section.
func (r RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if r.InitialDelay <= 0 {
		return fmt.Errorf("retry.initial_delay must be positive")
	}
	if r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("retry.max_delay must not be smaller than retry.initial_delay")
	}
	if r.BackoffFactor < 1 {
		return fmt.Errorf("retry.backoff_factor must be at least 1")
	}
	return nil
}
