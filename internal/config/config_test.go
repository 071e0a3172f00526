// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "scalpel-heal", cfg.Logger.ServiceName)
	assert.Equal(t, 10*time.Second, cfg.Locator.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Locator.ProbeTimeout)
	assert.True(t, cfg.Locator.EnableHealing)
	assert.True(t, cfg.Locator.LogHealing)
	assert.Equal(t, 5, cfg.Locator.MaxHealingAttempts)
	assert.Equal(t, 10, cfg.Locator.AmbiguityThreshold)
	assert.Equal(t, "data-testid", cfg.Locator.TestIDAttribute)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, "chromedp", cfg.Browser.Driver)
	assert.Equal(t, "text", cfg.Report.Format)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero timeout", func(c *Config) { c.Locator.Timeout = 0 }, "locator.timeout must be positive"},
		{"probe longer than timeout", func(c *Config) { c.Locator.ProbeTimeout = time.Minute }, "locator.probe_timeout must not exceed"},
		{"no healing budget", func(c *Config) { c.Locator.MaxHealingAttempts = 0 }, "locator.max_healing_attempts must be a positive integer"},
		{"threshold too small", func(c *Config) { c.Locator.AmbiguityThreshold = 1 }, "locator.ambiguity_threshold must be at least 2"},
		{"empty test id attribute", func(c *Config) { c.Locator.TestIDAttribute = " " }, "locator.test_id_attribute is required"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts must be at least 1"},
		{"max below initial", func(c *Config) { c.Retry.MaxDelay = time.Millisecond }, "retry.max_delay must not be smaller"},
		{"shrinking factor", func(c *Config) { c.Retry.BackoffFactor = 0.5 }, "retry.backoff_factor must be at least 1"},
		{"unknown driver", func(c *Config) { c.Browser.Driver = "selenium" }, "browser.driver must be one of"},
		{"unknown report format", func(c *Config) { c.Report.Format = "xml" }, "report.format must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Loading Tests --

func TestLoad_FromYAML(t *testing.T) {
	yamlConfig := []byte(`
logger:
  level: debug
locator:
  timeout: 20s
  probe_timeout: 750ms
  enable_healing: false
  ambiguity_threshold: 5
retry:
  max_attempts: 4
  backoff_factor: 3
browser:
  driver: playwright
  headless: false
report:
  format: json
`)
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 20*time.Second, cfg.Locator.Timeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Locator.ProbeTimeout)
	assert.False(t, cfg.Locator.EnableHealing)
	assert.Equal(t, 5, cfg.Locator.AmbiguityThreshold)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Locator.MaxHealingAttempts)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, "playwright", cfg.Browser.Driver)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "json", cfg.Report.Format)
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	v := viper.New()
	v.Set("locator.max_healing_attempts", -1)

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locator.max_healing_attempts")
}
