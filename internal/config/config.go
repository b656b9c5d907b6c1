// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Device DeviceConfig `mapstructure:"device" yaml:"device"`
	Agent  AgentConfig  `mapstructure:"agent" yaml:"agent"`
	Model  ModelConfig  `mapstructure:"model" yaml:"model"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DeviceConfig selects the device backend and tunes command behavior.
// The backend is chosen once per session; there is no mid-session
// auto-detection.
type DeviceConfig struct {
	Backend        string        `mapstructure:"backend" yaml:"backend"`
	ID             string        `mapstructure:"id" yaml:"id"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	Timing         TimingConfig  `mapstructure:"timing" yaml:"timing"`
}

// TimingConfig holds the settle delays applied after device commands.
// On-device UI state updates asynchronously, so each mutating command is
// followed by a short pause before the next one is issued.
type TimingConfig struct {
	Tap             time.Duration `mapstructure:"tap" yaml:"tap"`
	DoubleTapGap    time.Duration `mapstructure:"double_tap_gap" yaml:"double_tap_gap"`
	Swipe           time.Duration `mapstructure:"swipe" yaml:"swipe"`
	Key             time.Duration `mapstructure:"key" yaml:"key"`
	Launch          time.Duration `mapstructure:"launch" yaml:"launch"`
	KeyboardSwitch  time.Duration `mapstructure:"keyboard_switch" yaml:"keyboard_switch"`
	KeyboardRestore time.Duration `mapstructure:"keyboard_restore" yaml:"keyboard_restore"`
	TextClear       time.Duration `mapstructure:"text_clear" yaml:"text_clear"`
	TextInput       time.Duration `mapstructure:"text_input" yaml:"text_input"`
}

// AgentConfig holds settings for the session step loop.
type AgentConfig struct {
	MaxSteps       int `mapstructure:"max_steps" yaml:"max_steps"`
	HistoryWindow  int `mapstructure:"history_window" yaml:"history_window"`
	EventBufferLen int `mapstructure:"event_buffer_len" yaml:"event_buffer_len"`
}

// ModelConfig configures the remote model endpoint.
type ModelConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Name           string        `mapstructure:"name" yaml:"name"`
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// RequestsPerSecond caps the outbound request rate to the model endpoint.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "phonepilot")
	v.SetDefault("logger.log_file", "phonepilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Device --
	v.SetDefault("device.backend", "adb")
	v.SetDefault("device.command_timeout", "30s")
	v.SetDefault("device.timing.tap", "1s")
	v.SetDefault("device.timing.double_tap_gap", "100ms")
	v.SetDefault("device.timing.swipe", "1s")
	v.SetDefault("device.timing.key", "1s")
	v.SetDefault("device.timing.launch", "2s")
	v.SetDefault("device.timing.keyboard_switch", "1s")
	v.SetDefault("device.timing.keyboard_restore", "500ms")
	v.SetDefault("device.timing.text_clear", "500ms")
	v.SetDefault("device.timing.text_input", "1s")

	// -- Agent --
	v.SetDefault("agent.max_steps", 50)
	v.SetDefault("agent.history_window", 20)
	v.SetDefault("agent.event_buffer_len", 8)

	// -- Model --
	v.SetDefault("model.base_url", "https://open.bigmodel.cn/api/paas/v4")
	v.SetDefault("model.name", "autoglm-phone")
	v.SetDefault("model.request_timeout", "120s")
	v.SetDefault("model.requests_per_second", 1.0)
}

// NewDefaultConfig creates a configuration struct populated with default values.
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

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	SetDefaults(v)

	// Bind environment variables for sensitive data.
	v.BindEnv("model.api_key", "PHONEPILOT_MODEL_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the key if Unmarshal didn't pick it up.
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("PHONEPILOT_MODEL_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Device.Backend {
	case "adb", "hdc", "ios":
	default:
		return fmt.Errorf("device.backend must be one of adb, hdc, ios; got %q", c.Device.Backend)
	}
	if c.Device.CommandTimeout <= 0 {
		return fmt.Errorf("device.command_timeout must be a positive duration")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Agent.EventBufferLen < 0 {
		return fmt.Errorf("agent.event_buffer_len must not be negative")
	}
	if c.Model.RequestTimeout <= 0 {
		return fmt.Errorf("model.request_timeout must be a positive duration")
	}
	if c.Model.RequestsPerSecond <= 0 {
		return fmt.Errorf("model.requests_per_second must be positive")
	}
	return nil
}
