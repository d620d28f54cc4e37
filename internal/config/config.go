// Package config holds the application configuration, loaded once at startup
// through viper with defaults, config file and environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Explorer ExplorerConfig `mapstructure:"explorer" yaml:"explorer"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
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

// ExplorerConfig tunes the traversal-and-exploration engine. All values are
// read once when a run starts.
type ExplorerConfig struct {
	// MaxIterations bounds the scheduler's dequeue attempts; the run always
	// terminates within MaxIterations regardless of how many triggers a page
	// keeps injecting.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// SettleInterval is the fixed wait after every interaction, giving the
	// page's own handlers time to render revealed content.
	SettleInterval time.Duration `mapstructure:"settle_interval" yaml:"settle_interval"`
	Debug          bool          `mapstructure:"debug" yaml:"debug"`

	// Viewport dimensions recorded in the report's environment block and
	// applied to the live-fetch browser window.
	ViewportWidth  int `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// FetchConfig controls the optional live page-source fetch that runs before
// an exploration when the target is an http(s) URL.
type FetchConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "domscout-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Explorer --
	v.SetDefault("explorer.max_iterations", 1000)
	v.SetDefault("explorer.settle_interval", 200*time.Millisecond)
	v.SetDefault("explorer.debug", false)
	v.SetDefault("explorer.viewport_width", 1280)
	v.SetDefault("explorer.viewport_height", 800)

	// -- Fetch --
	v.SetDefault("fetch.headless", true)
	v.SetDefault("fetch.navigation_timeout", 90*time.Second)
	v.SetDefault("fetch.post_load_wait", 2*time.Second)
	v.SetDefault("fetch.user_agent", "")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Explorer.MaxIterations <= 0 {
		return fmt.Errorf("explorer.max_iterations must be a positive integer")
	}
	if c.Explorer.SettleInterval <= 0 {
		return fmt.Errorf("explorer.settle_interval must be a positive duration")
	}
	if c.Explorer.ViewportWidth <= 0 || c.Explorer.ViewportHeight <= 0 {
		return fmt.Errorf("explorer viewport dimensions must be positive")
	}
	if c.Fetch.NavigationTimeout <= 0 {
		return fmt.Errorf("fetch.navigation_timeout must be a positive duration")
	}
	return nil
}
