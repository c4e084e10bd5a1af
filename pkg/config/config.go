package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	User    UserConfig    `mapstructure:"user"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// APIConfig holds the search service endpoints
type APIConfig struct {
	URL          string        `mapstructure:"url"`
	SearchPath   string        `mapstructure:"search_path"`
	SessionsPath string        `mapstructure:"sessions_path"`
	FeedbackPath string        `mapstructure:"feedback_path"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"-"`
	TimeoutStr   string        `mapstructure:"timeout"` // For parsing string duration
}

// UserConfig identifies whose sessions are cached locally
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// StoreConfig holds the local session cache configuration
type StoreConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Path         string        `mapstructure:"path"`
	Retention    time.Duration `mapstructure:"-"`
	RetentionStr string        `mapstructure:"retention"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile string `mapstructure:"log_file"`
	Persist bool   `mapstructure:"persist"`
	Level   string `mapstructure:"level"`
}

// OutputConfig controls how answers are rendered in the terminal
type OutputConfig struct {
	Color     string `mapstructure:"color"` // auto, always, never
	Highlight bool   `mapstructure:"highlight"`
	Style     string `mapstructure:"style"` // chroma style name
	Sources   bool   `mapstructure:"sources"`
}

var (
	// Global config instance
	cfg *Config
)

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	// Set defaults first
	setDefaults()

	// Configure viper
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./" + DirName)                        // Check project directory first
		viper.AddConfigPath(filepath.Join(xdgConfigHome, DirName)) // Then check XDG config location
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("SEARCHSTREAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvironmentVariables()

	// A missing config file is fine; defaults and environment still apply
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Post-process durations (viper doesn't handle time.Duration directly)
	if err := processDurations(loaded); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	cfg = loaded
	return cfg, nil
}

// DirName is the settings directory, relative to the project or XDG config home
const DirName = ".searchstream"

// defaults holds every default configuration value. It backs both the
// runtime defaults and the settings file written by WriteDefaults.
var defaults = map[string]any{
	"api.url":           "https://api.daily.dev",
	"api.search_path":   "/search/query",
	"api.sessions_path": "/search/sessions",
	"api.feedback_path": "/search/feedback",
	"api.token":         "",
	"api.timeout":       "30s",

	"user.id": "anonymous",

	"store.enabled":   true,
	"store.path":      "./" + DirName + "/sessions.sqlite",
	"store.retention": "720h",

	"logging.log_file": "./" + DirName + "/system.log",
	"logging.persist":  false,
	"logging.level":    "info",

	"output.color":     "auto",
	"output.highlight": true,
	"output.style":     "monokai",
	"output.sources":   true,
}

// setDefaults sets all default configuration values
func setDefaults() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// bindEnvironmentVariables binds environment variables that do not follow
// the SEARCHSTREAM_ prefix convention
func bindEnvironmentVariables() {
	viper.BindEnv("api.token", "SEARCHSTREAM_API_TOKEN", "DAILY_DEV_TOKEN")
	viper.BindEnv("user.id", "SEARCHSTREAM_USER_ID", "DAILY_DEV_USER_ID")
	viper.BindEnv("config.path", "SEARCHSTREAM_CONFIG_DIR")
}

// processDurations converts string durations to time.Duration
func processDurations(c *Config) error {
	if c.API.TimeoutStr != "" {
		d, err := time.ParseDuration(c.API.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid api.timeout: %w", err)
		}
		c.API.Timeout = d
	} else if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}

	if c.Store.RetentionStr != "" {
		d, err := time.ParseDuration(c.Store.RetentionStr)
		if err != nil {
			return fmt.Errorf("invalid store.retention: %w", err)
		}
		c.Store.Retention = d
	}

	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// WriteDefaults writes a settings file holding the default configuration to
// target. An existing file is left alone unless force is set.
func WriteDefaults(target string, force bool) error {
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("%s already exists", target)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	// Use a separate viper instance so runtime overrides are not written
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(target); err != nil {
		return fmt.Errorf("failed to write default configuration: %w", err)
	}
	return nil
}
