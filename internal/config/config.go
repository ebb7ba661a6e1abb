package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ledgerviz/internal/models"
)

// EnvPrefix prefixes every environment override, e.g. LEDGERVIZ_LISTEN_ADDR
const EnvPrefix = "LEDGERVIZ"

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `mapstructure:"listen_addr"`
	Debug      bool   `mapstructure:"debug"`

	// Directories
	DataDirectory     string `mapstructure:"data_dir"`
	SettingsDirectory string `mapstructure:"settings_dir"`

	// File paths
	UserSettingsFile string `mapstructure:"user_settings_file"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Charts
	DefaultInterval models.Interval `mapstructure:"default_interval"`
	ChartWidth      int             `mapstructure:"chart_width"`
	ChartHeight     int             `mapstructure:"chart_height"`

	Categories models.CategoryNames `mapstructure:"categories"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	dataDir := filepath.Join(wd, "data")

	return &Config{
		ListenAddr:        ":8080",
		DataDirectory:     dataDir,
		SettingsDirectory: filepath.Join(dataDir, "settings"),
		UserSettingsFile:  filepath.Join(dataDir, "settings", "user_settings.json"),
		LogLevel:          "info",
		DefaultInterval:   models.Month,
		ChartWidth:        900,
		ChartHeight:       300,
		Categories:        models.DefaultCategoryNames(),
	}
}

// Load reads configuration from defaults, an optional TOML file named by
// LEDGERVIZ_CONFIG (or ledgerviz.toml in the working directory), a .env file
// and LEDGERVIZ_* environment variables, in increasing precedence
func Load() (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	defaults := DefaultConfig()
	v := viper.New()

	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("data_dir", defaults.DataDirectory)
	v.SetDefault("settings_dir", "")
	v.SetDefault("user_settings_file", "")
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_json", defaults.LogJSON)
	v.SetDefault("default_interval", string(defaults.DefaultInterval))
	v.SetDefault("chart_width", defaults.ChartWidth)
	v.SetDefault("chart_height", defaults.ChartHeight)
	v.SetDefault("categories.income", defaults.Categories.Income)
	v.SetDefault("categories.expenses", defaults.Categories.Expenses)
	v.SetDefault("categories.assets", defaults.Categories.Assets)
	v.SetDefault("categories.liabilities", defaults.Categories.Liabilities)

	v.SetConfigType("toml")
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ledgerviz")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// settings live under the data directory unless placed explicitly
	if cfg.SettingsDirectory == "" {
		cfg.SettingsDirectory = filepath.Join(cfg.DataDirectory, "settings")
	}
	if cfg.UserSettingsFile == "" {
		cfg.UserSettingsFile = filepath.Join(cfg.SettingsDirectory, "user_settings.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	interval, err := models.ParseInterval(string(c.DefaultInterval))
	if err != nil {
		return fmt.Errorf("default_interval: %w", err)
	}
	c.DefaultInterval = interval

	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.ChartWidth, c.ChartHeight)
	}
	return nil
}

// EnsureDirectories creates the data and settings directories
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDirectory, c.SettingsDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
