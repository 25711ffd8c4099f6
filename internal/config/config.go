package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the asset tool configuration.
type Config struct {
	PluginDir            string        `mapstructure:"plugin_dir"`
	DatabasePath         string        `mapstructure:"database"`
	Header               string        `mapstructure:"header"`
	OutputDir            string        `mapstructure:"output_dir"`
	FileBaseName         string        `mapstructure:"file_base_name"`
	HistoryRetentionDays int           `mapstructure:"history_retention_days"`
	PrintCleanupDelay    time.Duration `mapstructure:"print_cleanup_delay"`
	EventLog             bool          `mapstructure:"eventlog"`
	SnipeIT              SnipeIT       `mapstructure:"snipeit"`
	Diagnostics          Diagnostics   `mapstructure:"diagnostics"`
	UI                   UI            `mapstructure:"ui"`
	Agent                Agent         `mapstructure:"agent"`
}

// SnipeIT configures the Snipe-IT sync plugin. The API key is normally kept
// in the OS keyring; APIKey only overrides it.
type SnipeIT struct {
	InternalURL string `mapstructure:"internal_url"`
	ExternalURL string `mapstructure:"external_url"`
	APIKey      string `mapstructure:"api_key"`
	StatusID    int    `mapstructure:"status_id"`
	CategoryID  int    `mapstructure:"category_id"`
}

// Diagnostics configures the health check.
type Diagnostics struct {
	DNSTarget    string        `mapstructure:"dns_target"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// Agent configures the scheduled inventory agent.
type Agent struct {
	Interval time.Duration `mapstructure:"interval"`
	Sync     bool          `mapstructure:"sync"`
}

// UI selects the terminal rendering.
type UI struct {
	Plain bool `mapstructure:"plain"`
}

// Load reads configuration from file and environment.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("assetkit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "assetkit"))
		}
	}

	viper.SetDefault("plugin_dir", "plugins")
	viper.SetDefault("database", "assetkit.db")
	viper.SetDefault("header", "")
	viper.SetDefault("output_dir", ".")
	viper.SetDefault("file_base_name", "asset-inventory")
	viper.SetDefault("history_retention_days", 0)
	viper.SetDefault("print_cleanup_delay", "15s")
	viper.SetDefault("eventlog", false)
	viper.SetDefault("snipeit.internal_url", "")
	viper.SetDefault("snipeit.external_url", "")
	viper.SetDefault("snipeit.api_key", "")
	viper.SetDefault("snipeit.status_id", 2)
	viper.SetDefault("snipeit.category_id", 1)
	viper.SetDefault("diagnostics.dns_target", "www.microsoft.com")
	viper.SetDefault("diagnostics.probe_timeout", "2s")
	viper.SetDefault("ui.plain", false)
	viper.SetDefault("agent.interval", "24h")
	viper.SetDefault("agent.sync", false)

	viper.SetEnvPrefix("ASSETKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A named config file must exist; the search path is optional.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Used reports the config file that was read, or "".
func Used() string {
	return viper.ConfigFileUsed()
}
