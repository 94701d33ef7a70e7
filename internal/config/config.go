// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Backup struct {
		Path          string `mapstructure:"path"`
		IntervalHours int    `mapstructure:"interval_hours"`
		Keep          int    `mapstructure:"keep"`
	} `mapstructure:"backup"`
	Plugins struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"plugins"`
	Search struct {
		ProviderTimeoutSeconds int `mapstructure:"provider_timeout_seconds"`
	} `mapstructure:"search"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "TSUNDOKU_"
	// prefix. e.g., TSUNDOKU_DATABASE_PATH overrides the `database.path` key.
	viper.SetEnvPrefix("TSUNDOKU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("database.path", "./tsundoku.db")
	viper.SetDefault("backup.path", "./backups")
	viper.SetDefault("backup.interval_hours", 24)
	viper.SetDefault("backup.keep", 10)
	viper.SetDefault("plugins.path", "./plugins")
	viper.SetDefault("search.provider_timeout_seconds", 30)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
