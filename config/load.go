package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nexabank/bankfeed/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the bankfeed configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	applyFallbacks(&config)

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	applyFallbacks(&config)

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	// SMTP credentials live in a .env file next to the binary or the project
	// root. Missing file is fine; real deployments set the variables directly.
	_ = godotenv.Load()

	v := viper.New()

	v.SetEnvPrefix("BANKFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path := findProjectConfig(); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		// Config file is optional; defaults plus env vars are a valid setup.
		_ = v.ReadInConfig()
	}

	viperInstance = v
	return v
}

// findProjectConfig searches for bankfeed.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, "bankfeed.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// SetDefaults applies default values to a Viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("watch.root", "./incoming_data")
	v.SetDefault("watch.schema_path", "data/schema.yaml")
	v.SetDefault("watch.debounce_ms", DefaultDebounceMS)

	v.SetDefault("pipeline.workers", DefaultWorkers)
	v.SetDefault("pipeline.queue_buffer", DefaultQueueBuffer)

	v.SetDefault("export.container", "master1")
	v.SetDefault("export.hdfs_path", "/user/hive/warehouse")
	v.SetDefault("export.temp_dir", "/tmp/hdfs_export")

	v.SetDefault("notify.smtp_host", "smtp.gmail.com")
	v.SetDefault("notify.smtp_port", DefaultSMTPPort)
	v.SetDefault("notify.enabled", false)
}

// applyFallbacks fills derived values viper defaults cannot express
func applyFallbacks(c *Config) {
	if len(c.Watch.Datasets) == 0 {
		c.Watch.Datasets = append(c.Watch.Datasets, DefaultDatasets...)
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = DefaultWorkers
	}
	if c.Pipeline.QueueBuffer <= 0 {
		c.Pipeline.QueueBuffer = DefaultQueueBuffer
	}
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = DefaultDebounceMS
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Watch.Root == "" {
		return errors.New("watch.root must not be empty")
	}
	if c.Watch.SchemaPath == "" {
		return errors.New("watch.schema_path must not be empty")
	}
	if c.Notify.Enabled && c.Notify.Recipient == "" {
		return errors.New("notify.enabled requires notify.recipient")
	}
	return nil
}
