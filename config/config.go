package config

// Config represents the core bankfeed configuration
type Config struct {
	Watch    WatchConfig    `mapstructure:"watch"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Export   ExportConfig   `mapstructure:"export"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// WatchConfig configures the incoming-directory watcher
type WatchConfig struct {
	Root       string   `mapstructure:"root"`        // directory tree to watch for dropped files
	SchemaPath string   `mapstructure:"schema_path"` // declarative YAML schema
	Datasets   []string `mapstructure:"datasets"`    // file stems to track; empty = every schema key
	DebounceMS int      `mapstructure:"debounce_ms"` // quiet period before a file counts as stable
}

// PipelineConfig configures orchestrator concurrency
type PipelineConfig struct {
	Workers     int `mapstructure:"workers"`      // concurrent processing workers (default: 1)
	QueueBuffer int `mapstructure:"queue_buffer"` // bounded notification queue size
}

// ExportConfig configures the HDFS warehouse loader
type ExportConfig struct {
	Container string `mapstructure:"container"` // docker container running the HDFS client
	HDFSPath  string `mapstructure:"hdfs_path"` // warehouse root, e.g. /user/hive/warehouse
	TempDir   string `mapstructure:"temp_dir"`  // staging directory inside the container
}

// NotifyConfig configures validation-failure email delivery.
// Sender address and password come from the environment
// (BANKFEED_EMAIL_ADDRESS / BANKFEED_EMAIL_PASSWORD), not the config file.
type NotifyConfig struct {
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	Recipient string `mapstructure:"recipient"`
	Enabled   bool   `mapstructure:"enabled"`
}

// Default dataset keys tracked when the config names none.
// These match the schema entries shipped in data/schema.yaml.
var DefaultDatasets = []string{
	"customer_profiles",
	"support_tickets",
	"credit_cards_billing",
	"transactions",
	"loans",
}

const (
	DefaultDebounceMS  = 1000
	DefaultWorkers     = 1
	DefaultQueueBuffer = 256
	DefaultSMTPPort    = 465
)
