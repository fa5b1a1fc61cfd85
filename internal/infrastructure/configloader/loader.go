package configloader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
	ShutdownTimeoutSecs int      `yaml:"shutdownTimeoutSeconds"`
}

// DBConfig holds database-specific configurations.
type DBConfig struct {
	Driver   string `yaml:"driver"` // "postgres", "memory" or "http"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int     `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds int     `yaml:"rpc_call_timeout_seconds"`
	RequestsPerSecond     float64 `yaml:"requests_per_second"`
	Burst                 int     `yaml:"burst"`
}

// ExecutionConfig holds the batch execution policy.
type ExecutionConfig struct {
	MaxRetries            int   `yaml:"maxRetries"`
	BaseDelayMillis       int64 `yaml:"baseDelayMillis"`
	DelayBetweenBatchesMs int64 `yaml:"delayBetweenBatchesMillis"`
	ConfirmTimeoutSeconds int   `yaml:"confirmTimeoutSeconds"`

	// RetryDeterministicErrors keeps retrying insufficient funds/allowance errors.
	RetryDeterministicErrors bool `yaml:"retryDeterministicErrors"`
}

// JournalConfig holds the signature journal settings.
type JournalConfig struct {
	Path       string `yaml:"path"`
	ReplaySpec string `yaml:"replaySpec"` // cron spec, empty disables the replayer
}

// StatusAPIConfig points at a remote dashboard exposing the update-status endpoint.
type StatusAPIConfig struct {
	BaseURL              string `yaml:"baseURL"`
	APIKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// NetworkNodeConfig holds configuration for a specific blockchain network.
type NetworkNodeConfig struct {
	Identifier       string   `yaml:"identifier"` // "solana", "tron", "ethereum"
	Kind             string   `yaml:"kind"`
	ChainID          string   `yaml:"chainId"`
	EVMChainID       uint64   `yaml:"evmChainId"`
	RPCURL           string   `yaml:"rpcURL"`
	FallbackRPCURLs  []string `yaml:"fallbackRpcURLs"`
	APIKey           string   `yaml:"apiKey"`
	SpenderAddress   string   `yaml:"spenderAddress"`
	ContractAddress  string   `yaml:"contractAddress"`
	MaxItemsPerBatch int      `yaml:"maxItemsPerBatch"`
	DefaultDecimals  int32    `yaml:"defaultDecimals"`
	FeeLimitSun      int64    `yaml:"feeLimitSun"`
	KeyFile          string   `yaml:"keyFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig        `yaml:"server"`
	Database    DBConfig            `yaml:"database"`
	Logging     LoggingConfig       `yaml:"logging"`
	Performance PerformanceConfig   `yaml:"performance"`
	Execution   ExecutionConfig     `yaml:"execution"`
	Journal     JournalConfig       `yaml:"journal"`
	StatusAPI   StatusAPIConfig     `yaml:"statusApi"`
	Networks    []NetworkNodeConfig `yaml:"networks"`
}

// Network returns the configuration of the network with the given identifier.
func (c *Config) Network(identifier string) (NetworkNodeConfig, bool) {
	for _, n := range c.Networks {
		if strings.EqualFold(n.Identifier, identifier) {
			return n, true
		}
	}
	return NetworkNodeConfig{}, false
}

// Load reads the YAML configuration file from the given path and unmarshals it.
// Environment references like ${DB_PASSWORD} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals raw YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ShutdownTimeoutSecs <= 0 {
		cfg.Server.ShutdownTimeoutSecs = 5
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.RequestsPerSecond <= 0 {
		cfg.Performance.RequestsPerSecond = 5
	}
	if cfg.Performance.Burst <= 0 {
		cfg.Performance.Burst = 1
	}

	// Solana reference policy: 3 attempts, 1s linear backoff, 1.2s between batches.
	if cfg.Execution.MaxRetries <= 0 {
		cfg.Execution.MaxRetries = 3
	}
	if cfg.Execution.BaseDelayMillis <= 0 {
		cfg.Execution.BaseDelayMillis = 1000
	}
	if cfg.Execution.DelayBetweenBatchesMs <= 0 {
		cfg.Execution.DelayBetweenBatchesMs = 1200
	}
	if cfg.Execution.ConfirmTimeoutSeconds <= 0 {
		cfg.Execution.ConfirmTimeoutSeconds = 60
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "data/signatures.jsonl"
	}
	if cfg.StatusAPI.RequestTimeoutMillis <= 0 {
		cfg.StatusAPI.RequestTimeoutMillis = 10000
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "memory":
	case "http":
		if cfg.StatusAPI.BaseURL == "" {
			return fmt.Errorf("statusApi.baseURL is required for database driver %q", cfg.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	seen := make(map[string]bool)
	for i, network := range cfg.Networks {
		if network.Identifier == "" {
			return fmt.Errorf("networks[%d]: identifier is required", i)
		}
		key := strings.ToLower(network.Identifier)
		if seen[key] {
			return fmt.Errorf("networks[%d]: duplicate identifier %q", i, network.Identifier)
		}
		seen[key] = true
	}
	return nil
}
