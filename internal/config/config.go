package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TokenAddressKey is the constant holding the token contract address passed
// as the sole constructor argument.
const TokenAddressKey = "CRYPTO_DEV_TOKEN_CONTRACT_ADDRESS"

// Config holds all configuration for a deployctl run
type Config struct {
	Chain        ChainConfig
	Deploy       DeployConfig
	Explorer     ExplorerConfig
	Storage      StorageConfig
	Logging      LoggingConfig
	Metrics      MetricsConfig
	History      HistoryConfig
	NetworksFile string

	// Constants are fixed values of previously deployed contracts, keyed by name.
	Constants Constants
}

// ChainConfig holds RPC and signing settings
type ChainConfig struct {
	RPCURL     string
	PrivateKey string
	// Network overrides the registry name resolved from the RPC chain ID.
	Network string
}

// DeployConfig holds deployment settings
type DeployConfig struct {
	ProjectDir        string
	Contract          string
	Confirmations     int
	FailOnVerifyError bool
}

// ExplorerConfig holds block-explorer verification settings
type ExplorerConfig struct {
	APIKey         string
	APIURL         string
	RequestsPerSec float64
	PollInterval   time.Duration
	MaxPolls       int
}

// StorageConfig holds deployment history storage configuration
type StorageConfig struct {
	Type     string // "sqlite", "postgres" or "none"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text", "json" or "" for auto
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled        bool
	PushgatewayURL string
}

// HistoryConfig holds settings for the history HTTP API
type HistoryConfig struct {
	Addr            string
	// RateLimitPerMin caps API requests per client; 0 disables limiting.
	RateLimitPerMin int
	RateLimitBurst  int
}

// Constants is a read-only name -> value table.
type Constants map[string]string

// Get returns the constant and whether it was set.
func (c Constants) Get(name string) (string, bool) {
	v, ok := c[name]
	return v, ok
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			RPCURL: "http://127.0.0.1:8545",
		},
		Deploy: DeployConfig{
			ProjectDir:    ".",
			Contract:      "Exchange",
			Confirmations: 10,
		},
		Explorer: ExplorerConfig{
			RequestsPerSec: 5,
			PollInterval:   5 * time.Second,
			MaxPolls:       60,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "./deployments/deployctl.db",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		History: HistoryConfig{
			Addr:            "127.0.0.1:8090",
			RateLimitPerMin: 600,
			RateLimitBurst:  50,
		},
		Constants: Constants{},
	}
}

// Load builds the configuration from defaults, the project file at
// projectPath (optional) and environment variables, in increasing order of
// precedence.
func Load(projectPath string) (*Config, error) {
	cfg := Default()

	project, err := loadProjectFile(projectPath)
	if err != nil {
		return nil, err
	}
	if project != nil {
		project.apply(cfg)
	}

	applyEnv(cfg)

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Chain.RPCURL = getEnv("RPC_URL", cfg.Chain.RPCURL)
	cfg.Chain.PrivateKey = getEnv("PRIVATE_KEY", cfg.Chain.PrivateKey)
	cfg.Chain.Network = getEnv("NETWORK", cfg.Chain.Network)

	cfg.Deploy.ProjectDir = getEnv("PROJECT_DIR", cfg.Deploy.ProjectDir)
	cfg.Deploy.Contract = getEnv("CONTRACT_NAME", cfg.Deploy.Contract)
	cfg.Deploy.Confirmations = getEnvInt("CONFIRMATIONS", cfg.Deploy.Confirmations)
	cfg.Deploy.FailOnVerifyError = getEnvBool("FAIL_ON_VERIFY_ERROR", cfg.Deploy.FailOnVerifyError)

	cfg.Explorer.APIKey = getEnv("ETHERSCAN_API_KEY", cfg.Explorer.APIKey)
	cfg.Explorer.APIURL = getEnv("EXPLORER_API_URL", cfg.Explorer.APIURL)
	cfg.Explorer.RequestsPerSec = getEnvFloat("EXPLORER_RPS", cfg.Explorer.RequestsPerSec)
	cfg.Explorer.PollInterval = time.Duration(getEnvInt("EXPLORER_POLL_SECONDS", int(cfg.Explorer.PollInterval/time.Second))) * time.Second
	cfg.Explorer.MaxPolls = getEnvInt("EXPLORER_MAX_POLLS", cfg.Explorer.MaxPolls)

	cfg.Storage.Type = getEnv("STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.Postgres.URL = getEnv("DATABASE_URL", cfg.Storage.Postgres.URL)
	cfg.Storage.SQLite.Path = getEnv("SQLITE_PATH", cfg.Storage.SQLite.Path)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.PushgatewayURL = getEnv("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)

	cfg.History.Addr = getEnv("HISTORY_ADDR", cfg.History.Addr)
	cfg.History.RateLimitPerMin = getEnvInt("HISTORY_RATE_LIMIT", cfg.History.RateLimitPerMin)
	cfg.History.RateLimitBurst = getEnvInt("HISTORY_RATE_BURST", cfg.History.RateLimitBurst)
	cfg.NetworksFile = getEnv("NETWORKS_FILE", cfg.NetworksFile)

	if v, ok := os.LookupEnv(TokenAddressKey); ok {
		cfg.Constants[TokenAddressKey] = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
