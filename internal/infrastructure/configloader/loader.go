package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when CONFIG_PATH is not set.
const DefaultConfigPath = "config/config.yml"

// Environment variables that override the file.
const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvExplorerAPIKey = "ETHERSCAN_API_KEY"
	EnvIndexerAPIKey  = "MORALIS_API_KEY"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvLogLevel       = "LOG_LEVEL"
	EnvServerPort     = "PORT"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	SwaggerEnabled  bool          `yaml:"swaggerEnabled"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// RPCConfig bounds every endpoint attempt. Endpoints replaces the built-in endpoint list of a network.
type RPCConfig struct {
	Timeout    time.Duration       `yaml:"timeout"`
	RetryCount int                 `yaml:"retryCount"`
	RetryDelay time.Duration       `yaml:"retryDelay"`
	Endpoints  map[string][]string `yaml:"endpoints"`
}

// ExplorerConfig holds the Etherscan-family API settings.
type ExplorerConfig struct {
	APIKey            string        `yaml:"apiKey"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
}

// IndexerConfig holds the Moralis API settings.
type IndexerConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	BaseURL             string        `yaml:"baseURL"`
	Timeout             time.Duration `yaml:"timeout"`
	MaxTokensPerRequest int           `yaml:"maxTokensPerRequest"`
}

// TokenPriceServiceConfig holds configuration for the TokenPriceService.
type TokenPriceServiceConfig struct {
	CacheTTL                 time.Duration `yaml:"cacheTTL"`
	MaxTokensPerBatchRequest int           `yaml:"maxTokensPerBatchRequest"`
	WarmUpOnStart            bool          `yaml:"warmUpOnStart"`
}

// RedisConfig is used when the storage backend is redis.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// StorageConfig selects the persistent cache backend: memory or redis.
type StorageConfig struct {
	Backend         string        `yaml:"backend"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	Redis           RedisConfig   `yaml:"redis"`
}

// DataConfig points at the token lists and the tracked wallet file.
type DataConfig struct {
	TokensDir   string `yaml:"tokensDir"`
	WalletsFile string `yaml:"walletsFile"`
}

// SnapshotConfig drives the periodic snapshot of tracked wallets. Interval 0 disables it.
type SnapshotConfig struct {
	Interval        time.Duration `yaml:"interval"`
	TrackedNetworks []string      `yaml:"trackedNetworks"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"max_concurrent_routines"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Logging       LoggingConfig           `yaml:"logging"`
	RPC           RPCConfig               `yaml:"rpc"`
	Explorer      ExplorerConfig          `yaml:"explorer"`
	Indexer       IndexerConfig           `yaml:"indexer"`
	DEXScreener   DEXScreenerConfig       `yaml:"dexScreener"`
	TokenPriceSvc TokenPriceServiceConfig `yaml:"tokenPriceService"`
	Storage       StorageConfig           `yaml:"storage"`
	Data          DataConfig              `yaml:"data"`
	Snapshots     SnapshotConfig          `yaml:"snapshots"`
	Performance   PerformanceConfig       `yaml:"performance"`
}

// PathFromEnv returns CONFIG_PATH or DefaultConfigPath.
func PathFromEnv() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadDotEnv loads .env files into the environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML configuration file from the given path, applies environment overrides
// and fills unset values with defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data. See Load.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(target *string, env string) {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
	override(&cfg.Explorer.APIKey, EnvExplorerAPIKey)
	override(&cfg.Indexer.APIKey, EnvIndexerAPIKey)
	override(&cfg.Storage.Redis.Addr, EnvRedisAddr)
	override(&cfg.Storage.Redis.Password, EnvRedisPassword)
	override(&cfg.Logging.Level, EnvLogLevel)
	override(&cfg.Server.Port, EnvServerPort)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		logrus.Infof("Logging.Level not set, defaulting to %s", cfg.Logging.Level)
	}

	if cfg.RPC.Timeout <= 0 {
		cfg.RPC.Timeout = 10 * time.Second
		logrus.Infof("RPC.Timeout not set, defaulting to %s", cfg.RPC.Timeout)
	}
	if cfg.RPC.RetryCount <= 0 {
		cfg.RPC.RetryCount = 2
	}
	if cfg.RPC.RetryDelay <= 0 {
		cfg.RPC.RetryDelay = time.Second
	}

	if cfg.Explorer.RequestsPerSecond <= 0 {
		cfg.Explorer.RequestsPerSecond = 5
	}
	if cfg.Explorer.Timeout <= 0 {
		cfg.Explorer.Timeout = 15 * time.Second
	}
	if cfg.Indexer.Timeout <= 0 {
		cfg.Indexer.Timeout = 15 * time.Second
	}
	if cfg.Explorer.APIKey == "" {
		logrus.Warnf("Explorer API key not set (%s), explorer history is disabled", EnvExplorerAPIKey)
	}
	if cfg.Indexer.APIKey == "" {
		logrus.Warnf("Indexer API key not set (%s), indexer history and prices are disabled", EnvIndexerAPIKey)
	}

	if cfg.DEXScreener.Timeout <= 0 {
		cfg.DEXScreener.Timeout = 10 * time.Second
	}
	if cfg.DEXScreener.MaxTokensPerRequest <= 0 {
		cfg.DEXScreener.MaxTokensPerRequest = 30 // DEXScreener limit
	}

	if cfg.TokenPriceSvc.CacheTTL <= 0 {
		cfg.TokenPriceSvc.CacheTTL = time.Minute
		logrus.Infof("TokenPriceSvc.CacheTTL not set, defaulting to %s", cfg.TokenPriceSvc.CacheTTL)
	}
	if cfg.TokenPriceSvc.MaxTokensPerBatchRequest <= 0 {
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest = cfg.DEXScreener.MaxTokensPerRequest
		logrus.Infof("MaxTokensPerBatchRequest for TokenPriceSvc not set, defaulting to %d", cfg.TokenPriceSvc.MaxTokensPerBatchRequest)
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
		logrus.Infof("Storage.Backend not set, defaulting to %s", cfg.Storage.Backend)
	}
	if cfg.Storage.CleanupInterval <= 0 {
		cfg.Storage.CleanupInterval = 10 * time.Minute
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "portfolio:"
	}

	if cfg.Data.TokensDir == "" {
		cfg.Data.TokensDir = "data/tokens"
	}
	if cfg.Data.WalletsFile == "" {
		cfg.Data.WalletsFile = "data/wallets.txt"
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
		logrus.Infof("Performance.MaxConcurrentRoutines not set, defaulting to %d", cfg.Performance.MaxConcurrentRoutines)
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q (want memory or redis)", c.Storage.Backend)
	}
	for network, urls := range c.RPC.Endpoints {
		for _, u := range urls {
			if strings.TrimSpace(u) == "" {
				return fmt.Errorf("empty RPC endpoint configured for network %s", network)
			}
		}
	}
	if c.Snapshots.Interval < 0 {
		return fmt.Errorf("snapshots.interval must not be negative, got %s", c.Snapshots.Interval)
	}
	return nil
}
