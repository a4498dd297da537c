package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Ledger (Etherscan-compatible) configuration
	Ethereum EthereumConfig

	// Price and metadata provider configuration
	Prices PricesConfig

	// Cache configuration
	Cache CacheConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Search defaults
	Search SearchConfig

	// Logging configuration
	Log LogConfig
}

// EthereumConfig holds ledger API and pagination settings
type EthereumConfig struct {
	ChainID        int64         `envconfig:"ETH_CHAIN_ID" default:"1"`
	ChainName      string        `envconfig:"ETH_CHAIN_NAME" default:"Ethereum"`
	NativeSymbol   string        `envconfig:"ETH_NATIVE_SYMBOL" default:"ETH"`
	APIURL         string        `envconfig:"ETHERSCAN_API_URL" default:"https://api.etherscan.io/v2/api"`
	APIKey         string        `envconfig:"ETHERSCAN_API_KEY" default:""`
	RequestTimeout time.Duration `envconfig:"ETH_REQUEST_TIMEOUT" default:"30s"`
	RateLimit      int           `envconfig:"ETH_RATE_LIMIT_PER_MINUTE" default:"300"`

	PageSize        int           `envconfig:"ETH_PAGE_SIZE" default:"10000"`
	MaxTransactions int           `envconfig:"ETH_MAX_TRANSACTIONS" default:"50000"`
	PageDelay       time.Duration `envconfig:"ETH_PAGE_DELAY" default:"500ms"`
	MaxRetries      int           `envconfig:"ETH_MAX_RETRIES" default:"3"`
	RetryDelay      time.Duration `envconfig:"ETH_RETRY_DELAY" default:"2s"`
	RetryMaxDelay   time.Duration `envconfig:"ETH_RETRY_MAX_DELAY" default:"16s"`

	// Empty pages below this start block are treated as possible throttling. 0 disables the check.
	SuspiciousEmptyBelowBlock int64 `envconfig:"ETH_SUSPICIOUS_EMPTY_BELOW_BLOCK" default:"23000000"`

	MinPlausibleBlock  int64   `envconfig:"ETH_MIN_PLAUSIBLE_BLOCK" default:"15000000"`
	MaxPlausibleBlock  int64   `envconfig:"ETH_MAX_PLAUSIBLE_BLOCK" default:"30000000"`
	ReferenceBlock     int64   `envconfig:"ETH_REFERENCE_BLOCK" default:"21000000"`
	ReferenceTimestamp int64   `envconfig:"ETH_REFERENCE_TIMESTAMP" default:"1730000000"`
	BlockTimeSeconds   float64 `envconfig:"ETH_BLOCK_TIME_SECONDS" default:"12.05"`
}

// PricesConfig holds price and metadata provider settings
type PricesConfig struct {
	DefiLlamaURL     string        `envconfig:"DEFILLAMA_API_URL" default:"https://coins.llama.fi"`
	DefiLlamaChain   string        `envconfig:"DEFILLAMA_CHAIN" default:"ethereum"`
	CryptoCompareURL string        `envconfig:"CRYPTOCOMPARE_API_URL" default:"https://min-api.cryptocompare.com"`
	CryptoCompareKey string        `envconfig:"CRYPTOCOMPARE_API_KEY" default:""`
	CoinGeckoURL     string        `envconfig:"COINGECKO_API_URL" default:"https://api.coingecko.com"`
	CoinGeckoID      string        `envconfig:"COINGECKO_NATIVE_ID" default:"ethereum"`
	MoralisURL       string        `envconfig:"MORALIS_API_URL" default:"https://deep-index.moralis.io/api/v2.2"`
	MoralisKey       string        `envconfig:"MORALIS_API_KEY" default:""`
	MoralisChain     string        `envconfig:"MORALIS_CHAIN" default:"eth"`
	RequestTimeout   time.Duration `envconfig:"PRICES_REQUEST_TIMEOUT" default:"10s"`
	RateLimit        int           `envconfig:"PRICES_RATE_LIMIT_PER_MINUTE" default:"600"`

	// How long the metadata provider is skipped after it reports rate limiting
	MetadataBackoff time.Duration `envconfig:"METADATA_RATE_LIMIT_BACKOFF" default:"1h"`
	OnChainMetadata bool          `envconfig:"METADATA_ONCHAIN_ENABLED" default:"true"`
}

// CacheConfig holds TTLs for the three cache stores
type CacheConfig struct {
	TokenInfoTTL       time.Duration `envconfig:"CACHE_TOKEN_INFO_TTL" default:"24h"`
	HistoricalPriceTTL time.Duration `envconfig:"CACHE_HISTORICAL_PRICE_TTL" default:"12h"`
	CurrentPriceTTL    time.Duration `envconfig:"CACHE_CURRENT_PRICE_TTL" default:"5m"`
	FailedTTL          time.Duration `envconfig:"CACHE_FAILED_TTL" default:"1h"`
	CleanupInterval    time.Duration `envconfig:"CACHE_CLEANUP_INTERVAL" default:"10m"`
	RedisEnabled       bool          `envconfig:"REDIS_ENABLED" default:"false"`
	RedisPrefix        string        `envconfig:"REDIS_KEY_PREFIX" default:"chain-analytics:"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Addr returns the host:port pair
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"10"`
	SearchTimeout   time.Duration `envconfig:"API_SEARCH_TIMEOUT" default:"4m"`
}

// SearchConfig holds orchestration defaults
type SearchConfig struct {
	DefaultTimeframeDays     int     `envconfig:"SEARCH_DEFAULT_TIMEFRAME_DAYS" default:"180"`
	SelfWhaleThresholdUSD    float64 `envconfig:"SEARCH_SELF_WHALE_THRESHOLD_USD" default:"10000"`
	DefaultWhaleThresholdUSD float64 `envconfig:"SEARCH_WHALE_THRESHOLD_USD" default:"50000"`
	TopCounterparties        int     `envconfig:"SEARCH_TOP_COUNTERPARTIES" default:"10"`
	CounterpartyRatio        float64 `envconfig:"SEARCH_COUNTERPARTY_RATIO" default:"2.0"`
	LabelsFile               string  `envconfig:"SEARCH_LABELS_FILE" default:""`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"json"`
	File       string `envconfig:"LOG_FILE" default:""`
	MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`
}

// Load loads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot constrain
func (c *Config) Validate() error {
	if c.Ethereum.PageSize <= 0 {
		return fmt.Errorf("ETH_PAGE_SIZE must be positive, got %d", c.Ethereum.PageSize)
	}
	if c.Ethereum.MaxRetries < 0 {
		return fmt.Errorf("ETH_MAX_RETRIES must not be negative, got %d", c.Ethereum.MaxRetries)
	}
	if c.Ethereum.BlockTimeSeconds <= 0 {
		return fmt.Errorf("ETH_BLOCK_TIME_SECONDS must be positive, got %v", c.Ethereum.BlockTimeSeconds)
	}
	if c.Search.DefaultTimeframeDays <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_TIMEFRAME_DAYS must be positive, got %d", c.Search.DefaultTimeframeDays)
	}
	if c.Search.CounterpartyRatio <= 1 {
		return fmt.Errorf("SEARCH_COUNTERPARTY_RATIO must be greater than 1, got %v", c.Search.CounterpartyRatio)
	}
	return nil
}
