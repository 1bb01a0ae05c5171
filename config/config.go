package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffle/database"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	OracleModeNATS  = "nats"
	OracleModeLocal = "local"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string
	Storage      string // "postgres" or "memory"

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables NATS

	// Oracle configuration
	OracleMode         string // "nats" or "local"
	LocalOracleDelay   time.Duration
	GasLane            common.Hash
	SubscriptionID     uint64
	CallbackGasLimit   uint32
	UpkeepPollInterval time.Duration

	// Lottery configuration
	EntranceFee *big.Int
	Interval    time.Duration

	// HTTP configuration
	HTTPAddr string

	// Logging
	LogLevel string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Load reads and validates the configuration without touching the global instance
func Load() (*Config, error) {
	return load()
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// UsesNATS reports whether a NATS connection is configured
func (c *Config) UsesNATS() bool {
	return strings.TrimSpace(c.NATSServers) != ""
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		Storage:      getEnvWithDefault("STORAGE", StoragePostgres),

		NATSServers: os.Getenv("NATS_SERVERS"),

		OracleMode:         getEnvWithDefault("ORACLE_MODE", OracleModeLocal),
		LocalOracleDelay:   2 * time.Second,
		CallbackGasLimit:   500000,
		UpkeepPollInterval: 5 * time.Second,

		EntranceFee: big.NewInt(10000000000000000), // 0.01 ether
		Interval:    30 * time.Second,

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "raffle"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 10000,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if fee := os.Getenv("ENTRANCE_FEE_WEI"); fee != "" {
		parsed, ok := math.ParseBig256(fee)
		if !ok || parsed.Sign() < 0 {
			return nil, fmt.Errorf("invalid ENTRANCE_FEE_WEI: %q", fee)
		}
		config.EntranceFee = parsed
	}

	if secs := os.Getenv("INTERVAL_SECONDS"); secs != "" {
		parsed, err := strconv.ParseInt(secs, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid INTERVAL_SECONDS: %q", secs)
		}
		config.Interval = time.Duration(parsed) * time.Second
	}

	if gasLane := os.Getenv("GAS_LANE"); gasLane != "" {
		config.GasLane = common.HexToHash(gasLane)
	}

	if subID := os.Getenv("SUBSCRIPTION_ID"); subID != "" {
		parsed, err := strconv.ParseUint(subID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SUBSCRIPTION_ID: %q", subID)
		}
		config.SubscriptionID = parsed
	}

	if gasLimit := os.Getenv("CALLBACK_GAS_LIMIT"); gasLimit != "" {
		parsed, err := strconv.ParseUint(gasLimit, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid CALLBACK_GAS_LIMIT: %q", gasLimit)
		}
		config.CallbackGasLimit = uint32(parsed)
	}

	if poll := os.Getenv("UPKEEP_POLL_SECONDS"); poll != "" {
		if parsed, err := strconv.Atoi(poll); err == nil && parsed > 0 {
			config.UpkeepPollInterval = time.Duration(parsed) * time.Second
		}
	}

	if delay := os.Getenv("LOCAL_ORACLE_DELAY_MS"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil && parsed >= 0 {
			config.LocalOracleDelay = time.Duration(parsed) * time.Millisecond
		}
	}

	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	switch config.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, config.Storage)
	}

	switch config.OracleMode {
	case OracleModeLocal:
	case OracleModeNATS:
		if !config.UsesNATS() {
			return nil, fmt.Errorf("NATS_SERVERS is required when ORACLE_MODE is %q", OracleModeNATS)
		}
	default:
		return nil, fmt.Errorf("ORACLE_MODE must be %q or %q, got %q", OracleModeNATS, OracleModeLocal, config.OracleMode)
	}

	if config.Environment != "test" {
		if config.Storage == StoragePostgres && config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:        "test",
		Storage:            StorageMemory,
		OracleMode:         OracleModeLocal,
		EntranceFee:        big.NewInt(10000000000000000),
		Interval:           30 * time.Second,
		CallbackGasLimit:   500000,
		UpkeepPollInterval: 5 * time.Second,
		HTTPAddr:           ":0",
		LogLevel:           "debug",
		OTelServiceName:    "raffle-test",
		OTelExporterType:   "none",
	}
}
