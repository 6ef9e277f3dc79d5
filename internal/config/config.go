package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/research-funding-ledger/internal/money"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	// HTTP listen address
	HTTPAddr string `env:"LEDGER_HTTP_ADDR" envDefault:":8080"`

	// debug, info, warn or error
	LogLevel string `env:"LEDGER_LOG_LEVEL" envDefault:"info"`
	// Optional log file; rotated when set, stdout otherwise
	LogFile string `env:"LEDGER_LOG_FILE"`
	// Rotation of LogFile
	LogMaxSizeMB  int  `env:"LEDGER_LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int  `env:"LEDGER_LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int  `env:"LEDGER_LOG_MAX_AGE_DAYS" envDefault:"28"`
	LogCompress   bool `env:"LEDGER_LOG_COMPRESS" envDefault:"true"`

	// memory, postgres or sqlite
	Store       string `env:"LEDGER_STORE" envDefault:"memory"`
	DatabaseURL string `env:"LEDGER_DATABASE_URL"`
	SQLitePath  string `env:"LEDGER_SQLITE_PATH" envDefault:"ledger.db"`

	// Kafka brokers; events go to the debug log when empty
	KafkaBrokers     []string `env:"LEDGER_KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string   `env:"LEDGER_KAFKA_TOPIC_PREFIX" envDefault:"research_funding"`

	// Decimal places between display units and base units (SOL = 9)
	UnitDecimals int32 `env:"LEDGER_UNIT_DECIMALS" envDefault:"9"`

	TokenAudience string        `env:"LEDGER_TOKEN_AUDIENCE" envDefault:"research-funding-ledger"`
	TokenMaxAge   time.Duration `env:"LEDGER_TOKEN_MAX_AGE" envDefault:"15m"`
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LEDGER_DATABASE_URL is required for the postgres store")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("LEDGER_SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.UnitDecimals < 0 || c.UnitDecimals > money.MaxDecimals {
		return fmt.Errorf("LEDGER_UNIT_DECIMALS must be between 0 and %d", money.MaxDecimals)
	}
	if c.TokenAudience == "" {
		return fmt.Errorf("LEDGER_TOKEN_AUDIENCE is required")
	}
	if c.TokenMaxAge <= 0 {
		return fmt.Errorf("LEDGER_TOKEN_MAX_AGE must be positive")
	}
	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}
