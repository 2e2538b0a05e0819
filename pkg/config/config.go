// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/labledger/pkg/domain/services"
)

type Config struct {
	Storage StorageConfig
	Lock    LockConfig
	Server  ServerConfig
	Logging LoggingConfig
	Ledger  LedgerConfig
}

type StorageConfig struct {
	Backend      string // file, sql or memory
	File         string
	BackupDir    string
	BackupKeep   int
	Dialect      string // mysql or sqlite
	DSN          string
	DocumentName string
}

type LockConfig struct {
	Backend       string // memory or redis
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type LedgerConfig struct {
	PostPolicy       string
	DefaultYieldBase decimal.Decimal
	ProductStockUnit string
	WaterLikeNames   []string
	UnitsFile        string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	yieldBase, err := decimal.NewFromString(getEnv("DEFAULT_YIELD_BASE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_YIELD_BASE: %w", err)
	}

	cfg := &Config{
		Storage: StorageConfig{
			Backend:      getEnv("DATA_BACKEND", "file"),
			File:         getEnv("DATA_FILE", "data/labledger.json"),
			BackupDir:    getEnv("BACKUP_DIR", "data/backups"),
			BackupKeep:   getEnvAsInt("BACKUP_KEEP", 30),
			Dialect:      getEnv("DB_DIALECT", "sqlite"),
			DSN:          getEnv("DB_DSN", "data/labledger.db"),
			DocumentName: getEnv("DOCUMENT_NAME", "default"),
		},
		Lock: LockConfig{
			Backend:       getEnv("LOCK_BACKEND", "memory"),
			RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           time.Duration(getEnvAsInt("LOCK_TTL_SECONDS", 30)) * time.Second,
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Ledger: LedgerConfig{
			PostPolicy:       getEnv("POST_POLICY", "tolerant"),
			DefaultYieldBase: yieldBase,
			ProductStockUnit: getEnv("PRODUCT_STOCK_UNIT", "kg"),
			WaterLikeNames:   getEnvAsList("WATER_LIKE_NAMES"),
			UnitsFile:        getEnv("UNITS_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and policies.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sql", "memory":
	default:
		return fmt.Errorf("DATA_BACKEND must be file, sql or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "sql" {
		switch c.Storage.Dialect {
		case "mysql", "sqlite":
		default:
			return fmt.Errorf("DB_DIALECT must be mysql or sqlite, got %q", c.Storage.Dialect)
		}
	}
	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("LOCK_BACKEND must be memory or redis, got %q", c.Lock.Backend)
	}
	switch c.Ledger.PostPolicy {
	case "tolerant", "strict":
	default:
		return fmt.Errorf("POST_POLICY must be tolerant or strict, got %q", c.Ledger.PostPolicy)
	}
	if !c.Ledger.DefaultYieldBase.IsPositive() {
		return fmt.Errorf("DEFAULT_YIELD_BASE must be positive, got %s", c.Ledger.DefaultYieldBase)
	}
	if c.Storage.BackupKeep < 0 {
		return fmt.Errorf("BACKUP_KEEP cannot be negative, got %d", c.Storage.BackupKeep)
	}
	return nil
}

// LoadUnitTable parses a YAML unit table such as:
//
//	units:
//	  - name: drum
//	    dimension: mass
//	    factor: 200
//	    aliases: [桶]
func LoadUnitTable(path string) (services.UnitTable, error) {
	var table services.UnitTable
	raw, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("failed to read unit table: %w", err)
	}
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return table, fmt.Errorf("failed to parse unit table %s: %w", path, err)
	}
	return table, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList returns nil when key is unset so callers keep their defaults.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
