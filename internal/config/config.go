package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/xxxsen/common/logger"

	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
)

type Config struct {
	DB        DBConfig         `json:"db"`
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	AI        AIConfig         `json:"ai"`
	Cache     CacheConfig      `json:"cache"`
	// CORSOrigins restricts browser access; empty keeps the API open,
	// which is the usual setup for the local desktop client.
	CORSOrigins []string `json:"cors_origins"`
}

type DBConfig struct {
	Driver        string `json:"driver"`
	DSN           string `json:"dsn"`
	MigrationsDir string `json:"migrations_dir"`
}

type AIConfig struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
	TimeoutSec int    `json:"timeout_sec"`
}

type CacheConfig struct {
	// Negative values keep entries forever; 0 falls back to the
	// CACHE_TTL_DAYS env var, then the default.
	TTLDays int `json:"ttl_days"`
}

const (
	defaultModel        = "gemini-2.0-flash-exp"
	defaultCacheTTLDays = 30
)

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = dbutil.DriverSQLite
	}
	if cfg.DB.Driver != dbutil.DriverSQLite && cfg.DB.Driver != dbutil.DriverPostgres {
		return nil, fmt.Errorf("db.driver must be sqlite or postgres")
	}
	if cfg.DB.DSN == "" {
		if cfg.DB.Driver != dbutil.DriverSQLite {
			return nil, fmt.Errorf("db.dsn is required for postgres")
		}
		cfg.DB.DSN = "database.db"
	}
	if cfg.DB.MigrationsDir == "" {
		cfg.DB.MigrationsDir = "migrations"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultModel
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key is required (or set GEMINI_API_KEY)")
	}
	if cfg.AI.TimeoutSec == 0 {
		cfg.AI.TimeoutSec = 120
	}
	if cfg.Cache.TTLDays == 0 {
		cfg.Cache.TTLDays = defaultCacheTTLDays
		if raw := os.Getenv("CACHE_TTL_DAYS"); raw != "" {
			if days, err := strconv.Atoi(raw); err == nil {
				cfg.Cache.TTLDays = days
			}
		}
	}
	return &cfg, nil
}
