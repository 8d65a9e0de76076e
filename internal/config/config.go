// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "cleanbot"
	DefaultPGSSLMode       = "disable"
	DefaultPGPoolMin       = 1
	DefaultPGPoolMax       = 5
	DefaultOnboardingBonus = 300
	DefaultBonusExpiryDays = 30
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Telegram TelegramConfig `toml:"telegram"`
	Postgres PostgresConfig `toml:"postgres"`
	Bonus    BonusConfig    `toml:"bonus"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TelegramConfig holds the bot token and the staff chat ids.
// AdminIDs receive customer questions and orders; LogsChatID receives
// signup notifications (0 disables them).
type TelegramConfig struct {
	BotToken   string  `toml:"bot_token"`
	AdminIDs   []int64 `toml:"admin_ids"`
	LogsChatID int64   `toml:"logs_chat_id"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
	PoolMin  int    `toml:"pool_min"`
	PoolMax  int    `toml:"pool_max"`
}

// BonusConfig holds the onboarding bonus amount and its validity window.
type BonusConfig struct {
	OnboardingAmount int `toml:"onboarding_amount"`
	ExpiryDays       int `toml:"expiry_days"`
}

// Load reads and parses the TOML config file at path, applies default values
// for missing fields, and then applies environment overrides (BOT_TOKEN,
// ADMIN_TG_IDS, LOGS_CHAT_ID, POSTGRES_PASSWORD, ONBOARDING_BONUS).
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
			PoolMin:  DefaultPGPoolMin,
			PoolMax:  DefaultPGPoolMax,
		},
		Bonus: BonusConfig{
			OnboardingAmount: DefaultOnboardingBonus,
			ExpiryDays:       DefaultBonusExpiryDays,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if value := os.Getenv("BOT_TOKEN"); value != "" {
		cfg.Telegram.BotToken = value
	}
	if value := os.Getenv("POSTGRES_PASSWORD"); value != "" {
		cfg.Postgres.Password = value
	}
	if value := os.Getenv("LOGS_CHAT_ID"); value != "" {
		if id, err := strconv.ParseInt(value, 10, 64); err == nil {
			cfg.Telegram.LogsChatID = id
		}
	}
	if value := os.Getenv("ADMIN_TG_IDS"); value != "" {
		ids := make([]int64, 0, 4)
		for _, field := range strings.Fields(value) {
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			cfg.Telegram.AdminIDs = ids
		}
	}
	if value := os.Getenv("ONBOARDING_BONUS"); value != "" {
		if amount, err := strconv.Atoi(value); err == nil && amount > 0 {
			cfg.Bonus.OnboardingAmount = amount
		}
	}
}
