package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Postgres.Host != DefaultPGHost {
		t.Errorf("Postgres.Host = %q, want %q", cfg.Postgres.Host, DefaultPGHost)
	}
	if cfg.Postgres.PoolMax != DefaultPGPoolMax {
		t.Errorf("Postgres.PoolMax = %d, want %d", cfg.Postgres.PoolMax, DefaultPGPoolMax)
	}
	if cfg.Bonus.OnboardingAmount != DefaultOnboardingBonus {
		t.Errorf("Bonus.OnboardingAmount = %d, want %d", cfg.Bonus.OnboardingAmount, DefaultOnboardingBonus)
	}
	if cfg.Bonus.ExpiryDays != DefaultBonusExpiryDays {
		t.Errorf("Bonus.ExpiryDays = %d, want %d", cfg.Bonus.ExpiryDays, DefaultBonusExpiryDays)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"
format = "json"

[telegram]
bot_token = "123:abc"
admin_ids = [11, 22]
logs_chat_id = -100500

[postgres]
host = "db.internal"
port = 6432
user = "bot"
password = "pw"
database = "clients"
pool_max = 10

[bonus]
onboarding_amount = 500
expiry_days = 14
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", cfg.Telegram.BotToken)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[1] != 22 {
		t.Errorf("AdminIDs = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Telegram.LogsChatID != -100500 {
		t.Errorf("LogsChatID = %d", cfg.Telegram.LogsChatID)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 6432 {
		t.Errorf("Postgres = %+v", cfg.Postgres)
	}
	if cfg.Postgres.PoolMin != DefaultPGPoolMin {
		t.Errorf("PoolMin = %d, want default %d", cfg.Postgres.PoolMin, DefaultPGPoolMin)
	}
	if cfg.Bonus.OnboardingAmount != 500 || cfg.Bonus.ExpiryDays != 14 {
		t.Errorf("Bonus = %+v", cfg.Bonus)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env:token")
	t.Setenv("POSTGRES_PASSWORD", "env-pw")
	t.Setenv("ADMIN_TG_IDS", "1 2 nope 3")
	t.Setenv("LOGS_CHAT_ID", "-42")
	t.Setenv("ONBOARDING_BONUS", "777")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Telegram.BotToken != "env:token" {
		t.Errorf("BotToken = %q", cfg.Telegram.BotToken)
	}
	if cfg.Postgres.Password != "env-pw" {
		t.Errorf("Password = %q", cfg.Postgres.Password)
	}
	want := []int64{1, 2, 3}
	if len(cfg.Telegram.AdminIDs) != len(want) {
		t.Fatalf("AdminIDs = %v, want %v", cfg.Telegram.AdminIDs, want)
	}
	for i, id := range want {
		if cfg.Telegram.AdminIDs[i] != id {
			t.Errorf("AdminIDs[%d] = %d, want %d", i, cfg.Telegram.AdminIDs[i], id)
		}
	}
	if cfg.Telegram.LogsChatID != -42 {
		t.Errorf("LogsChatID = %d", cfg.Telegram.LogsChatID)
	}
	if cfg.Bonus.OnboardingAmount != 777 {
		t.Errorf("OnboardingAmount = %d", cfg.Bonus.OnboardingAmount)
	}
}
