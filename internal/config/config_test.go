package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.Trading.Coins = nil
	cfg.Trading.TradeFraction = 1.5
	cfg.Trading.SelectorStrategy = "alphabetical"
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		`unknown mode "replay"`,
		"coins must not be empty",
		"trade_fraction must be in (0, 1]",
		`unknown selector_strategy "alphabetical"`,
		"redis: addr must not be empty",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateArchiveOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = false
	cfg.Archive.Bucket = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled archive should not be validated: %v", err)
	}

	cfg.Archive.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled archive with empty bucket should fail validation")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TMX_TRADING_COINS", "bitcoin, ethereum")
	t.Setenv("TMX_TRADING_CYCLE_INTERVAL", "90s")
	t.Setenv("TMX_TRADING_STARTING_CASH", "25000")
	t.Setenv("TMX_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("TMX_MODE", "server")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if got, want := len(cfg.Trading.Coins), 2; got != want {
		t.Errorf("coins = %v, want 2 entries", cfg.Trading.Coins)
	}
	if cfg.Trading.Coins[1] != "ethereum" {
		t.Errorf("coins[1] = %q, want ethereum", cfg.Trading.Coins[1])
	}
	if cfg.Trading.CycleInterval.Duration != 90*time.Second {
		t.Errorf("cycle interval = %v, want 90s", cfg.Trading.CycleInterval.Duration)
	}
	if cfg.Trading.StartingCash != 25000 {
		t.Errorf("starting cash = %v, want 25000", cfg.Trading.StartingCash)
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Errorf("postgres password not overridden")
	}
	if cfg.Mode != "server" {
		t.Errorf("mode = %q, want server", cfg.Mode)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "secret"
	cfg.Redis.Password = "secret"
	cfg.Archive.SecretKey = "secret"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)
	if red.Postgres.Password != redacted || red.Redis.Password != redacted ||
		red.Archive.SecretKey != redacted || red.Notify.TelegramToken != redacted {
		t.Error("secrets not redacted")
	}
	if cfg.Postgres.Password != "secret" {
		t.Error("original config mutated")
	}

	red.Trading.Coins[0] = "mutated"
	if cfg.Trading.Coins[0] == "mutated" {
		t.Error("redacted copy shares coins slice with original")
	}
}
