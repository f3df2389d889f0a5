package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_UsesSavingsServiceInternalAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "INTERNAL_API_KEY")
	setEnvWithCleanup(t, "SAVINGS_SERVICE_INTERNAL_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "alias-only-key" {
		t.Fatalf("expected InternalAPIKey from alias env var, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_InternalAPIKeyTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "INTERNAL_API_KEY", "primary-key")
	setEnvWithCleanup(t, "SAVINGS_SERVICE_INTERNAL_API_KEY", "alias-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "primary-key" {
		t.Fatalf("expected InternalAPIKey to prioritize INTERNAL_API_KEY, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "DEFAULT_CURRENCY")
	unsetEnvWithCleanup(t, "LEDGER_MAX_RETRIES")
	unsetEnvWithCleanup(t, "AUTOMATION_CRON_SCHEDULE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DefaultCurrency != "GHS" {
		t.Fatalf("expected default currency GHS, got %q", cfg.DefaultCurrency)
	}
	if cfg.LedgerMaxRetries != 3 {
		t.Fatalf("expected default LedgerMaxRetries 3, got %d", cfg.LedgerMaxRetries)
	}
	if cfg.AutomationCronSchedule == "" {
		t.Fatal("expected a default automation schedule")
	}
}

func TestLoadConfig_CurrencyIsNormalized(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "DEFAULT_CURRENCY", " ghs ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DefaultCurrency != "GHS" {
		t.Fatalf("expected normalized currency GHS, got %q", cfg.DefaultCurrency)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
