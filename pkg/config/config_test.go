package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BOT_TOKEN", "TMDB_API_KEY", "DATABASE_URL", "DATABASE_PATH", "LOG_LEVEL", "HTTP_ADDR", "CATCH_UP_MINUTES", "RENDER"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigSuccess(t *testing.T) {
	clearEnv(t)
	original := AppConfig
	t.Cleanup(func() {
		AppConfig = original
	})

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	content := `{
		"database": {
			"driver": "postgres",
			"host": "localhost",
			"user": "test-user",
			"password": "test-pass",
			"dbname": "testdb",
			"port": 5433,
			"sslmode": "disable"
		},
		"telegram": {
			"token": "test-token"
		},
		"tmdb": {
			"api_key": "tmdb-key"
		},
		"scheduler": {
			"catch_up_minutes": 3
		}
	}`

	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}

	if err := LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if AppConfig.Database.Host != "localhost" {
		t.Errorf("expected host to be localhost, got %q", AppConfig.Database.Host)
	}
	if AppConfig.Database.Port != 5433 {
		t.Errorf("expected port to be 5433, got %d", AppConfig.Database.Port)
	}
	if AppConfig.Telegram.Token != "test-token" {
		t.Errorf("expected token to be test-token, got %q", AppConfig.Telegram.Token)
	}
	if AppConfig.Scheduler.Timezone != DefaultTimezone {
		t.Errorf("expected default timezone, got %q", AppConfig.Scheduler.Timezone)
	}
	if AppConfig.Scheduler.CatchUpMinutes != 3 {
		t.Errorf("expected catch-up window 3, got %d", AppConfig.Scheduler.CatchUpMinutes)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	original := AppConfig
	t.Cleanup(func() {
		AppConfig = original
	})

	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error when loading a missing config file")
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	clearEnv(t)
	original := AppConfig
	t.Cleanup(func() {
		AppConfig = original
	})

	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("TMDB_API_KEY", "env-tmdb")

	if err := LoadConfig(""); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if AppConfig.Telegram.Token != "env-token" {
		t.Errorf("expected env token, got %q", AppConfig.Telegram.Token)
	}
	if AppConfig.Database.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver by default, got %q", AppConfig.Database.Driver)
	}
	if AppConfig.Database.Path != "lovebot.db" {
		t.Errorf("expected local storage path, got %q", AppConfig.Database.Path)
	}
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	clearEnv(t)
	original := AppConfig
	t.Cleanup(func() {
		AppConfig = original
	})

	err := LoadConfig("")
	if err == nil {
		t.Fatal("expected an error when secrets are missing")
	}
	if !strings.Contains(err.Error(), "BOT_TOKEN") || !strings.Contains(err.Error(), "TMDB_API_KEY") {
		t.Fatalf("expected both secrets to be reported, got %v", err)
	}
}

func TestStoragePathOnRender(t *testing.T) {
	t.Setenv("RENDER", "true")
	if got := StoragePath(); got != "/data/lovebot.db" {
		t.Fatalf("expected render disk path, got %q", got)
	}
	t.Setenv("RENDER", "")
	if got := StoragePath(); got != "lovebot.db" {
		t.Fatalf("expected local path, got %q", got)
	}
}
