package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultTimezone       = "Europe/Moscow"
	DefaultCatchUpMinutes = 10
	DefaultQuestionsFile  = "questions.txt"

	localDatabasePath  = "lovebot.db"
	renderDatabasePath = "/data/lovebot.db"
)

type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Telegram  TelegramConfig  `json:"telegram"`
	TMDB      TMDBConfig      `json:"tmdb"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	HTTP      HTTPConfig      `json:"http"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type TelegramConfig struct {
	Token string `json:"token"`
}

type TMDBConfig struct {
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	Language string `json:"language"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

type SchedulerConfig struct {
	Timezone       string `json:"timezone"`
	CatchUpMinutes int    `json:"catch_up_minutes"`
	QuestionsFile  string `json:"questions_file"`
}

// HTTPConfig controls the ops listener. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

var AppConfig Config

// LoadConfig reads the optional JSON file, applies .env and environment
// overrides, fills defaults and validates required secrets. An empty filename
// skips the file and relies on the environment alone.
func LoadConfig(filename string) error {
	var cfg Config
	if strings.TrimSpace(filename) != "" {
		file, err := os.Open(filename)
		if err != nil {
			logger.Error("failed to open config file", "error", err)
			return err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			logger.Error("failed to decode config file", "error", err)
			return err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("failed to load .env file", "error", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

// Validate reports every missing secret at once.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		missing = append(missing, "TMDB_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Scheduler.CatchUpMinutes < 1 || c.Scheduler.CatchUpMinutes > 60 {
		return fmt.Errorf("scheduler.catch_up_minutes must be within 1..60, got %d", c.Scheduler.CatchUpMinutes)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := getenv("TMDB_API_KEY"); v != "" {
		cfg.TMDB.APIKey = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.Driver = DriverPostgres
		cfg.Database.URL = v
	}
	if v := getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := getenv("CATCH_UP_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CATCH_UP_MINUTES %q: %w", v, err)
		}
		cfg.Scheduler.CatchUpMinutes = minutes
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Driver == DriverSQLite && cfg.Database.Path == "" {
		cfg.Database.Path = StoragePath()
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = DefaultTimezone
	}
	if cfg.Scheduler.CatchUpMinutes == 0 {
		cfg.Scheduler.CatchUpMinutes = DefaultCatchUpMinutes
	}
	if cfg.Scheduler.QuestionsFile == "" {
		cfg.Scheduler.QuestionsFile = DefaultQuestionsFile
	}
}

// StoragePath picks the sqlite file location. Render instances mount a
// persistent disk at /data.
func StoragePath() string {
	if getenv("RENDER") != "" {
		return renderDatabasePath
	}
	return localDatabasePath
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
