package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smith3v/tg-couple-bot/pkg/config"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	dialector, err := openDialector(cfg)
	if err != nil {
		logger.Error("invalid database configuration", "error", err)
		return err
	}
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	if cfg.Driver == config.DriverSQLite {
		// One writer at a time; the sweepers and handlers share the file.
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	DB = gdb
	logger.Info("database ready", "driver", cfg.Driver)
	return nil
}

// Migrate creates or updates every table and repairs legacy settings rows.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	if err := migrateSettingsClockFormat(gdb); err != nil {
		logger.Error("failed to normalize settings times", "error", err)
		return err
	}
	return nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case config.DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = config.StoragePath()
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqlite.Open(sqliteDSN(path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + sslMode
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// migrateSettingsClockFormat rewrites settings times such as "9:00" into the
// zero-padded form the sweep compares against. Unparseable values fall back
// to the column default.
func migrateSettingsClockFormat(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	var rows []CoupleSettings
	err := gdb.Where("length(reminder_time) <> 5 OR length(qotd_send_time) <> 5 OR length(qotd_summary_time) <> 5").
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		updates := map[string]interface{}{
			"reminder_time":     normalizeOr(row.ReminderTime, "09:00"),
			"qotd_send_time":    normalizeOr(row.QotdSendTime, "12:00"),
			"qotd_summary_time": normalizeOr(row.QotdSummaryTime, "20:00"),
		}
		if err := gdb.Model(&CoupleSettings{}).Where("couple_id = ?", row.CoupleID).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeOr(value, fallback string) string {
	normalized, err := timeutil.NormalizeClock(value)
	if err != nil {
		return fallback
	}
	return normalized
}
