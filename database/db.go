package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

// Open connects to the configured store. TranslateError is enabled so unique
// violations surface as gorm.ErrDuplicatedKey on both drivers.
func Open(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 && (cfg.Driver == "" || cfg.Driver == "sqlite") {
		// sqlite serializes writers anyway; one connection avoids "database is locked"
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}

	if log != nil {
		log.Info("Database connected successfully", "driver", driverName(cfg.Driver))
	}
	return db, nil
}

// Migrate creates or updates the schema. The partial unique index is what
// keeps two correlation jobs for one signal from being IN_PROGRESS together.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Signal{}, &models.Audit{}, &models.CorrelationJob{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_correlation_jobs_in_flight
		ON correlation_jobs (signal_id) WHERE status = 'IN_PROGRESS'`).Error
	if err != nil {
		return fmt.Errorf("failed to create in-flight job index: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsUniqueViolation reports whether err came from a unique index. Drivers
// that predate error translation are matched on their message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}
