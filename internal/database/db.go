package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"contentstudio/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// defaultSQLiteURL is used when DATABASE_URL is unset; the file lands
// in the user config directory, not the working directory.
const defaultSQLiteURL = "sqlite://contentstudio.db"

var DB *gorm.DB

// Init opens the database selected by DATABASE_URL (sqlite by default,
// postgres via a postgres:// URL), configures the connection pool from
// the DB_* environment knobs and runs auto-migration.
func Init() (*gorm.DB, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = defaultSQLiteURL
	}

	dialector, err := openDialector(databaseURL)
	if err != nil {
		return nil, err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	configurePool(sqlDB)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := AutoMigrate(DB); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	log.Println("Database initialized successfully")
	return DB, nil
}

// openDialector maps a database URL onto a gorm driver.
func openDialector(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path, err := sqlitePath(strings.TrimPrefix(databaseURL, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return sqlite.Open(path), nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database URL format: %s", databaseURL)
	}
}

// sqlitePath resolves where the sqlite file lives. A bare filename goes
// under the config directory (CONTENTSTUDIO_CONFIG_DIR override, then
// the platform default); an explicit path is used as given.
func sqlitePath(path string) (string, error) {
	if path != filepath.Base(path) || path == ":memory:" {
		return path, nil
	}

	dir := os.Getenv("CONTENTSTUDIO_CONFIG_DIR")
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user config directory: %w", err)
		}
		dir = filepath.Join(configDir, "contentstudio")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	full := filepath.Join(dir, path)
	log.Printf("Using database at: %s", full)
	return full, nil
}

// gormLogLevel keeps gorm quiet unless LOG_LEVEL asks for query logs.
func gormLogLevel() logger.LogLevel {
	if os.Getenv("LOG_LEVEL") == "DEBUG" {
		return logger.Info
	}
	return logger.Warn
}

// configurePool applies the DB_* pool knobs with sensible defaults.
func configurePool(sqlDB *sql.DB) {
	maxOpen := envInt("DB_MAX_OPEN_CONNS", 25)
	maxIdle := envInt("DB_MAX_IDLE_CONNS", 5)
	maxLifetime := envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	log.Printf("Database connection pool configured: max_open=%d, max_idle=%d, max_lifetime=%v",
		maxOpen, maxIdle, maxLifetime)
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.WorkspaceProfile{},
		&models.BrandProfile{},
		&models.GenerationRecord{},
		&models.Draft{},
		&models.ScheduledJob{},
		&models.Experiment{},
		&models.ExperimentVariant{},
	)
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB returns the database instance (helper for services)
func GetDB() *gorm.DB {
	return DB
}
