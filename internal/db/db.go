// internal/db/db.go
package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/uracles/mini-wallet-application/internal/logging"
)

const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second

	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = time.Hour
)

// Connect opens the Postgres connection pool, retrying while the database
// comes up. TranslateError turns driver unique-violations into
// gorm.ErrDuplicatedKey so repositories can branch on it.
func Connect(databaseURL string) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)

	for i := 0; i < connectAttempts; i++ {
		gdb, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		logging.Warn("database connection attempt failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", connectAttempts),
			zap.Error(err))
		time.Sleep(connectDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return gdb, nil
}

// Migrate runs the SQL migrations found under migrationsPath.
func Migrate(databaseURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("error initializing migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logging.Info("migrations completed", zap.String("path", migrationsPath))
	return nil
}

func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("error getting sql.DB: %w", err)
	}
	return sqlDB.Close()
}
