// internal/db/check.go
package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Ping verifies the connection pool can still reach Postgres. The health
// endpoint uses it to report readiness.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("error getting sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
