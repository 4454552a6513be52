package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"giveaways-backend/internal/common/logger"
	"giveaways-backend/internal/features/giveaway/models"
)

// Open initializes a PostgreSQL connection through gorm and verifies it.
func Open(ctx context.Context, dsn string, autoMigrate bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if autoMigrate {
		if err := Migrate(gdb); err != nil {
			return nil, err
		}
		logger.Info().Msg("Database migrations applied")
	}

	return gdb, nil
}

// Migrate creates or updates the giveaway tables, including the unique
// entry index the admission path relies on.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.Giveaway{}, &models.Entry{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
