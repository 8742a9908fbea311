package database

import (
	"fmt"

	"github.com/ksred/innovest-portal/internal/database/migrations"
	"github.com/ksred/innovest-portal/internal/sandbox"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the sandbox sqlite database at dsn and brings its schema
// and demo data up to date
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the sandbox schemas
	if err := db.AutoMigrate(sandbox.Models()...); err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddMarketplaceIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.SeedDemoData(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
