package database

import (
	"fmt"

	"gorm.io/gorm"

	"presence-sync-service/internal/domain"
)

// AutoMigrate runs GORM auto-migration for all domain models
// It creates tables, indexes, and foreign key constraints based on the
// struct definitions in the domain package
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&domain.DirectoryUser{},
		&domain.CurrentPresence{},
		&domain.PresenceSnapshot{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}

	return nil
}
