package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/quizitive/commonology-sub000/internal/models"
)

// Migrate creates or updates every table, unique index and join table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
