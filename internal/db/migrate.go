package db

import (
	"fmt"

	"github.com/algasur/algatrack/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the GORM auto-migrations for all entities.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.AlgaeType{},
		&models.ProductionRecord{},
		&models.ProductiveCapacity{},
		&models.ReportConfiguration{},
		&models.AccessLog{},
	); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	return nil
}
