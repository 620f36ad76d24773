package database

import (
	"fmt"

	"github.com/meshpay/payment-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs schema migrations for all payment models.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("Running database migrations")

	if err := db.AutoMigrate(
		&model.Transaction{},
		&model.ProcessedEvent{},
		&model.Anomaly{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations completed")
	return nil
}
