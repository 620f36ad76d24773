package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meshpay/payment-service/internal/domain/model"
	domainRepo "github.com/meshpay/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a gorm-backed TransactionRepository.
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new transaction record.
func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("transaction_ref", tx.TransactionRef),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByRef retrieves a transaction by reference.
func (r *transactionRepository) GetByRef(ctx context.Context, ref string) (*model.Transaction, error) {
	var tx model.Transaction

	err := r.db.WithContext(ctx).
		Where("transaction_ref = ?", ref).
		First(&tx).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction",
			zap.String("transaction_ref", ref),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// UpdateStatusConditional performs the version-conditioned status update.
// RowsAffected == 0 means another writer advanced the version first; the
// caller re-reads and recomputes rather than overwriting blindly.
func (r *transactionRepository) UpdateStatusConditional(ctx context.Context, ref string, fromVersion int64, status model.TransactionStatus, eventAt time.Time, providerData model.JSONB) (bool, error) {
	updates := map[string]interface{}{
		"status":        string(status),
		"version":       gorm.Expr("version + 1"),
		"last_event_at": eventAt,
		"updated_at":    time.Now(),
	}
	if providerData != nil {
		updates["provider_data"] = providerData
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_ref = ? AND version = ?", ref, fromVersion).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to update transaction status",
			zap.String("transaction_ref", ref),
			zap.Int64("from_version", fromVersion),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to update transaction: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
