package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meshpay/payment-service/internal/domain/model"
	domainRepo "github.com/meshpay/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type anomalyRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAnomalyRepository creates a gorm-backed AnomalyRepository.
func NewAnomalyRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AnomalyRepository {
	return &anomalyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *anomalyRepository) Create(ctx context.Context, anomaly *model.Anomaly) error {
	if anomaly.ID == uuid.Nil {
		anomaly.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(anomaly).Error; err != nil {
		r.logger.Error("Failed to create anomaly record",
			zap.String("provider", anomaly.Provider),
			zap.String("event_id", anomaly.ProviderEventID),
			zap.String("reason", anomaly.Reason),
			zap.Error(err))
		return fmt.Errorf("failed to create anomaly record: %w", err)
	}

	return nil
}

func (r *anomalyRepository) List(ctx context.Context, limit int) ([]*model.Anomaly, error) {
	var anomalies []*model.Anomaly

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&anomalies).Error; err != nil {
		r.logger.Error("Failed to list anomalies", zap.Error(err))
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}

	return anomalies, nil
}

func (r *anomalyRepository) ListByTransactionRef(ctx context.Context, ref string) ([]*model.Anomaly, error) {
	var anomalies []*model.Anomaly

	err := r.db.WithContext(ctx).
		Where("transaction_ref = ?", ref).
		Order("created_at DESC").
		Find(&anomalies).Error

	if err != nil {
		r.logger.Error("Failed to list anomalies for transaction",
			zap.String("transaction_ref", ref),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list anomalies for transaction: %w", err)
	}

	return anomalies, nil
}
