package repository

import (
	"context"

	"github.com/meshpay/payment-service/internal/domain/model"
)

// AnomalyRepository persists rejected-but-acknowledged deliveries for
// operator review.
type AnomalyRepository interface {
	Create(ctx context.Context, anomaly *model.Anomaly) error
	List(ctx context.Context, limit int) ([]*model.Anomaly, error)
	ListByTransactionRef(ctx context.Context, ref string) ([]*model.Anomaly, error)
}
