package repository

import (
	"context"
	"time"

	"github.com/meshpay/payment-service/internal/domain/model"
)

// TransactionRepository persists reconciled payment records.
type TransactionRepository interface {
	// Create inserts a new transaction. Used by the upstream
	// payment-creation flow and by tests; webhooks never create records.
	Create(ctx context.Context, tx *model.Transaction) error

	// GetByRef loads a transaction by its provider-agnostic reference.
	// Returns (nil, nil) when no record exists.
	GetByRef(ctx context.Context, ref string) (*model.Transaction, error)

	// UpdateStatusConditional advances the transaction to status iff the
	// stored version still equals fromVersion, incrementing the version by
	// one. Returns false without error when the conditional update lost to
	// a concurrent writer.
	UpdateStatusConditional(ctx context.Context, ref string, fromVersion int64, status model.TransactionStatus, eventAt time.Time, providerData model.JSONB) (bool, error)
}
