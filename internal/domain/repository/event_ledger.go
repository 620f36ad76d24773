package repository

import (
	"context"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/model"
)

// EventLedger is the durable record of processed provider events. The
// record-if-new insert is the single atomic idempotency primitive; a
// separate exists-then-insert sequence is a race under concurrent
// duplicate deliveries and must not be introduced.
type EventLedger interface {
	// RecordIfNew atomically claims the (provider, provider event id) key.
	// It returns (true, row) when this delivery is the first for the key
	// and (false, existing) when a ledger entry already exists.
	RecordIfNew(ctx context.Context, evt *event.PaymentEvent) (bool, *model.ProcessedEvent, error)

	// MarkCompleted finalizes a claimed entry with the reconciliation
	// outcome. Only completed entries short-circuit redeliveries.
	MarkCompleted(ctx context.Context, provider event.Provider, providerEventID string, resultStatus string) error

	// MarkFailed records a processing failure and schedules the entry for
	// reprocessing when the provider redelivers.
	MarkFailed(ctx context.Context, provider event.Provider, providerEventID string, cause error) error

	// GetEvent loads a ledger entry, or (nil, nil) when none exists.
	GetEvent(ctx context.Context, provider event.Provider, providerEventID string) (*model.ProcessedEvent, error)
}
