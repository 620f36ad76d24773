package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/model"
	domainRepo "github.com/meshpay/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventLedgerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEventLedgerRepository creates a gorm-backed EventLedger.
func NewEventLedgerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.EventLedger {
	return &eventLedgerRepository{
		db:     db,
		logger: logger,
	}
}

// RecordIfNew claims the (provider, provider_event_id) key with a single
// ON CONFLICT DO NOTHING insert. RowsAffected decides new-vs-duplicate,
// so concurrent duplicate deliveries race on the unique index, not on an
// application-level read.
func (r *eventLedgerRepository) RecordIfNew(ctx context.Context, evt *event.PaymentEvent) (bool, *model.ProcessedEvent, error) {
	row := &model.ProcessedEvent{
		Provider:         string(evt.Provider),
		ProviderEventID:  evt.ProviderEventID,
		EventType:        evt.ProviderEventType,
		ProcessingStatus: model.ProcessingStatusPending,
		PayloadHash:      evt.RawPayloadHash,
		EventData:        model.JSONB(evt.Data),
		Attempts:         1,
	}
	if evt.TransactionRef != "" {
		ref := evt.TransactionRef
		row.TransactionRef = &ref
	}
	if !evt.OccurredAt.IsZero() {
		sentAt := evt.OccurredAt
		row.ProviderSentAt = &sentAt
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(row)

	if result.Error != nil {
		r.logger.Error("Failed to record webhook event",
			zap.String("provider", string(evt.Provider)),
			zap.String("event_id", evt.ProviderEventID),
			zap.Error(result.Error))
		return false, nil, fmt.Errorf("failed to record webhook event: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		return true, row, nil
	}

	existing, err := r.GetEvent(ctx, evt.Provider, evt.ProviderEventID)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		// The conflicting row vanished between insert and read. Ledger rows
		// are never deleted inside the retention window, so treat it as a
		// store inconsistency rather than inventing an answer.
		return false, nil, fmt.Errorf("ledger entry not found after conflict: %s/%s", evt.Provider, evt.ProviderEventID)
	}

	return false, existing, nil
}

// MarkCompleted finalizes a ledger entry with the apply outcome. The
// update is conditioned on the entry not being completed yet, so two
// in-flight twins of the same delivery cannot overwrite each other's
// recorded outcome; the first finalizer wins.
func (r *eventLedgerRepository) MarkCompleted(ctx context.Context, provider event.Provider, providerEventID string, resultStatus string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.ProcessedEvent{}).
		Where("provider = ? AND provider_event_id = ? AND processing_status <> ?",
			string(provider), providerEventID, model.ProcessingStatusCompleted).
		Updates(map[string]interface{}{
			"processing_status": model.ProcessingStatusCompleted,
			"result_status":     resultStatus,
			"processed_at":      &now,
			"updated_at":        now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event completed",
			zap.String("provider", string(provider)),
			zap.String("event_id", providerEventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event completed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		existing, err := r.GetEvent(ctx, provider, providerEventID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("webhook event not found: %s/%s", provider, providerEventID)
		}
		// A concurrent twin finalized the entry first; its outcome stands.
		r.logger.Info("Webhook event already finalized",
			zap.String("provider", string(provider)),
			zap.String("event_id", providerEventID),
			zap.Stringp("result_status", existing.ResultStatus))
	}

	return nil
}

// MarkFailed records a processing failure with an exponential backoff hint
// for the provider's next delivery attempt. A single UPDATE increments
// the attempts counter and derives the backoff from it, so concurrent
// failures cannot lose an increment to a read-then-write race.
func (r *eventLedgerRepository) MarkFailed(ctx context.Context, provider event.Provider, providerEventID string, cause error) error {
	result := r.db.WithContext(ctx).
		Model(&model.ProcessedEvent{}).
		Where("provider = ? AND provider_event_id = ?", string(provider), providerEventID).
		Updates(map[string]interface{}{
			"processing_status": model.ProcessingStatusFailed,
			"attempts":          gorm.Expr("attempts + 1"),
			// 5, 10, 20, ... minutes, capped at a day.
			"next_retry_at": gorm.Expr("now() + least(5 * power(2, attempts + 1), 1440) * interval '1 minute'"),
			"last_error":    cause.Error(),
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event failed",
			zap.String("provider", string(provider)),
			zap.String("event_id", providerEventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event failed: %w", result.Error)
	}

	return nil
}

// GetEvent retrieves a ledger entry by its composite key.
func (r *eventLedgerRepository) GetEvent(ctx context.Context, provider event.Provider, providerEventID string) (*model.ProcessedEvent, error) {
	var row model.ProcessedEvent

	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", string(provider), providerEventID).
		First(&row).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("provider", string(provider)),
			zap.String("event_id", providerEventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &row, nil
}
