package usecase

import (
	"context"
	"time"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/model"
	"github.com/meshpay/payment-service/internal/domain/repository"
	"github.com/meshpay/payment-service/internal/metrics"
	"github.com/meshpay/payment-service/pkg/errors"
	"go.uber.org/zap"
)

// Disposition is the delivery-level outcome reported to the gateway.
type Disposition string

const (
	DispositionApplied   Disposition = "applied"
	DispositionNoOp      Disposition = "noop"
	DispositionDuplicate Disposition = "duplicate"
	DispositionIgnored   Disposition = "ignored"
	DispositionRejected  Disposition = "rejected"
)

// ProcessResult is what the gateway turns into an HTTP acknowledgment.
// Every disposition here maps to a success response; store failures
// surface as errors instead so the provider retries later.
type ProcessResult struct {
	Disposition Disposition
	Apply       *ApplyResult
}

// WebhookProcessor drives the ledger and the state machine for one
// verified delivery: dedupe, apply, finalize, anomaly reporting.
type WebhookProcessor struct {
	ledger     repository.EventLedger
	anomalies  repository.AnomalyRepository
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewWebhookProcessor creates a WebhookProcessor.
func NewWebhookProcessor(
	ledger repository.EventLedger,
	anomalies repository.AnomalyRepository,
	reconciler *Reconciler,
	logger *zap.Logger,
) *WebhookProcessor {
	return &WebhookProcessor{
		ledger:     ledger,
		anomalies:  anomalies,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Process handles one verified, parsed delivery. The passed context must
// not carry the client connection's cancellation: once verification has
// succeeded, the ledger-claim/apply sequence runs to completion
// server-side because provider retry semantics depend on the stored
// outcome, not on the client still listening.
func (p *WebhookProcessor) Process(ctx context.Context, evt *event.PaymentEvent) (*ProcessResult, error) {
	start := time.Now()
	defer func() {
		metrics.ProcessingDuration.WithLabelValues(string(evt.Provider)).Observe(time.Since(start).Seconds())
	}()

	var (
		isNew bool
		entry *model.ProcessedEvent
	)
	err := retryStore(ctx, p.logger, "ledger.record_if_new", func() error {
		var opErr error
		isNew, entry, opErr = p.ledger.RecordIfNew(ctx, evt)
		return opErr
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to record delivery in ledger", err)
	}

	if !isNew && entry.ProcessingStatus == model.ProcessingStatusCompleted {
		p.logger.Info("Duplicate webhook delivery",
			zap.String("provider", string(evt.Provider)),
			zap.String("event_id", evt.ProviderEventID),
			zap.Stringp("result_status", entry.ResultStatus))
		metrics.DeliveriesTotal.WithLabelValues(string(evt.Provider), "duplicate").Inc()
		return &ProcessResult{Disposition: DispositionDuplicate}, nil
	}

	if !isNew {
		// A pending or failed entry means an earlier attempt claimed the
		// key but never finalized; this redelivery finishes the work. The
		// version-conditioned apply keeps a concurrent in-flight twin from
		// double-counting.
		p.logger.Info("Reprocessing unfinished webhook delivery",
			zap.String("provider", string(evt.Provider)),
			zap.String("event_id", evt.ProviderEventID),
			zap.String("processing_status", string(entry.ProcessingStatus)),
			zap.Int("attempts", entry.Attempts))
	}

	if evt.Kind == event.KindUnhandled {
		if err := p.finalize(ctx, evt, "ignored"); err != nil {
			return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to finalize ledger entry", err)
		}
		p.logger.Info("Ignoring unhandled webhook event type",
			zap.String("provider", string(evt.Provider)),
			zap.String("event_id", evt.ProviderEventID),
			zap.String("event_type", evt.ProviderEventType))
		metrics.DeliveriesTotal.WithLabelValues(string(evt.Provider), "ignored").Inc()
		return &ProcessResult{Disposition: DispositionIgnored}, nil
	}

	applyRes, err := p.reconciler.Apply(ctx, evt)
	if err != nil {
		// The ledger entry stays pending/failed so the provider's retry
		// reprocesses the event; it must not read as completed when the
		// state write never durably committed.
		if markErr := p.ledger.MarkFailed(ctx, evt.Provider, evt.ProviderEventID, err); markErr != nil {
			p.logger.Error("Failed to mark ledger entry failed",
				zap.String("provider", string(evt.Provider)),
				zap.String("event_id", evt.ProviderEventID),
				zap.Error(markErr))
		}
		metrics.DeliveriesTotal.WithLabelValues(string(evt.Provider), "store_error").Inc()
		return nil, err
	}

	if err := p.finalize(ctx, evt, applyRes.ResultString()); err != nil {
		return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to finalize ledger entry", err)
	}

	switch applyRes.Outcome {
	case OutcomeApplied:
		p.logger.Info("Webhook event applied",
			zap.String("provider", string(evt.Provider)),
			zap.String("event_id", evt.ProviderEventID),
			zap.String("transaction_ref", evt.TransactionRef),
			zap.String("new_status", string(applyRes.NewStatus)))
		metrics.DeliveriesTotal.WithLabelValues(string(evt.Provider), "applied").Inc()
		return &ProcessResult{Disposition: DispositionApplied, Apply: applyRes}, nil

	case OutcomeRejected:
		p.reportAnomaly(ctx, evt, applyRes)
		metrics.DeliveriesTotal.WithLabelValues(string(evt.Provider), "rejected").Inc()
		return &ProcessResult{Disposition: DispositionRejected, Apply: applyRes}, nil

	default:
		metrics.DeliveriesTotal.WithLabelValues(string(evt.Provider), "noop").Inc()
		return &ProcessResult{Disposition: DispositionNoOp, Apply: applyRes}, nil
	}
}

// finalize marks the ledger entry completed, retrying transient store
// failures before giving up.
func (p *WebhookProcessor) finalize(ctx context.Context, evt *event.PaymentEvent, resultStatus string) error {
	return retryStore(ctx, p.logger, "ledger.mark_completed", func() error {
		return p.ledger.MarkCompleted(ctx, evt.Provider, evt.ProviderEventID, resultStatus)
	})
}

// reportAnomaly surfaces a rejection to operators. A failed anomaly write
// is logged but never turns an acknowledged delivery into a retry loop.
func (p *WebhookProcessor) reportAnomaly(ctx context.Context, evt *event.PaymentEvent, res *ApplyResult) {
	p.logger.Warn("Webhook event rejected",
		zap.String("provider", string(evt.Provider)),
		zap.String("event_id", evt.ProviderEventID),
		zap.String("transaction_ref", evt.TransactionRef),
		zap.String("reason", string(res.Reason)),
		zap.String("detail", res.Detail))

	metrics.AnomaliesTotal.WithLabelValues(string(evt.Provider), string(res.Reason)).Inc()

	anomaly := &model.Anomaly{
		Provider:        string(evt.Provider),
		ProviderEventID: evt.ProviderEventID,
		TransactionRef:  evt.TransactionRef,
		Reason:          string(res.Reason),
		Detail:          res.Detail,
		EventData:       model.JSONB(evt.Data),
	}
	if err := p.anomalies.Create(ctx, anomaly); err != nil {
		p.logger.Error("Failed to persist anomaly record",
			zap.String("provider", string(evt.Provider)),
			zap.String("event_id", evt.ProviderEventID),
			zap.Error(err))
	}
}
