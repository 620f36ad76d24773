package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/model"
	"github.com/meshpay/payment-service/internal/domain/repository"
	"github.com/meshpay/payment-service/pkg/errors"
	"go.uber.org/zap"
)

// RejectReason classifies why an event was understood but not applied.
type RejectReason string

const (
	RejectUnknownTransaction RejectReason = "unknown_transaction"
	RejectTerminalConflict   RejectReason = "terminal_conflict"
	RejectIllegalTransition  RejectReason = "illegal_transition"
	RejectAmountMismatch     RejectReason = "amount_mismatch"
)

// ApplyOutcome is the tri-state result of applying an event.
type ApplyOutcome string

const (
	OutcomeApplied  ApplyOutcome = "applied"
	OutcomeNoOp     ApplyOutcome = "noop"
	OutcomeRejected ApplyOutcome = "rejected"
)

// ApplyResult describes what the state machine did with an event.
type ApplyResult struct {
	Outcome   ApplyOutcome
	NewStatus model.TransactionStatus
	Reason    RejectReason
	Detail    string
}

// ResultString renders the result for the ledger's result_status column.
func (r *ApplyResult) ResultString() string {
	switch r.Outcome {
	case OutcomeApplied:
		return "applied:" + string(r.NewStatus)
	case OutcomeRejected:
		return "rejected:" + string(r.Reason)
	default:
		return "noop"
	}
}

// optimisticRetries bounds the read-compute-write cycle under version
// conflicts. Conflicts recompute against fresh state, so losing a race
// converges to the same deterministic outcome as any arrival order.
const optimisticRetries = 3

// Reconciler applies normalized payment events to transactions, enforcing
// the legal transition table and optimistic concurrency. All mutation
// goes through the version-conditioned update; no lock is held anywhere.
type Reconciler struct {
	transactions repository.TransactionRepository
	logger       *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(transactions repository.TransactionRepository, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		transactions: transactions,
		logger:       logger,
	}
}

// kindTargets maps normalized event kinds to target statuses. Unhandled
// and unknown kinds have no target and apply as no-ops.
var kindTargets = map[event.Kind]model.TransactionStatus{
	event.KindSucceeded: model.TransactionStatusSucceeded,
	event.KindFailed:    model.TransactionStatusFailed,
	event.KindRefunded:  model.TransactionStatusRefunded,
	event.KindPending:   model.TransactionStatusPending,
	event.KindExpired:   model.TransactionStatusExpired,
}

// Apply reconciles one event into its transaction. Rejections are
// returned as results, not errors; an error return always means the
// durable store could not be read or written.
func (r *Reconciler) Apply(ctx context.Context, evt *event.PaymentEvent) (*ApplyResult, error) {
	target, ok := kindTargets[evt.Kind]
	if !ok {
		return &ApplyResult{Outcome: OutcomeNoOp}, nil
	}

	for attempt := 0; attempt < optimisticRetries; attempt++ {
		var tx *model.Transaction
		err := retryStore(ctx, r.logger, "transactions.get_by_ref", func() error {
			var opErr error
			tx, opErr = r.transactions.GetByRef(ctx, evt.TransactionRef)
			return opErr
		})
		if err != nil {
			return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to load transaction", err)
		}
		if tx == nil {
			return &ApplyResult{
				Outcome: OutcomeRejected,
				Reason:  RejectUnknownTransaction,
				Detail:  fmt.Sprintf("no transaction for ref %q", evt.TransactionRef),
			}, nil
		}

		if res := r.check(tx, evt, target); res != nil {
			return res, nil
		}

		var updated bool
		err = retryStore(ctx, r.logger, "transactions.update_status", func() error {
			var opErr error
			updated, opErr = r.transactions.UpdateStatusConditional(ctx, tx.TransactionRef, tx.Version, target, eventTime(evt), model.JSONB(evt.Data))
			return opErr
		})
		if err != nil {
			return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to update transaction", err)
		}
		if updated {
			return &ApplyResult{Outcome: OutcomeApplied, NewStatus: target}, nil
		}

		// Lost the version race: another event advanced the transaction
		// between read and write. Re-read and recompute.
		r.logger.Debug("Optimistic update conflict, retrying",
			zap.String("transaction_ref", evt.TransactionRef),
			zap.Int64("version", tx.Version),
			zap.Int("attempt", attempt+1))
	}

	return nil, errors.NewAppError(errors.ErrStoreUnavailable,
		fmt.Sprintf("version conflict persisted after %d attempts for %q", optimisticRetries, evt.TransactionRef), nil)
}

// check evaluates the event against the loaded transaction, returning a
// non-nil result when no write is needed.
func (r *Reconciler) check(tx *model.Transaction, evt *event.PaymentEvent, target model.TransactionStatus) *ApplyResult {
	if !evt.Amount.IsZero() && !evt.Amount.Equal(tx.Amount) {
		return &ApplyResult{
			Outcome: OutcomeRejected,
			Reason:  RejectAmountMismatch,
			Detail:  fmt.Sprintf("event amount %s, stored %s", evt.Amount.String(), tx.Amount.String()),
		}
	}
	if evt.Currency != "" && !strings.EqualFold(evt.Currency, tx.Currency) {
		return &ApplyResult{
			Outcome: OutcomeRejected,
			Reason:  RejectAmountMismatch,
			Detail:  fmt.Sprintf("event currency %s, stored %s", evt.Currency, tx.Currency),
		}
	}

	if tx.Status == target {
		return &ApplyResult{Outcome: OutcomeNoOp, NewStatus: tx.Status}
	}

	if tx.Status.IsTerminal() && !tx.Status.CanTransitionTo(target) {
		return &ApplyResult{
			Outcome: OutcomeRejected,
			Reason:  RejectTerminalConflict,
			Detail:  fmt.Sprintf("transaction already %s, event wants %s", tx.Status, target),
		}
	}

	if !tx.Status.CanTransitionTo(target) {
		return &ApplyResult{
			Outcome: OutcomeRejected,
			Reason:  RejectIllegalTransition,
			Detail:  fmt.Sprintf("transition %s -> %s is not legal", tx.Status, target),
		}
	}

	return nil
}

// eventTime returns the event timestamp, falling back to now for
// providers that omit it.
func eventTime(evt *event.PaymentEvent) time.Time {
	if evt.OccurredAt.IsZero() {
		return time.Now()
	}
	return evt.OccurredAt
}
