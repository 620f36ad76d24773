package stripe

import (
	"context"
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/refund"
	"go.uber.org/zap"

	"github.com/meshpay/payment-service/internal/domain/model"
)

// Refund asks Stripe to refund the payment intent behind a transaction.
// The local record is left untouched; the charge.refunded webhook is the
// source of truth for the resulting status.
func (a *Adapter) Refund(ctx context.Context, tx *model.Transaction, reason string) error {
	intentID, _ := tx.ProviderData["id"].(string)
	if intentID == "" {
		return fmt.Errorf("transaction %s carries no Stripe payment intent id", tx.TransactionRef)
	}

	params := &stripesdk.RefundParams{
		PaymentIntent: stripesdk.String(intentID),
	}
	params.Context = ctx
	if reason != "" {
		params.AddMetadata("requested_reason", reason)
	}

	ref, err := refund.New(params)
	if err != nil {
		a.logger.Error("Stripe refund request failed",
			zap.String("transaction_ref", tx.TransactionRef),
			zap.String("payment_intent", intentID),
			zap.Error(err))
		return fmt.Errorf("stripe refund failed: %w", err)
	}

	a.logger.Info("Stripe refund requested",
		zap.String("transaction_ref", tx.TransactionRef),
		zap.String("refund_id", ref.ID),
		zap.String("status", string(ref.Status)))

	return nil
}
