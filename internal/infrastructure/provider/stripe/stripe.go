package stripe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	stripesdk "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/provider"
	"go.uber.org/zap"
)

// Adapter verifies and parses Stripe webhook deliveries. Verification is
// delegated to the SDK's webhook package, which checks the composite
// t/v1 signature scheme against the exact raw bytes in constant time.
type Adapter struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewAdapter creates a Stripe webhook adapter.
func NewAdapter(webhookSecret string, logger *zap.Logger) *Adapter {
	return &Adapter{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Provider returns the provider identity.
func (a *Adapter) Provider() event.Provider {
	return event.ProviderStripe
}

// SignatureHeader returns Stripe's signature header name.
func (a *Adapter) SignatureHeader() string {
	return "Stripe-Signature"
}

// kindByEventType maps Stripe event types to normalized kinds. Types not
// listed here are acknowledged without state action.
var kindByEventType = map[stripesdk.EventType]event.Kind{
	stripesdk.EventTypePaymentIntentSucceeded:     event.KindSucceeded,
	stripesdk.EventTypePaymentIntentPaymentFailed: event.KindFailed,
	stripesdk.EventTypePaymentIntentProcessing:    event.KindPending,
	stripesdk.EventTypePaymentIntentCanceled:      event.KindExpired,
	stripesdk.EventTypeChargeRefunded:             event.KindRefunded,
}

// paymentObject is the subset of payment_intent and charge objects the
// normalizer needs.
type paymentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// VerifyAndParse verifies the delivery and normalizes it. A bad or
// malformed signature never escapes as anything but *provider.VerificationError.
func (a *Adapter) VerifyAndParse(ctx context.Context, rawBody []byte, signature string) (*event.PaymentEvent, error) {
	stripeEvent, err := webhook.ConstructEventWithOptions(
		rawBody,
		signature,
		a.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		a.logger.Warn("Stripe webhook signature verification failed",
			zap.Error(err))
		return nil, &provider.VerificationError{
			Provider: event.ProviderStripe,
			Reason:   err.Error(),
		}
	}

	hash := sha256.Sum256(rawBody)

	evt := &event.PaymentEvent{
		Provider:          event.ProviderStripe,
		ProviderEventID:   stripeEvent.ID,
		ProviderEventType: string(stripeEvent.Type),
		Kind:              event.KindUnhandled,
		OccurredAt:        time.Unix(stripeEvent.Created, 0),
		RawPayloadHash:    hex.EncodeToString(hash[:]),
	}

	kind, handled := kindByEventType[stripeEvent.Type]
	if !handled {
		a.logger.Debug("Unhandled Stripe event type",
			zap.String("type", string(stripeEvent.Type)),
			zap.String("event_id", stripeEvent.ID))
		return evt, nil
	}

	var obj paymentObject
	if err := json.Unmarshal(stripeEvent.Data.Raw, &obj); err != nil {
		return nil, &provider.ParseError{
			Provider: event.ProviderStripe,
			Reason:   "invalid event object payload",
			Err:      err,
		}
	}

	orderID := obj.Metadata["order_id"]
	if orderID == "" {
		return nil, &provider.ParseError{
			Provider: event.ProviderStripe,
			Reason:   "event object carries no order_id metadata",
		}
	}

	var data map[string]interface{}
	if err := json.Unmarshal(stripeEvent.Data.Raw, &data); err != nil {
		data = nil
	}

	evt.Kind = kind
	evt.TransactionRef = orderID
	evt.Amount = decimal.NewFromInt(obj.Amount)
	evt.Currency = obj.Currency
	evt.Data = data

	return evt, nil
}
